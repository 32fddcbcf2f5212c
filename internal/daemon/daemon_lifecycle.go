package daemon

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
)

// ReloadConfig reloads the configuration from file. Only the poll interval,
// publish options, MQTT base topic, host list and logging change; transport
// settings and the worker pool keep their startup values.
func (d *Daemon) ReloadConfig(fs afero.Fs, configPath string) error {
	newCfg, err := LoadConfig(fs, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	d.configMu.Lock()
	updated := *d.config
	updated.Daemon.PollInterval = newCfg.Daemon.PollInterval
	updated.Device.Hosts = newCfg.Device.Hosts
	updated.Publish = newCfg.Publish
	updated.MQTT.BaseTopic = newCfg.MQTT.BaseTopic
	updated.Logging = newCfg.Logging
	updated.ConfigPath = configPath
	d.config = &updated
	d.configMu.Unlock()

	logCfg := newCfg.Logging
	if d.GetDebugMode() {
		logCfg.Level = "debug"
	}
	if err := logging.GetLogger().Reload(&logCfg); err != nil {
		logging.Errorf("Failed to reload logging configuration: %v", err)
	}

	logging.Info("Configuration reloaded successfully",
		"poll_interval", newCfg.Daemon.PollInterval.String(),
		logging.Count("host", len(newCfg.Device.Hosts)),
	)
	return nil
}

// Pause pauses scheduled polling. On-demand polls still run.
func (d *Daemon) Pause() error {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	if d.paused {
		return fmt.Errorf("daemon is already paused")
	}

	d.paused = true
	logging.Info("Daemon paused")
	return nil
}

// Resume resumes scheduled polling
func (d *Daemon) Resume() error {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	if !d.paused {
		return fmt.Errorf("daemon is not paused")
	}

	d.paused = false
	logging.Info("Daemon resumed")
	return nil
}

// IsPaused returns whether the daemon is paused
func (d *Daemon) IsPaused() bool {
	d.pauseMu.RLock()
	defer d.pauseMu.RUnlock()
	return d.paused
}

// SetDebugMode switches the logger between debug and the configured level
func (d *Daemon) SetDebugMode(enabled bool) error {
	d.debugMu.Lock()
	d.debug = enabled
	d.debugMu.Unlock()

	logCfg := d.currentConfig().Logging
	if enabled {
		logCfg.Level = "debug"
	}
	if err := logging.GetLogger().Reload(&logCfg); err != nil {
		return fmt.Errorf("failed to reload logger: %w", err)
	}

	if enabled {
		logging.Info("Debug mode enabled")
	} else {
		logging.Info("Debug mode disabled", "level", logging.GetLogger().Level())
	}
	return nil
}

// GetDebugMode returns the current debug mode status
func (d *Daemon) GetDebugMode() bool {
	d.debugMu.RLock()
	defer d.debugMu.RUnlock()
	return d.debug
}

// Health status values
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthPaused   = "paused"
	HealthStarting = "starting"
)

// HealthStatus summarises the daemon for the health endpoint
type HealthStatus struct {
	Status      string        `json:"status"`
	Version     string        `json:"version,omitempty"`
	Uptime      time.Duration `json:"uptime_ns"`
	CyclesRun   int           `json:"cycles_run"`
	LastCycle   time.Time     `json:"last_cycle,omitempty"`
	HostsOK     int           `json:"hosts_ok"`
	HostsFailed int           `json:"hosts_failed"`
	Paused      bool          `json:"paused"`
	DryRun      bool          `json:"dry_run"`
	Cache       *CacheHealth  `json:"cache,omitempty"`
}

// CacheHealth reports the static register cache
type CacheHealth struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Keys   uint64 `json:"keys"`
}

// CheckHealth reports degraded while any host's latest poll failed.
func (d *Daemon) CheckHealth() HealthStatus {
	cfg := d.currentConfig()
	stats := d.GetStats()

	h := HealthStatus{
		Status:    HealthOK,
		Version:   cfg.Version,
		CyclesRun: stats.CyclesRun,
		LastCycle: stats.LastCycleTime,
		Paused:    d.IsPaused(),
		DryRun:    cfg.Daemon.DryRun,
	}
	if !stats.StartTime.IsZero() {
		h.Uptime = time.Since(stats.StartTime)
	}
	if m := d.registerCache.Metrics(); m != nil {
		h.Cache = &CacheHealth{Hits: m.Hits, Misses: m.Misses, Keys: m.Keys}
	}

	for _, snap := range d.Snapshots() {
		if snap.OK() {
			h.HostsOK++
		} else {
			h.HostsFailed++
		}
	}

	switch {
	case h.Paused:
		h.Status = HealthPaused
	case h.HostsOK+h.HostsFailed == 0:
		h.Status = HealthStarting
	case h.HostsFailed > 0:
		h.Status = HealthDegraded
	}
	return h
}
