// Package daemon schedules adapter polls, keeps the latest result of every
// host and fans results out to MQTT and metrics.
package daemon

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/dewgenenny/gocoax-stats/internal/cache"
	"github.com/dewgenenny/gocoax-stats/internal/fetcher"
	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
	"github.com/dewgenenny/gocoax-stats/internal/models"
	"github.com/dewgenenny/gocoax-stats/internal/observability"
	"github.com/dewgenenny/gocoax-stats/internal/publish"
)

// RegisterFetcher reads the raw registers of one adapter
type RegisterFetcher interface {
	FetchRegisters(ctx context.Context, host string) (moca.Registers, error)
}

// Daemon is the polling daemon
type Daemon struct {
	configMu sync.RWMutex
	config   *Config

	fetcher   RegisterFetcher
	publisher publish.Publisher

	// Persistent cache (optional) for static registers
	persistentCache cache.Cache
	registerCache   *cache.RegisterCache

	registry        *prometheus.Registry
	metrics         *observability.PollCollector
	tracingShutdown func(context.Context) error
	workerPool      *WorkerPool
	statsCollector  *StatisticsCollector
	snapshots       *SnapshotStore
	inflight        singleflight.Group

	// Control state
	pauseMu sync.RWMutex
	paused  bool

	debugMu sync.RWMutex
	debug   bool

	stats struct {
		sync.Mutex
		startTime     time.Time
		cyclesRun     int
		totalPolls    int
		totalFailures int
		lastCycleTime time.Time
		lastCycle     *models.CycleStatistics
	}
}

// New creates a daemon from cfg, connecting to the broker when MQTT is
// enabled. A cache that fails to open only disables caching.
func New(cfg *Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.Logging
	if err := logging.Initialize(&logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Infof("Logging initialized with level: %s", cfg.Logging.Level)

	shutdown, err := observability.InitTracing(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	d := &Daemon{
		config:          cfg,
		tracingShutdown: shutdown,
		registry:        prometheus.NewRegistry(),
		workerPool:      NewWorkerPool(cfg.Daemon.Workers),
		statsCollector:  NewStatisticsCollector(),
		snapshots:       NewSnapshotStore(),
		debug:           cfg.Logging.Level == "debug",
	}

	d.metrics, err = observability.NewPollCollector(d.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := d.registry.Register(observability.NewSnapshotCollector(d)); err != nil {
		return nil, fmt.Errorf("failed to register snapshot collector: %w", err)
	}

	if cfg.Cache.Enabled && cfg.Cache.Path != "" {
		pCache, err := cache.NewBadgerCache(cache.DefaultBadgerConfig(cfg.Cache.Path))
		if err != nil {
			logging.Warnf("Failed to initialize register cache: %v", err)
			logging.Info("Continuing without register cache")
		} else {
			d.persistentCache = pCache
			d.registerCache = cache.NewRegisterCache(pCache, cfg.Cache.StaticTTL)
			logging.Infof("Register cache initialized at %s", cfg.Cache.Path)
		}
	}

	var static fetcher.StaticCache
	if d.registerCache != nil {
		static = d.registerCache
	}
	d.fetcher = fetcher.New(fetcher.Config{
		Scheme:             cfg.Device.Scheme,
		Username:           cfg.Device.Username,
		Password:           cfg.Device.Password,
		Timeout:            cfg.Device.Timeout,
		InsecureSkipVerify: cfg.Device.InsecureSkipVerify,
	}, static)

	if cfg.MQTT.Enabled && !cfg.Daemon.DryRun {
		pub, err := publish.NewMQTTPublisher(publish.MQTTConfig{
			Host:           cfg.MQTT.Host,
			Port:           cfg.MQTT.Port,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			ClientID:       cfg.MQTT.ClientID,
			QoS:            byte(cfg.MQTT.QoS),
			Retain:         cfg.MQTT.Retain,
			PublishTimeout: cfg.MQTT.PublishTimeout,
		})
		if err != nil {
			d.closeResources()
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		d.publisher = pub
	}

	return d, nil
}

// Run polls every host at start and then every poll interval until ctx
// is cancelled. In run-once mode it returns after the first cycle.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.currentConfig()
	if cfg.Version != "" {
		logging.Infof("Starting mocad %s with %d workers for %d hosts", cfg.Version, cfg.Daemon.Workers, len(cfg.Device.Hosts))
	} else {
		logging.Infof("Starting mocad with %d workers for %d hosts", cfg.Daemon.Workers, len(cfg.Device.Hosts))
	}

	d.stats.Lock()
	d.stats.startTime = time.Now()
	d.stats.Unlock()

	d.workerPool.Start()
	defer d.workerPool.Stop()

	if _, err := d.runPollCycle(ctx); err != nil {
		logging.Errorf("Error in initial poll cycle: %v", err)
	}

	if cfg.Daemon.RunOnce {
		logging.Info("Run-once mode completed")
		return nil
	}

	interval := cfg.Daemon.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Infof("Daemon started, polling every %v", interval)

	for {
		select {
		case <-ctx.Done():
			logging.Info("Daemon stopping due to context cancellation")
			return ctx.Err()

		case <-ticker.C:
			if _, err := d.runPollCycle(ctx); err != nil {
				logging.Errorf("Error in poll cycle: %v", err)
			}

			// pick up a reloaded interval
			if next := d.currentConfig().Daemon.PollInterval; next != interval {
				interval = next
				ticker.Reset(interval)
				logging.Infof("Poll interval changed to %v", interval)
			}
		}
	}
}

// Close closes the daemon and releases resources
func (d *Daemon) Close() error {
	if d.workerPool != nil {
		d.workerPool.Stop()
	}
	d.closeResources()

	// Close logging to flush any pending writes
	if err := logging.GetLogger().Close(); err != nil {
		log.Printf("Error closing logger: %v\n", err)
	}
	return nil
}

func (d *Daemon) closeResources() {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			logging.Errorf("Error closing publisher: %v", err)
		}
	}
	if d.persistentCache != nil {
		if err := d.persistentCache.Close(); err != nil {
			logging.Errorf("Error closing register cache: %v", err)
		}
	}
	observability.ShutdownWithTimeout(context.Background(), d.tracingShutdown)
}

func (d *Daemon) currentConfig() Config {
	d.configMu.RLock()
	defer d.configMu.RUnlock()
	return *d.config
}

// Hosts returns the configured adapter hosts
func (d *Daemon) Hosts() []string {
	cfg := d.currentConfig()
	return append([]string(nil), cfg.Device.Hosts...)
}

// LatestSnapshot returns the most recent snapshot of host
func (d *Daemon) LatestSnapshot(host string) (*models.HostSnapshot, bool) {
	return d.snapshots.Get(host)
}

// Snapshots returns the latest snapshot of every polled host
func (d *Daemon) Snapshots() []*models.HostSnapshot {
	return d.snapshots.All()
}

// Registry returns the Prometheus registry holding the daemon's metrics
func (d *Daemon) Registry() *prometheus.Registry {
	return d.registry
}

// Metrics returns the poll collector
func (d *Daemon) Metrics() *observability.PollCollector {
	return d.metrics
}
