package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// runPollCycle polls every configured host once through the worker pool.
// A failed host is logged and counted; the cycle always completes.
func (d *Daemon) runPollCycle(ctx context.Context) (*models.CycleStatistics, error) {
	if d.IsPaused() {
		logging.Info("Poll cycle skipped - daemon is paused")
		return nil, nil
	}

	startTime := time.Now()
	hosts := d.Hosts()
	logging.Infof("Starting poll cycle for %d hosts", len(hosts))

	snaps := make([]*models.HostSnapshot, len(hosts))
	errs := make([]error, len(hosts))

	var wg sync.WaitGroup
	for i, host := range hosts {
		wg.Add(1)
		idx, h := i, host

		ok := d.workerPool.Submit(func() {
			defer wg.Done()
			snaps[idx], errs[idx] = d.PollHost(ctx, h)
		})
		if !ok {
			wg.Done()
			errs[idx] = ctx.Err()
			logging.Warn("Worker pool stopping, host not polled", logging.Host(h))
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			logging.Error("Poll failed", logging.Host(hosts[i]), logging.Err(err))
		}
	}

	stats := d.statsCollector.CalculateStatistics(snaps, errs, startTime)

	d.stats.Lock()
	d.stats.cyclesRun++
	d.stats.totalPolls += int(stats.HostsPolled)
	d.stats.totalFailures += int(stats.HostsFailed)
	d.stats.lastCycleTime = startTime
	d.stats.lastCycle = stats
	d.stats.Unlock()

	logging.Infof("Poll cycle completed in %v: %d hosts ok, %d failed, %d pairs decoded, %d decode failures",
		stats.Duration, stats.HostsOK, stats.HostsFailed, stats.PairsDecoded, stats.DecodeFailures)

	return stats, nil
}

// Stats is a copy of the daemon's running totals
type Stats struct {
	StartTime     time.Time               `json:"start_time"`
	CyclesRun     int                     `json:"cycles_run"`
	TotalPolls    int                     `json:"total_polls"`
	TotalFailures int                     `json:"total_failures"`
	LastCycleTime time.Time               `json:"last_cycle_time"`
	LastCycle     *models.CycleStatistics `json:"last_cycle,omitempty"`
}

// GetStats returns the running totals
func (d *Daemon) GetStats() Stats {
	d.stats.Lock()
	defer d.stats.Unlock()
	return Stats{
		StartTime:     d.stats.startTime,
		CyclesRun:     d.stats.cyclesRun,
		TotalPolls:    d.stats.totalPolls,
		TotalFailures: d.stats.totalFailures,
		LastCycleTime: d.stats.lastCycleTime,
		LastCycle:     d.stats.lastCycle,
	}
}
