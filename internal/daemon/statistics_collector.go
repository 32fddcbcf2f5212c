package daemon

import (
	"errors"
	"time"

	"github.com/dewgenenny/gocoax-stats/internal/fetcher"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// StatisticsCollector aggregates the snapshots of one poll cycle
type StatisticsCollector struct{}

// NewStatisticsCollector creates a new statistics collector
func NewStatisticsCollector() *StatisticsCollector {
	return &StatisticsCollector{}
}

// CalculateStatistics summarises a cycle. errs holds the poll error of each
// snapshot at the same index, nil for successful polls.
func (sc *StatisticsCollector) CalculateStatistics(snaps []*models.HostSnapshot, errs []error, started time.Time) *models.CycleStatistics {
	stats := &models.CycleStatistics{
		StartedAt:   started,
		Duration:    time.Since(started),
		HostsPolled: uint32(len(snaps)),
		ErrorTypes:  make(map[string]uint32),
	}

	for i, snap := range snaps {
		if snap == nil {
			continue
		}

		if !snap.OK() {
			stats.HostsFailed++
			var err error
			if i < len(errs) {
				err = errs[i]
			}
			stats.ErrorTypes[errorType(err)]++
			continue
		}

		stats.HostsOK++
		rates := snap.Result.Rates
		failed := uint32(len(rates.Failures()))
		stats.DecodeFailures += failed
		stats.PairsDecoded += uint32(len(rates.Pairs)) - failed
		stats.Warnings += uint32(len(snap.Warnings))
		stats.ActiveNodes += uint32(len(snap.Result.Network.Nodes))
	}

	return stats
}

func errorType(err error) string {
	switch {
	case err == nil:
		return "UNKNOWN"
	case errors.Is(err, fetcher.ErrNoCSRFToken):
		return "CSRF"
	case errors.Is(err, fetcher.ErrFetchFailure):
		return "FETCH"
	case errors.Is(err, moca.ErrMalformedRegister):
		return "MALFORMED_REGISTER"
	default:
		return "OTHER"
	}
}
