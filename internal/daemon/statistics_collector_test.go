package daemon

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewgenenny/gocoax-stats/internal/fetcher"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
	"github.com/dewgenenny/gocoax-stats/internal/models"
)

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "UNKNOWN"},
		{fmt.Errorf("fetch: %w", fetcher.ErrNoCSRFToken), "CSRF"},
		{fmt.Errorf("fetch: %w", fetcher.ErrFetchFailure), "FETCH"},
		{fmt.Errorf("decode: %w", moca.ErrMalformedRegister), "MALFORMED_REGISTER"},
		{assert.AnError, "OTHER"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorType(tt.err), "error %v", tt.err)
	}
}

func TestCalculateStatistics(t *testing.T) {
	res, err := moca.Decode(fixtureRegisters())
	require.NoError(t, err)

	snaps := []*models.HostSnapshot{
		{Host: "a", Result: &res, Warnings: []string{"w"}},
		{Host: "b", Error: "boom"},
		nil,
	}
	errs := []error{nil, fmt.Errorf("x: %w", fetcher.ErrFetchFailure), nil}

	stats := NewStatisticsCollector().CalculateStatistics(snaps, errs, time.Now())

	assert.Equal(t, uint32(3), stats.HostsPolled)
	assert.Equal(t, uint32(1), stats.HostsOK)
	assert.Equal(t, uint32(1), stats.HostsFailed)
	assert.Equal(t, uint32(4), stats.PairsDecoded)
	assert.Equal(t, uint32(0), stats.DecodeFailures)
	assert.Equal(t, uint32(1), stats.Warnings)
	assert.Equal(t, uint32(2), stats.ActiveNodes)
	assert.Equal(t, map[string]uint32{"FETCH": 1}, stats.ErrorTypes)
}

func TestSnapshotStore(t *testing.T) {
	store := NewSnapshotStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	store.Put(&models.HostSnapshot{Host: "b"})
	store.Put(&models.HostSnapshot{Host: "a"})
	store.Put(&models.HostSnapshot{Host: "b", Error: "replaced"})

	snap, ok := store.Get("b")
	require.True(t, ok)
	assert.Equal(t, "replaced", snap.Error)

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Host)
	assert.Equal(t, "b", all[1].Host)
}
