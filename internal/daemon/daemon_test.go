package daemon

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewgenenny/gocoax-stats/internal/fetcher"
	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
	"github.com/dewgenenny/gocoax-stats/internal/models"
	"github.com/dewgenenny/gocoax-stats/internal/observability"
	"github.com/dewgenenny/gocoax-stats/internal/publish"
)

func TestMain(m *testing.M) {
	_ = logging.Initialize(&logging.Config{Level: "error"})
	os.Exit(m.Run())
}

func words(n int, set map[int]string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "0x00000000"
	}
	for i, v := range set {
		out[i] = v
	}
	return out
}

// fixtureRegisters is a 2.0 network of nodes 0 and 1.
func fixtureRegisters() moca.Registers {
	return moca.Registers{
		LocalInfo: words(26, map[int]string{
			5: "0x1", 11: "0x20", 12: "0x3",
			21: "0x312e322e", 22: "0x33303031",
		}),
		NetInfo: map[int][]string{
			0: words(8, map[int]string{0: "0x00112233", 1: "0x44550000", 4: "0x20"}),
			1: words(8, map[int]string{0: "0x00aabbcc", 1: "0xddee0000", 4: "0x20"}),
		},
		FmrInfo: map[int][]string{
			0: words(16, map[int]string{10: "0x05000064"}),
			1: words(16, nil),
		},
		MacInfo:   []string{"0x00112233", "0x44550000"},
		FrameInfo: words(104, nil),
		Lof:       []string{"0x474"},
		IPAddr:    []string{"0xC0A80102"},
		ChipID:    []string{"0x16"},
		GPIO:      []string{"0x1"},
	}
}

type fakeFetcher struct {
	mu      sync.Mutex
	regs    map[string]moca.Registers
	errs    map[string]error
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		regs: map[string]moca.Registers{},
		errs: map[string]error{},
	}
}

func (f *fakeFetcher) FetchRegisters(ctx context.Context, host string) (moca.Registers, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return moca.Registers{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[host]; ok {
		return moca.Registers{}, err
	}
	if regs, ok := f.regs[host]; ok {
		return regs, nil
	}
	return fixtureRegisters(), nil
}

func newTestDaemon(t *testing.T, f RegisterFetcher, pub publish.Publisher, hosts ...string) *Daemon {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Device.Hosts = hosts
	cfg.Logging = logging.Config{Level: "error"}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewPollCollector(reg)
	require.NoError(t, err)

	d := &Daemon{
		config:         cfg,
		fetcher:        f,
		registry:       reg,
		metrics:        metrics,
		workerPool:     NewWorkerPool(2),
		statsCollector: NewStatisticsCollector(),
		snapshots:      NewSnapshotStore(),
	}
	if pub != nil {
		d.publisher = pub
	}
	return d
}

func TestPollHostPublishesAndStores(t *testing.T) {
	pub := &publish.MockPublisher{}
	d := newTestDaemon(t, newFakeFetcher(), pub, "dev1")

	snap, err := d.PollHost(context.Background(), "dev1")
	require.NoError(t, err)
	require.True(t, snap.OK())
	assert.True(t, snap.Published)
	assert.Equal(t, "MXL371x.1.2.3001", snap.Result.Status.SOCVersion)

	rate, ok := snap.Result.Rates.N.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, 16, rate)

	batches := pub.Batches()
	require.Len(t, batches, 1)
	// 15 status + 2 gcd + 4 rates + 4 node info
	assert.Len(t, batches[0], 25)
	assert.Equal(t, "moca/dev1/status/soc_version", batches[0][0].Topic)

	stored, ok := d.LatestSnapshot("dev1")
	require.True(t, ok)
	assert.Same(t, snap, stored)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Polls.WithLabelValues("dev1", observability.ResultOK)))
}

func TestPollHostFetchError(t *testing.T) {
	f := newFakeFetcher()
	f.errs["dev1"] = &fetcher.FetchError{Host: "dev1", Endpoint: "localInfo", Status: 500}
	pub := &publish.MockPublisher{}
	d := newTestDaemon(t, f, pub, "dev1")

	snap, err := d.PollHost(context.Background(), "dev1")
	require.Error(t, err)
	assert.ErrorIs(t, err, fetcher.ErrFetchFailure)
	require.NotNil(t, snap)
	assert.False(t, snap.OK())
	assert.Contains(t, snap.Error, "HTTP 500")

	assert.Empty(t, pub.Batches())
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Polls.WithLabelValues("dev1", observability.ResultFetchError)))

	stored, ok := d.LatestSnapshot("dev1")
	require.True(t, ok)
	assert.Nil(t, stored.Result)
}

func TestPollHostDecodeError(t *testing.T) {
	f := newFakeFetcher()
	f.regs["dev1"] = moca.Registers{LocalInfo: []string{"0x0"}}
	d := newTestDaemon(t, f, nil, "dev1")

	_, err := d.PollHost(context.Background(), "dev1")
	require.Error(t, err)
	assert.ErrorIs(t, err, moca.ErrMalformedRegister)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Polls.WithLabelValues("dev1", observability.ResultDecodeError)))
}

func TestPollHostDryRunSkipsPublish(t *testing.T) {
	pub := &publish.MockPublisher{}
	d := newTestDaemon(t, newFakeFetcher(), pub, "dev1")
	d.config.Daemon.DryRun = true

	snap, err := d.PollHost(context.Background(), "dev1")
	require.NoError(t, err)
	assert.False(t, snap.Published)
	assert.Empty(t, pub.Batches())
}

func TestPollHostPublishFailureKeepsResult(t *testing.T) {
	pub := &publish.MockPublisher{Err: errors.New("broker down")}
	d := newTestDaemon(t, newFakeFetcher(), pub, "dev1")

	snap, err := d.PollHost(context.Background(), "dev1")
	require.NoError(t, err)
	assert.True(t, snap.OK())
	assert.False(t, snap.Published)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.PublishErrors.WithLabelValues("dev1")))
}

func TestPollHostCollapsesConcurrentCalls(t *testing.T) {
	f := newFakeFetcher()
	f.started = make(chan struct{}, 2)
	f.release = make(chan struct{})
	d := newTestDaemon(t, f, nil, "dev1")

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[0] = d.PollHost(context.Background(), "dev1")
	}()
	<-f.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[1] = d.PollHost(context.Background(), "dev1")
	}()
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.NoError(t, results[0])
	assert.NoError(t, results[1])
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestPollHostCancelledCallerDoesNotFailJoinedCaller(t *testing.T) {
	f := newFakeFetcher()
	f.started = make(chan struct{}, 2)
	f.release = make(chan struct{})
	d := newTestDaemon(t, f, nil, "dev1")

	apiCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.PollHost(apiCtx, "dev1")
		firstErr <- err
	}()
	<-f.started

	type result struct {
		snap *models.HostSnapshot
		err  error
	}
	second := make(chan result, 1)
	go func() {
		snap, err := d.PollHost(context.Background(), "dev1")
		second <- result{snap, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared poll")
	}

	close(f.release)
	var res result
	select {
	case res = <-second:
	case <-time.After(time.Second):
		t.Fatal("joined caller never returned")
	}
	require.NoError(t, res.err)
	require.NotNil(t, res.snap)
	assert.Empty(t, res.snap.Error)

	stored, ok := d.snapshots.Get("dev1")
	require.True(t, ok)
	assert.Empty(t, stored.Error)
	assert.NotNil(t, stored.Result)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestPollConfiguredHostRejectsUnknownHost(t *testing.T) {
	d := newTestDaemon(t, newFakeFetcher(), nil, "dev1")

	_, err := d.PollConfiguredHost(context.Background(), "dev9")
	assert.ErrorIs(t, err, ErrUnknownHost)

	_, err = d.PollConfiguredHost(context.Background(), "dev1")
	assert.NoError(t, err)
}

func TestRunPollCycle(t *testing.T) {
	f := newFakeFetcher()
	f.errs["dev2"] = &fetcher.FetchError{Host: "dev2", Endpoint: "devStatus", Cause: fetcher.ErrNoCSRFToken}
	f.errs["dev3"] = &fetcher.FetchError{Host: "dev3", Endpoint: "localInfo", Status: 502}
	d := newTestDaemon(t, f, nil, "dev1", "dev2", "dev3")
	d.workerPool.Start()
	defer d.workerPool.Stop()

	stats, err := d.runPollCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, uint32(3), stats.HostsPolled)
	assert.Equal(t, uint32(1), stats.HostsOK)
	assert.Equal(t, uint32(2), stats.HostsFailed)
	assert.Equal(t, uint32(1), stats.ErrorTypes["CSRF"])
	assert.Equal(t, uint32(1), stats.ErrorTypes["FETCH"])
	assert.Equal(t, uint32(4), stats.PairsDecoded)
	assert.Equal(t, uint32(2), stats.ActiveNodes)

	assert.Len(t, d.Snapshots(), 3)
	got := d.GetStats()
	assert.Equal(t, 1, got.CyclesRun)
	assert.Equal(t, 3, got.TotalPolls)
	assert.Equal(t, 2, got.TotalFailures)
}

func TestRunPollCycleSkippedWhilePaused(t *testing.T) {
	f := newFakeFetcher()
	d := newTestDaemon(t, f, nil, "dev1")
	require.NoError(t, d.Pause())

	stats, err := d.runPollCycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestRunOnce(t *testing.T) {
	f := newFakeFetcher()
	d := newTestDaemon(t, f, nil, "dev1", "dev2")
	d.config.Daemon.RunOnce = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, 1, d.GetStats().CyclesRun)
}

func TestRunStopsOnCancel(t *testing.T) {
	d := newTestDaemon(t, newFakeFetcher(), nil, "dev1")
	d.config.Daemon.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWriteReport(t *testing.T) {
	d := newTestDaemon(t, newFakeFetcher(), nil, "dev1")

	var buf bytes.Buffer
	require.NoError(t, d.PollSingleHost(context.Background(), "10.1.1.1", &buf))

	out := buf.String()
	assert.Contains(t, out, "MXL371x.1.2.3001")
	assert.Contains(t, out, "PHY Rates (Mbps):")
	assert.Contains(t, out, "GCD Rates (Mbps):")
	assert.Contains(t, out, "00:aa:bb:cc:dd:ee")
}

func TestWriteReportFailedSnapshot(t *testing.T) {
	f := newFakeFetcher()
	f.errs["dev1"] = errors.New("connection refused")
	d := newTestDaemon(t, f, nil, "dev1")

	_, err := d.PollHost(context.Background(), "dev1")
	require.Error(t, err)

	snap, _ := d.LatestSnapshot("dev1")
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, snap))
	assert.Contains(t, buf.String(), "poll failed: connection refused")
}
