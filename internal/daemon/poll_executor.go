package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
	"github.com/dewgenenny/gocoax-stats/internal/models"
	"github.com/dewgenenny/gocoax-stats/internal/observability"
	"github.com/dewgenenny/gocoax-stats/internal/publish"
)

var tracer = otel.Tracer("github.com/dewgenenny/gocoax-stats/internal/daemon")

// ErrUnknownHost is returned for a host that is not configured
var ErrUnknownHost = errors.New("host is not configured")

// PollHost fetches, decodes and publishes one adapter and stores the
// snapshot. Concurrent calls for the same host share one poll. The shared
// poll runs detached from any single caller's cancellation and is bounded
// by the fetcher's timeouts; a cancelled caller stops waiting for it.
func (d *Daemon) PollHost(ctx context.Context, host string) (*models.HostSnapshot, error) {
	pollCtx := context.WithoutCancel(ctx)
	ch := d.inflight.DoChan(host, func() (interface{}, error) {
		return d.pollHost(pollCtx, host)
	})

	select {
	case res := <-ch:
		if res.Shared {
			logging.Debug("joined in-flight poll", logging.Host(host))
		}
		snap, _ := res.Val.(*models.HostSnapshot)
		return snap, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PollConfiguredHost is PollHost restricted to hosts in the configuration.
func (d *Daemon) PollConfiguredHost(ctx context.Context, host string) (*models.HostSnapshot, error) {
	for _, h := range d.Hosts() {
		if h == host {
			return d.PollHost(ctx, host)
		}
	}
	return nil, fmt.Errorf("%s: %w", host, ErrUnknownHost)
}

func (d *Daemon) pollHost(ctx context.Context, host string) (*models.HostSnapshot, error) {
	ctx, span := tracer.Start(ctx, "mocad.poll")
	defer span.End()
	span.SetAttributes(attribute.String("mocad.host", host))

	cfg := d.currentConfig()
	start := time.Now()
	snap := &models.HostSnapshot{Host: host, PolledAt: start}

	fail := func(result string, err error) (*models.HostSnapshot, error) {
		snap.Duration = time.Since(start)
		snap.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.metrics.ObservePoll(host, result, snap.Duration, 0)
		d.snapshots.Put(snap)
		return snap, err
	}

	regs, err := d.fetcher.FetchRegisters(ctx, host)
	if err != nil {
		return fail(observability.ResultFetchError, err)
	}
	logDiagnostics(host, regs)

	_, computeSpan := tracer.Start(ctx, "mocad.compute")
	res, err := moca.Decode(regs)
	if err == nil {
		computeSpan.SetAttributes(
			attribute.Int("mocad.nodes", len(res.Network.Nodes)),
			attribute.Int("mocad.decode_failures", len(res.Rates.Failures())),
		)
	}
	computeSpan.End()
	if err != nil {
		// a cached ChipID or MacInfo may belong to a replaced adapter
		if ierr := d.registerCache.Invalidate(ctx, host); ierr != nil {
			logging.Warn("failed to invalidate register cache", logging.Host(host), logging.Err(ierr))
		}
		return fail(observability.ResultDecodeError, fmt.Errorf("%s: %w", host, err))
	}

	snap.Result = &res
	hostLog := logging.WithHost(host)
	for _, w := range res.Warnings() {
		snap.Warnings = append(snap.Warnings, w.Error())
		var pairErr *moca.DecodeError
		if errors.As(w, &pairErr) {
			hostLog.Warn("pair decode failed", logging.Pair(pairErr.From, pairErr.To), logging.Err(w))
			continue
		}
		hostLog.Warn("decode warning", logging.Err(w))
	}

	if !cfg.Daemon.DryRun && d.publisher != nil {
		msgs := publish.Messages(cfg.MQTT.BaseTopic, host, res, publish.Options{
			VLRates:  cfg.Publish.VLRates,
			NodeInfo: cfg.Publish.NodeInfo,
		})
		if err := d.publishMessages(ctx, host, msgs); err != nil {
			logging.Error("publish failed", logging.Host(host), logging.Err(err))
			d.metrics.ObservePublishError(host)
		} else {
			snap.Published = true
		}
	}

	snap.Duration = time.Since(start)
	d.snapshots.Put(snap)
	d.metrics.ObservePoll(host, observability.ResultOK, snap.Duration, len(res.Rates.Failures()))

	logging.Info("host polled",
		logging.Host(host),
		logging.Count("node", len(res.Network.Nodes)),
		logging.Count("warning", len(snap.Warnings)),
		logging.Duration("poll", snap.Duration),
	)
	return snap, nil
}

func (d *Daemon) publishMessages(ctx context.Context, host string, msgs []publish.Message) error {
	ctx, span := tracer.Start(ctx, "mocad.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("mocad.host", host),
		attribute.Int("mocad.messages", len(msgs)),
	)

	if err := d.publisher.Publish(ctx, msgs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logging.Debug("published", logging.Host(host), logging.Count("message", len(msgs)))
	return nil
}

// logDiagnostics dumps the diagnostic registers that nothing decodes.
func logDiagnostics(host string, regs moca.Registers) {
	for name, words := range map[string][]string{
		"miscPhyInfo":    regs.MiscPhyInfo,
		"gpio":           regs.GPIO,
		"miscM25PhyInfo": regs.MiscM25PhyInfo,
	} {
		if len(words) > 0 {
			logging.Debug("diagnostic register", logging.Host(host), logging.Endpoint(name), "words", words)
		}
	}
}
