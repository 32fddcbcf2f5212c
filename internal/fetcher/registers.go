package fetcher

import (
	"context"
	"fmt"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/moca"
)

// StaticCache keeps register arrays that do not change between polls
type StaticCache interface {
	Get(ctx context.Context, host, endpoint string) ([]string, bool)
	Put(ctx context.Context, host, endpoint string, words []string) error
}

// Fetcher reads the full register set of an adapter
type Fetcher struct {
	cfg   Config
	cache StaticCache
}

// New creates a fetcher. cache may be nil.
func New(cfg Config, cache StaticCache) *Fetcher {
	return &Fetcher{cfg: cfg, cache: cache}
}

// FetchRegisters runs one complete poll of host and returns the raw arrays.
// Any failed request aborts the poll, except the diagnostic pages which
// are only logged.
func (f *Fetcher) FetchRegisters(ctx context.Context, host string) (moca.Registers, error) {
	s, err := NewSession(host, f.cfg)
	if err != nil {
		return moca.Registers{}, &FetchError{Host: host, Endpoint: DevStatus.Name, Cause: err}
	}
	defer s.Close()

	if err := s.Handshake(ctx, DevStatus); err != nil {
		return moca.Registers{}, err
	}

	regs := moca.Registers{
		NetInfo: make(map[int][]string),
		FmrInfo: make(map[int][]string),
	}

	if regs.LocalInfo, err = s.Fetch(ctx, LocalInfo); err != nil {
		return moca.Registers{}, err
	}
	net, err := moca.DecodeNetwork(regs.LocalInfo)
	if err != nil {
		return moca.Registers{}, fmt.Errorf("%s: %w", host, err)
	}

	regs.MiscPhyInfo = f.fetchOptional(ctx, s, MiscPhyInfo)

	nodes := net.Nodes
	if !nodes.Contains(net.NodeID) {
		nodes = append(append(moca.NodeSet{}, nodes...), net.NodeID)
	}
	for _, id := range nodes {
		words, err := s.Fetch(ctx, NetInfo, id)
		if err != nil {
			return moca.Registers{}, err
		}
		regs.NetInfo[id] = words
	}

	if regs.MacInfo, err = f.fetchStatic(ctx, s, MacInfo, net.NodeID); err != nil {
		return moca.Registers{}, err
	}
	if regs.FrameInfo, err = s.Fetch(ctx, FrameInfo, 0); err != nil {
		return moca.Registers{}, err
	}
	if regs.Lof, err = s.Fetch(ctx, Lof); err != nil {
		return moca.Registers{}, err
	}
	if regs.IPAddr, err = s.Fetch(ctx, IPAddr); err != nil {
		return moca.Registers{}, err
	}
	if regs.ChipID, err = f.fetchStatic(ctx, s, ChipID); err != nil {
		return moca.Registers{}, err
	}
	regs.GPIO = f.fetchOptional(ctx, s, GPIO, 0)
	regs.MiscM25PhyInfo = f.fetchOptional(ctx, s, MiscM25PhyInfo)

	// The rate page issues a fresh token for the FMR requests.
	if err := s.Handshake(ctx, PhyRatesPage); err != nil {
		return moca.Registers{}, err
	}

	ncVer := moca.NCVersion(regs.NetInfo, net)
	for _, id := range net.Nodes {
		nodeVer, err := moca.NodeVersion(regs.NetInfo, id)
		if err != nil {
			logging.Warn("skipping FMR fetch for node with unreadable version",
				logging.Host(host), logging.NodeID(id), logging.Err(err))
			continue
		}
		words, err := s.Fetch(ctx, FmrInfo, 1<<id, moca.FMRRequestVersion(ncVer, nodeVer))
		if err != nil {
			return moca.Registers{}, err
		}
		regs.FmrInfo[id] = words
	}

	return regs, nil
}

// fetchStatic serves an endpoint from the cache when possible.
func (f *Fetcher) fetchStatic(ctx context.Context, s *Session, ep Endpoint, args ...int) ([]string, error) {
	if f.cache != nil {
		if words, ok := f.cache.Get(ctx, s.Host(), ep.Name); ok {
			return words, nil
		}
	}

	words, err := s.Fetch(ctx, ep, args...)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, s.Host(), ep.Name, words); err != nil {
			logging.Warn("failed to cache register", logging.Host(s.Host()), logging.Endpoint(ep.Name), logging.Err(err))
		}
	}
	return words, nil
}

// fetchOptional fetches a diagnostic page that nothing decodes.
func (f *Fetcher) fetchOptional(ctx context.Context, s *Session, ep Endpoint, args ...int) []string {
	words, err := s.Fetch(ctx, ep, args...)
	if err != nil {
		logging.Debug("diagnostic register unavailable", logging.Host(s.Host()), logging.Endpoint(ep.Name), logging.Err(err))
		return nil
	}
	return words
}
