package daemon

import (
	"sort"
	"sync"

	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// SnapshotStore keeps the latest snapshot per host. Snapshots are never
// modified after Put, so readers share the pointers.
type SnapshotStore struct {
	mu    sync.RWMutex
	hosts map[string]*models.HostSnapshot
}

// NewSnapshotStore creates an empty store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{hosts: make(map[string]*models.HostSnapshot)}
}

// Put replaces the snapshot of snap.Host
func (s *SnapshotStore) Put(snap *models.HostSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts[snap.Host] = snap
}

// Get returns the latest snapshot of host
func (s *SnapshotStore) Get(host string) (*models.HostSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.hosts[host]
	return snap, ok
}

// All returns every snapshot ordered by host
func (s *SnapshotStore) All() []*models.HostSnapshot {
	s.mu.RLock()
	out := make([]*models.HostSnapshot, 0, len(s.hosts))
	for _, snap := range s.hosts {
		out = append(out, snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}
