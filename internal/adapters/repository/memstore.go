package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/pkg/metrics"
)

const defaultCapacity = 256

// MemoryStore is an in-memory Store.
//
// Records are kept in source order: a new key is appended, a replaced key keeps
// its slot. Writers hold the exclusive lock for a whole batch, so readers only
// ever observe fully applied batches.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []model.ResultRecord
	index    map[model.RecordKey]int
	capacity int
}

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.records = make([]model.ResultRecord, 0, s.capacity)
	s.index = make(map[model.RecordKey]int, s.capacity)
	return s
}

// Upsert implements Store.Upsert.
func (s *MemoryStore) Upsert(ctx context.Context, records []model.ResultRecord) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpsertLatency(float64(time.Since(start).Milliseconds()))
	}()

	for i := range records {
		if err := validate(records[i]); err != nil {
			metrics.RecordErrorByComponent("repository", "invalid_record")
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	s.mu.Lock()
	for _, r := range records {
		key := r.Key()
		if at, ok := s.index[key]; ok {
			s.records[at] = r
			continue
		}
		s.index[key] = len(s.records)
		s.records = append(s.records, r)
	}
	n := len(s.records)
	s.mu.Unlock()

	metrics.UpdateStoreRecords(n)
	return nil
}

func validate(r model.ResultRecord) error {
	switch {
	case r.CompetitorName == "":
		return fmt.Errorf("%w: empty competitor name", ErrInvalidRecord)
	case r.Stage < 1:
		return fmt.Errorf("%w: stage %d", ErrInvalidRecord, r.Stage)
	case math.IsNaN(r.HitFactor) || math.IsInf(r.HitFactor, 0):
		return fmt.Errorf("%w: non-finite hit factor", ErrInvalidRecord)
	case r.HitFactor < 0:
		return fmt.Errorf("%w: negative hit factor", ErrInvalidRecord)
	case math.IsNaN(r.Time) || math.IsInf(r.Time, 0):
		return fmt.Errorf("%w: non-finite time", ErrInvalidRecord)
	case r.Time < 0:
		return fmt.Errorf("%w: negative time", ErrInvalidRecord)
	}
	return nil
}

// Scan implements Store.Scan. The returned slice is a copy.
func (s *MemoryStore) Scan(ctx context.Context, f model.Filter) []model.ResultRecord {
	start := time.Now()
	defer func() {
		metrics.RecordStoreScanLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ResultRecord, 0)
	for _, r := range s.records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Classes implements Store.Classes. Classes are returned sorted.
func (s *MemoryStore) Classes(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.records {
		seen[r.CompetitorClass] = struct{}{}
	}
	return sortedKeys(seen)
}

// Competitors implements Store.Competitors. Names are returned sorted.
func (s *MemoryStore) Competitors(ctx context.Context, class string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.records {
		if r.CompetitorClass == class {
			seen[r.CompetitorName] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset implements Store.Reset.
func (s *MemoryStore) Reset(ctx context.Context) {
	s.mu.Lock()
	s.records = make([]model.ResultRecord, 0, s.capacity)
	s.index = make(map[model.RecordKey]int, s.capacity)
	s.mu.Unlock()

	metrics.UpdateStoreRecords(0)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
