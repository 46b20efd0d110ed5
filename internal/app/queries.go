package service

import (
	"context"

	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/pkg/metrics"
)

// ListClasses returns the distinct competitor classes, sorted.
func (s *Service) ListClasses(ctx context.Context) []string {
	return s.store.Classes(ctx)
}

// ListCompetitors returns the competitors of class, sorted.
func (s *Service) ListCompetitors(ctx context.Context, class string) []string {
	return s.store.Competitors(ctx, class)
}

// StagesByCompetitor returns the named competitor's ranked stage results.
func (s *Service) StagesByCompetitor(ctx context.Context, name string) []model.StageResult {
	return s.engine.StagesByCompetitor(ctx, name)
}

// StagesByCompetitorNumber looks a competitor up by start number.
func (s *Service) StagesByCompetitorNumber(ctx context.Context, number string) []model.StageResult {
	return s.engine.StagesByCompetitorNumber(ctx, number)
}

// StagesByClass returns one class's results on one stage in rank order.
func (s *Service) StagesByClass(ctx context.Context, class string, stage int) []model.StageResult {
	return s.engine.StagesByClass(ctx, class, stage)
}

// Reset drops every stored record. The fetch cache is kept.
func (s *Service) Reset(ctx context.Context) {
	s.store.Reset(ctx)
	s.logger.Info(ctx, "result store reset")
}

// Stats is a monitoring snapshot.
type Stats struct {
	Started      bool          `json:"started"`
	Records      int           `json:"records"`
	Classes      int           `json:"classes"`
	Ingests      int64         `json:"ingests"`
	CacheEntries int           `json:"cache_entries"`
	QueueLength  int           `json:"queue_length"`
	LastIngest   *IngestReport `json:"last_ingest,omitempty"`
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	started := s.started
	jobs := s.jobs
	s.mu.RUnlock()

	st := Stats{
		Started:      started,
		Records:      s.store.Count(ctx),
		Classes:      len(s.store.Classes(ctx)),
		Ingests:      s.ingests.Load(),
		CacheEntries: s.cache.Len(),
	}
	if started && jobs != nil {
		st.QueueLength = jobs.Len(ctx)
	}
	if last, ok := s.lastIngest.Load().(IngestReport); ok {
		st.LastIngest = &last
	}

	metrics.UpdateStoreRecords(st.Records)
	metrics.UpdateCacheEntries(st.CacheEntries)
	return st
}
