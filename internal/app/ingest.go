package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/stagerank/internal/adapters/repository"
	"github.com/okian/stagerank/internal/adapters/source/extract"
	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/internal/domain/normalize"
	"github.com/okian/stagerank/pkg/logger"
	"github.com/okian/stagerank/pkg/metrics"
)

// IngestReport describes one ingest call.
type IngestReport struct {
	BatchID string    `json:"batch_id,omitempty"`
	MatchID string    `json:"match_id,omitempty"`
	Source  string    `json:"source,omitempty"`
	Records int       `json:"records"`
	Skipped bool      `json:"skipped"`
	At      time.Time `json:"at"`
}

// Ingest normalizes raw tables and commits them as one batch. A malformed
// input or invalid record leaves the store untouched.
func (s *Service) Ingest(ctx context.Context, matchID string, tables [][][]string) (IngestReport, error) {
	if strings.TrimSpace(matchID) == "" {
		metrics.RecordIngestError("missing_match_id")
		return IngestReport{}, ErrMissingMatchID
	}

	records, err := normalize.Normalize(matchID, tables)
	if err != nil {
		metrics.RecordIngestError("malformed_input")
		s.logger.Warn(ctx, "rejecting malformed results",
			logger.String("matchId", matchID),
			logger.Error(err),
		)
		return IngestReport{}, fmt.Errorf("normalize %s: %w", matchID, err)
	}

	report := IngestReport{
		BatchID: uuid.NewString(),
		MatchID: matchID,
		Records: len(records),
		At:      time.Now().UTC(),
	}

	if err := s.store.Upsert(ctx, records); err != nil {
		metrics.RecordIngestError(ingestErrorKind(err))
		s.logger.Error(ctx, "store rejected batch",
			logger.String("batchId", report.BatchID),
			logger.String("matchId", matchID),
			logger.Error(err),
		)
		return IngestReport{}, fmt.Errorf("store batch %s: %w", report.BatchID, err)
	}

	metrics.RecordIngest(len(records))
	s.ingests.Add(1)
	s.lastIngest.Store(report)
	s.logger.Info(ctx, "results ingested",
		logger.String("batchId", report.BatchID),
		logger.String("matchId", matchID),
		logger.Int("records", len(records)),
	)
	return report, nil
}

// IngestURL fetches a results page and ingests it. A request for an address
// fetched within the cooldown is skipped and reported as such.
func (s *Service) IngestURL(ctx context.Context, address string) (IngestReport, error) {
	address = strings.TrimSpace(address)
	if err := s.checkAddress(address); err != nil {
		metrics.RecordIngestError("address")
		return IngestReport{}, err
	}

	if !s.cache.ShouldFetch(ctx, address) {
		s.logger.Debug(ctx, "address cooling down, skipping", logger.String("address", address))
		return IngestReport{Source: address, Skipped: true, At: time.Now().UTC()}, nil
	}

	body, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		s.cache.Forget(ctx, address)
		metrics.RecordIngestError("fetch")
		s.logger.Warn(ctx, "fetch failed", logger.String("address", address), logger.Error(err))
		return IngestReport{}, fmt.Errorf("fetch %s: %w", address, err)
	}

	report, err := s.ingestDocument(ctx, address, "", body)
	if err != nil {
		return IngestReport{}, err
	}
	report.Source = address
	return report, nil
}

// IngestFile reads a local results document and ingests it. The match id
// comes from the document heading, or else the file name.
func (s *Service) IngestFile(ctx context.Context, path string) (IngestReport, error) {
	body, err := s.files.Fetch(ctx, path)
	if err != nil {
		metrics.RecordIngestError("fetch")
		return IngestReport{}, fmt.Errorf("read %s: %w", path, err)
	}

	report, err := s.ingestDocument(ctx, "", path, body)
	if err != nil {
		return IngestReport{}, err
	}
	report.Source = path
	return report, nil
}

// HandleJob runs a queued ingest job.
func (s *Service) HandleJob(ctx context.Context, j model.IngestJob) error {
	var (
		report IngestReport
		err    error
	)
	switch j.Kind {
	case model.JobURL:
		report, err = s.IngestURL(ctx, j.Target)
	case model.JobFile:
		report, err = s.IngestFile(ctx, j.Target)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobKind, j.Kind)
	}
	if err != nil {
		return err
	}
	s.logger.Debug(ctx, "job ingested",
		logger.String("job", j.ID),
		logger.String("origin", j.Origin),
		logger.Int("records", report.Records),
		logger.Bool("skipped", report.Skipped),
	)
	return nil
}

func (s *Service) ingestDocument(ctx context.Context, address, path string, body []byte) (IngestReport, error) {
	doc, err := extract.Parse(bytes.NewReader(body))
	if err != nil {
		metrics.RecordIngestError("extract")
		return IngestReport{}, err
	}
	matchID, err := extract.MatchID(address, path, doc)
	if err != nil {
		metrics.RecordIngestError("missing_match_id")
		return IngestReport{}, fmt.Errorf("%w: %w", ErrMissingMatchID, err)
	}
	return s.Ingest(ctx, matchID, doc.Tables)
}

func (s *Service) checkAddress(address string) error {
	u, err := url.ParseRequestURI(address)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if s.allow != nil && !s.allow.MatchString(address) {
		return fmt.Errorf("%w: %q", ErrAddressNotAllowed, address)
	}
	return nil
}

func ingestErrorKind(err error) string {
	if errors.Is(err, repository.ErrInvalidRecord) {
		return "invalid_record"
	}
	return "store"
}
