package verify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/pkg/logger"
)

const pageReadHeaderTimeout = 5 * time.Second

// Stats summarizes a verification run.
type Stats struct {
	MatchID           string        `json:"match_id"`
	Competitors       int           `json:"competitors"`
	Stages            int           `json:"stages"`
	RecordsIngested   int           `json:"records_ingested"`
	PartitionsChecked int           `json:"partitions_checked"`
	ResultsChecked    int           `json:"results_checked"`
	Problems          []string      `json:"problems,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// Run generates a match, serves it as a results page, has the API ingest it
// and checks every ranking the API then serves for it. A disagreement returns
// ErrMismatch along with the stats listing every problem.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	match := GenerateMatch(ctx, cfg)
	stats := &Stats{MatchID: match.ID, Competitors: len(match.Competitors), Stages: cfg.Stages}

	base, stop, err := servePage(ctx, cfg.ListenAddr, match)
	if err != nil {
		return nil, err
	}
	defer stop()

	report, err := client.Ingest(ctx, match.Address(base))
	if err != nil {
		return nil, fmt.Errorf("ingest synthetic match: %w", err)
	}
	if report.Skipped {
		return nil, fmt.Errorf("ingest of %s was skipped", match.ID)
	}
	stats.RecordsIngested = report.Records
	if want := len(match.Competitors) * cfg.Stages; report.Records != want {
		stats.Problems = append(stats.Problems, fmt.Sprintf("ingested %d records, want %d", report.Records, want))
	}
	if report.MatchID != match.ID {
		stats.Problems = append(stats.Problems, fmt.Sprintf("ingested as match %q, want %q", report.MatchID, match.ID))
	}

	for _, p := range match.Partitions() {
		got, err := client.StagesByClass(ctx, p.Class, p.Stage)
		if err != nil {
			return stats, fmt.Errorf("rankings of stage %d class %s: %w", p.Stage, p.Class, err)
		}
		got = onlyMatch(got, match.ID)
		stats.PartitionsChecked++
		stats.ResultsChecked += len(got)
		stats.Problems = append(stats.Problems, match.CheckPartition(p, got)...)
	}

	first := match.Competitors[0]
	got, err := client.StagesByCompetitor(ctx, first.Name)
	if err != nil {
		return stats, fmt.Errorf("stages of %q: %w", first.Name, err)
	}
	stats.Problems = append(stats.Problems, match.CheckCompetitor(first, got)...)

	stats.Duration = time.Since(start)
	log.Info(ctx, "verification finished",
		logger.String("match", stats.MatchID),
		logger.Int("records", stats.RecordsIngested),
		logger.Int("partitions", stats.PartitionsChecked),
		logger.Int("results", stats.ResultsChecked),
		logger.Int("problems", len(stats.Problems)),
		logger.Duration("duration", stats.Duration))

	return stats, mismatch(stats.Problems)
}

// onlyMatch drops results of other matches the API may also hold.
func onlyMatch(results []model.StageResult, matchID string) []model.StageResult {
	out := results[:0:0]
	for _, r := range results {
		if r.MatchID == matchID {
			out = append(out, r)
		}
	}
	return out
}

// servePage serves the match page on addr until stop is called and returns
// the base address it is reachable at.
func servePage(ctx context.Context, addr string, m *Match) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen for results page: %w", err)
	}

	page := m.HTML()
	mux := http.NewServeMux()
	mux.HandleFunc("/results/"+m.ID+"/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: pageReadHeaderTimeout}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error(ctx, "results page server failed", logger.Error(err))
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), pageReadHeaderTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return "http://" + ln.Addr().String(), stop, nil
}
