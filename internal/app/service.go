// Package service owns the result store and scoring engine and exposes the
// ingest pipeline and queries used by the HTTP API and CLI.
package service

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/stagerank/internal/adapters/mq/queue"
	"github.com/okian/stagerank/internal/adapters/mq/worker"
	"github.com/okian/stagerank/internal/adapters/repository"
	"github.com/okian/stagerank/internal/adapters/source/cache"
	"github.com/okian/stagerank/internal/adapters/source/fetch"
	"github.com/okian/stagerank/internal/adapters/source/watch"
	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/internal/domain/scoring"
	"github.com/okian/stagerank/pkg/logger"
	"github.com/okian/stagerank/pkg/metrics"
)

// Service implements the API dependencies for stage results.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	engine *scoring.Engine

	// Sources
	fetcher fetch.Fetcher
	files   fetch.Fetcher
	cache   cache.Cache
	allow   *regexp.Regexp

	// Background ingest
	sources      []string
	pollInterval time.Duration
	watchFile    string
	workerCount  int
	queueSize    int
	jobs         queue.Queue
	pool         *worker.Pool
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	engineOpts []scoring.Option

	// State
	started    bool
	ingests    atomic.Int64
	lastIngest atomic.Value // IngestReport

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithStore replaces the in-memory result store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFetcher sets the fetcher used for addresses.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithFileFetcher sets the fetcher used for local paths.
func WithFileFetcher(f fetch.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.files = f
		}
	}
}

// WithCache sets the fetch cache consulted before every address fetch.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithAllowPattern restricts ingestable addresses to those matching re.
func WithAllowPattern(re *regexp.Regexp) Option {
	return func(s *Service) {
		s.allow = re
	}
}

// WithScoringOptions passes options to the scoring engine.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithSources sets the addresses polled every interval once started.
// An interval <= 0 ingests them once at start.
func WithSources(sources []string, interval time.Duration) Option {
	return func(s *Service) {
		s.sources = append([]string(nil), sources...)
		s.pollInterval = interval
	}
}

// WithWatchFile re-ingests path whenever it changes once started.
func WithWatchFile(path string) Option {
	return func(s *Service) {
		s.watchFile = path
	}
}

// WithWorkerCount sets the number of background ingest workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize sets the capacity of the background ingest queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// New constructs a Service. The global logger must be initialized unless
// WithLogger is given.
func New(opts ...Option) *Service {
	s := &Service{
		store:       repository.NewMemoryStore(),
		fetcher:     fetch.NewHTTPFetcher(),
		files:       fetch.FileFetcher{},
		cache:       cache.New(),
		workerCount: 2,
		queueSize:   64,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.With(logger.String("component", "service"))
	s.engine = scoring.NewEngine(s.store, s.engineOpts...)
	return s
}

// Start launches the ingest workers, the source poller and the file watcher.
// Queries and direct ingests work without Start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.jobs = q
	s.pool = worker.NewPool(s.workerCount, q, worker.HandlerFunc(s.HandleJob),
		worker.WithLogger(s.logger))
	s.pool.Start(runCtx)

	if len(s.sources) > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.poll(runCtx)
		}()
	}

	if s.watchFile != "" {
		s.enqueue(runCtx, model.JobFile, s.watchFile, "watch")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := watch.File(runCtx, s.watchFile, s.logger, func(ctx context.Context) error {
				metrics.RecordWatchReload()
				_, err := s.Submit(ctx, model.JobFile, s.watchFile, "watch")
				return err
			})
			if err != nil {
				s.logger.Error(runCtx, "file watcher stopped", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "stagerank service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("sources", len(s.sources)),
		logger.Duration("pollInterval", s.pollInterval),
		logger.String("watchFile", s.watchFile),
	)
	return nil
}

// Stop halts background ingest. Safe to call when not started.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, pool := s.cancel, s.pool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping stagerank service...")

	cancel()
	s.wg.Wait()
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.logger.Info(ctx, "stagerank service stopped")
}

// Submit queues a background ingest and returns the job id.
func (s *Service) Submit(ctx context.Context, kind model.JobKind, target, origin string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", ErrNotStarted
	}
	id, ok := s.enqueue(ctx, kind, target, origin)
	if !ok {
		return "", ErrQueueFull
	}
	return id, nil
}

// enqueue must be called with s.mu held.
func (s *Service) enqueue(ctx context.Context, kind model.JobKind, target, origin string) (string, bool) {
	j := model.IngestJob{ID: uuid.NewString(), Kind: kind, Target: target, Origin: origin}
	if !s.jobs.Enqueue(ctx, j) {
		s.logger.Warn(ctx, "ingest job dropped",
			logger.String("target", target),
			logger.String("origin", origin),
		)
		return "", false
	}
	return j.ID, true
}

// poll queues every source now and then every pollInterval.
func (s *Service) poll(ctx context.Context) {
	s.pollOnce(ctx)
	if s.pollInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	for _, src := range s.sources {
		if _, err := s.Submit(ctx, model.JobURL, src, "poll"); err != nil {
			s.logger.Warn(ctx, "poll submit failed", logger.String("address", src), logger.Error(err))
		}
	}
	metrics.RecordPollCycle()
}
