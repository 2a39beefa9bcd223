// Package service assembles the match core, its store and its outbound
// notifier from configuration, and exposes the HTTP surface over them.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sbwgg/Checker-bot/internal/adapters/gateway"
	"github.com/sbwgg/Checker-bot/internal/adapters/http/api"
	eventqueue "github.com/sbwgg/Checker-bot/internal/adapters/mq/queue"
	workerpool "github.com/sbwgg/Checker-bot/internal/adapters/mq/worker"
	"github.com/sbwgg/Checker-bot/internal/adapters/store"
	"github.com/sbwgg/Checker-bot/internal/adapters/store/memory"
	"github.com/sbwgg/Checker-bot/internal/adapters/store/pgstore"
	"github.com/sbwgg/Checker-bot/internal/adapters/store/redisstore"
	"github.com/sbwgg/Checker-bot/internal/config"
	"github.com/sbwgg/Checker-bot/internal/domain/dedupe"
	"github.com/sbwgg/Checker-bot/internal/domain/manager"
	"github.com/sbwgg/Checker-bot/internal/domain/rating"
	"github.com/sbwgg/Checker-bot/pkg/logger"
	"github.com/sbwgg/Checker-bot/pkg/metrics"
)

// ErrNotStarted is returned by accessors used before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns every long-lived component of the match core.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	// Core components
	store      store.Store
	jobs       *eventqueue.InMemoryQueue
	notifier   *workerpool.Pool
	manager    *manager.Manager
	handler    http.Handler
	stopWorker context.CancelFunc

	// Overrides
	backend store.Store
	gateway workerpool.Gateway

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the configured store backend.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.backend = st
		}
	}
}

// WithGateway replaces the configured notice gateway.
func WithGateway(g workerpool.Gateway) Option {
	return func(s *Service) {
		if g != nil {
			s.gateway = g
		}
	}
}

// New constructs a Service for cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start opens the store and starts the notifier and the match manager.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting match service...",
		logger.String("store", s.cfg.StoreBackend),
	)

	maps, err := s.cfg.Maps()
	if err != nil {
		return fmt.Errorf("map pool: %w", err)
	}

	backend, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = store.Instrument(s.cfg.StoreBackend, backend)

	g, err := s.openGateway()
	if err != nil {
		_ = s.store.Close()
		return err
	}

	s.jobs = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.QueueSize))
	s.notifier = workerpool.NewPool(s.cfg.WorkerCount, s.jobs, g, s.store,
		workerpool.WithLogger(s.logger.Named("notifier")),
	)

	// The notifier outlives the caller's context so Stop can drain it.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWorker = cancel
	s.notifier.Start(workerCtx)

	s.manager = manager.New(s.store, s.jobs,
		manager.WithLogger(s.logger.Named("manager")),
		manager.WithCalculator(rating.NewCalculator(
			rating.WithKFactor(s.cfg.RatingKFactor),
			rating.WithFloor(s.cfg.RatingFloor),
		)),
		manager.WithRecorder(dedupe.NewRecorder(dedupe.WithMaxSize(s.cfg.DedupeSize))),
		manager.WithTeamSize(s.cfg.TeamSize),
		manager.WithMapPool(maps),
		manager.WithMapCandidates(s.cfg.MapCandidates),
		manager.WithMapWindow(s.cfg.MapVoteWindow()),
	)

	s.handler = api.NewServer(s.manager, s.store,
		api.WithLogger(s.logger.Named("api")),
		api.WithMaxLimit(s.cfg.MaxLadderLimit),
		api.WithDefaultRating(s.cfg.DefaultRating),
	).Router()

	s.started = true
	s.logger.Info(ctx, "match service started",
		logger.Int("workers", s.notifier.Size()),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Int("teamSize", s.cfg.TeamSize),
		logger.Int("maps", len(maps)),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (store.Store, error) {
	if s.backend != nil {
		return s.backend, nil
	}
	switch s.cfg.StoreBackend {
	case config.BackendRedis:
		st, err := redisstore.Connect(ctx, s.cfg.RedisAddr, s.cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return st, nil
	case config.BackendPostgres:
		st, err := pgstore.Connect(ctx, s.cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	default:
		return memory.New(), nil
	}
}

func (s *Service) openGateway() (workerpool.Gateway, error) {
	if s.gateway != nil {
		return s.gateway, nil
	}
	if s.cfg.WebhookURL == "" {
		return gateway.NewLog(s.logger.Named("gateway")), nil
	}
	w, err := gateway.NewWebhook(s.cfg.WebhookURL, gateway.WithTimeout(s.cfg.WebhookTimeout()))
	if err != nil {
		return nil, fmt.Errorf("webhook gateway: %w", err)
	}
	return w, nil
}

// Stop drains settlements, then the notifier, then closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping match service...")

	var errs []error
	if err := s.manager.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop manager: %w", err))
	}
	if err := s.notifier.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop notifier: %w", err))
	}
	s.stopWorker()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "match service stopped")
	return errors.Join(errs...)
}

// Handler returns the HTTP surface, or ErrNotStarted.
func (s *Service) Handler() (http.Handler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.handler, nil
}

// Manager returns the match manager, or ErrNotStarted.
func (s *Service) Manager() (*manager.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.manager, nil
}

// Store returns the instrumented player store, or ErrNotStarted.
func (s *Service) Store() (store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"store":       s.cfg.StoreBackend,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.jobs.Len()
	stats["workerCount"] = s.notifier.Size()
	stats["queueLength"] = queueLen
	metrics.UpdateQueueSize(queueLen)

	if ms, err := s.manager.Stats(ctx); err == nil {
		stats["activeMatches"] = ms.ActiveMatches
		stats["registeredPlayers"] = ms.RegisteredPlayers
		stats["pendingSettlement"] = ms.PendingSettlement
		metrics.UpdateActiveMatches(ms.ActiveMatches)
		metrics.UpdateRegisteredPlayers(ms.RegisteredPlayers)
	}
	return stats
}
