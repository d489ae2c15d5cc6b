// Package service composes the store, the award evaluator, the import
// ledger and the outbound integrations into the dependencies the HTTP API needs.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/adapters/strava"
	"github.com/okian/logbook/internal/domain/awards"
	"github.com/okian/logbook/internal/domain/ledger"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
)

// Delete policies.
const (
	DeleteRetain  = "retain"
	DeleteCascade = "cascade"
)

// Publisher emits domain events. A nil Publisher disables events.
type Publisher interface {
	awards.Notifier
	ReportSummary(ctx context.Context, r model.Report) error
	Close() error
}

// Service implements the API dependencies for the logbook.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	evaluator *awards.Evaluator
	ledger    *ledger.Ledger
	publisher Publisher
	strava    *strava.Client

	// Configuration
	userID       int64
	deletePolicy string
	seed         bool
	catalog      []model.AwardDefinition
	now          func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithUserID sets the user whose awards are evaluated and reported.
func WithUserID(id int64) Option {
	return func(s *Service) {
		if id > 0 {
			s.userID = id
		}
	}
}

// WithDeletePolicy selects retain or cascade behaviour for activity deletes.
func WithDeletePolicy(policy string) Option {
	return func(s *Service) {
		if policy == DeleteRetain || policy == DeleteCascade {
			s.deletePolicy = policy
		}
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithStrava enables the Strava relay.
func WithStrava(c *strava.Client) Option {
	return func(s *Service) {
		s.strava = c
	}
}

// WithCatalog seeds defs into an empty award table on Start.
func WithCatalog(defs []model.AwardDefinition) Option {
	return func(s *Service) {
		s.catalog = defs
		s.seed = true
	}
}

// WithClock overrides the clock used for award dates and reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		userID:       1,
		deletePolicy: DeleteRetain,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires the domain components and seeds the award catalog.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	evalOpts := []awards.Option{
		awards.WithClock(s.now),
		awards.WithLogger(s.logger.Named("awards")),
	}
	if s.publisher != nil {
		evalOpts = append(evalOpts, awards.WithNotifier(s.publisher))
	}
	s.evaluator = awards.NewEvaluator(s.store, evalOpts...)
	s.ledger = ledger.New(s.store, ledger.WithLogger(s.logger.Named("ledger")))

	if s.seed {
		n, err := awards.Seed(ctx, s.store, s.catalog)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info(ctx, "award catalog seeded", logger.Int("awards", n))
		}
	}

	s.started = true
	s.logger.Info(ctx, "logbook service started",
		logger.Int64("user_id", s.userID),
		logger.String("delete_policy", s.deletePolicy),
		logger.Bool("events", s.publisher != nil),
		logger.Bool("strava", s.strava != nil),
	)
	return nil
}

// Stop releases the publisher and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn(ctx, "closing publisher", logger.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "logbook service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// UserID is the user the service evaluates awards for.
func (s *Service) UserID() int64 { return s.userID }
