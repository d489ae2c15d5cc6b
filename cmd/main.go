package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/logbook/internal/adapters/http/api"
	"github.com/okian/logbook/internal/adapters/http/site"
	"github.com/okian/logbook/internal/adapters/http/swagger"
	"github.com/okian/logbook/internal/adapters/mq/publisher"
	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/adapters/strava"
	service "github.com/okian/logbook/internal/app"
	"github.com/okian/logbook/internal/config"
	"github.com/okian/logbook/internal/domain/awards"
	"github.com/okian/logbook/pkg/logger"
	"github.com/okian/logbook/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 30 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	memoryEventCapacity   = 1000
)

func main() {
	// Default collectors duplicate the custom system gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "logbook exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, api.WithMaxUploadBytes(cfg.MaxUploadBytes)).Register(ctx, mux)

	handler := api.CORSMiddleware(api.RequestMiddleware(mux, log), cfg.CORSOrigin)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreEngine))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the store, catalog, publisher and Strava client from cfg.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	dsn := cfg.SQLitePath
	if cfg.StoreEngine == config.EnginePostgres {
		dsn = cfg.PostgresURL
	}
	store, err := repository.NewByEngine(ctx, cfg.StoreEngine, dsn, repository.WithLogger(log.Named("store")))
	if err != nil {
		return nil, err
	}

	var writer publisher.MessageWriter
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		writer = publisher.NewKafkaProducer(brokers)
		log.Info(ctx, "publishing events to kafka", logger.Any("brokers", brokers))
	} else {
		writer = publisher.NewMemoryWriter(memoryEventCapacity)
	}
	pub := publisher.New(writer,
		publisher.WithTopics(cfg.AwardTopic, cfg.ReportTopic),
		publisher.WithLogger(log.Named("publisher")),
	)

	opts := []service.Option{
		service.WithUserID(cfg.UserID),
		service.WithDeletePolicy(cfg.DeletePolicy),
		service.WithPublisher(pub),
		service.WithLogger(log.Named("service")),
	}
	if cfg.SeedAwards {
		defs, err := awards.LoadCatalog(cfg.AwardCatalog)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, service.WithCatalog(defs))
	}
	if cfg.StravaClientID != "" {
		opts = append(opts, service.WithStrava(strava.NewClient(
			cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaRedirectURL,
			strava.WithAPIURL(cfg.StravaAPIURL),
			strava.WithTokenURL(cfg.StravaTokenURL),
			strava.WithLogger(log.Named("strava")),
		)))
	}
	return service.New(store, opts...), nil
}

func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateSystemMetrics()
		}
	}
}
