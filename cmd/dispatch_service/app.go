package dispatchservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-pool/internal/domain/cluster"
	"ride-pool/internal/general/cache"
	"ride-pool/internal/general/config"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/metrics"
	"ride-pool/internal/general/postgres"
	"ride-pool/internal/general/rabbitmq"
	"ride-pool/internal/ports"
	"ride-pool/internal/software/dispatch"
)

// Overrides are the CLI flag values layered on top of the loaded
// configuration. Zero values keep whatever the config file or environment
// provided.
type Overrides struct {
	IntervalSeconds int
	MinClusterSize  int
	DBSCANEps       float64
	DBSCANMinSample int
}

func (o Overrides) apply(cfg *config.Config) {
	if o.IntervalSeconds > 0 {
		cfg.Dispatch.IntervalSeconds = o.IntervalSeconds
	}
	if o.MinClusterSize > 0 {
		cfg.Dispatch.MinClusterSize = o.MinClusterSize
	}
	if o.DBSCANEps > 0 {
		cfg.Dispatch.DBSCANEps = o.DBSCANEps
	}
	if o.DBSCANMinSample > 0 {
		cfg.Dispatch.DBSCANMinSamples = o.DBSCANMinSample
	}
}

// Run wires the dispatch service and blocks until ctx is cancelled. The
// returned error is non-nil only for fatal configuration or startup
// failures; round-level errors are logged by the scheduler and retried.
func Run(ctx context.Context, overrides Overrides) error {
	logger := logger.New("dispatch-service")

	// load config from file/env, then layer the CLI flags on top
	cfg, err := config.Load()
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	overrides.apply(cfg)

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ for the notification pipeline
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// the retry registry: process-local map by default, shared Redis
	// ledger when several dispatchers sit behind one store
	clock := dispatch.SystemClock{}
	var retries ports.RetryRegistry
	switch cfg.Dispatch.RetryBackend {
	case "redis":
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis retry ledger", err, nil)
			return err
		}
		defer rdb.Close()
		retries = cache.NewRetryLedger(rdb, cfg.Dispatch.RetryCooldown(), logger)
	default:
		retries = dispatch.NewMemoryRetryLedger(cfg.Dispatch.RetryCooldown(), clock)
	}

	// the clustering pipeline
	clusterer, err := cluster.New(cluster.Params{
		Backend:        cfg.Dispatch.ClusterBackend,
		MinClusterSize: cfg.Dispatch.MinClusterSize,
		Eps:            cfg.Dispatch.DBSCANEps,
		MinSamples:     cfg.Dispatch.DBSCANMinSamples,
	}, nil)
	if err != nil {
		logger.Error(ctx, "clusterer_init_failed", "Failed to build the clusterer", err, nil)
		return err
	}

	// set up the necessary repos and the engine
	uow := postgres.NewUnitOfWork(pool)
	requestRepo := postgres.NewRequestRepo()
	tripRepo := postgres.NewTripRepo()
	bookingRepo := postgres.NewBookingRepo()
	deliveryRepo := postgres.NewDeliveryRepo()
	eventRepo := postgres.NewTripEventRepo()
	registry := postgres.NewDriverRegistry()
	notifier := rabbitmq.NewNotifier(rmq)
	collectors := metrics.New()

	svc := dispatch.NewService(
		logger, uow, requestRepo, tripRepo, bookingRepo, deliveryRepo,
		eventRepo, registry, notifier, clock, retries, clusterer, collectors,
		dispatch.Params{
			Interval:       cfg.Dispatch.Interval(),
			RoundDeadline:  cfg.Dispatch.RoundDeadline(),
			MinClusterSize: cfg.Dispatch.MinClusterSize,
			MaxDetourKM:    cfg.Dispatch.MaxDetourKM,
			ProximityKM:    cfg.Dispatch.ProximityThresholdKM(),
			TimeWindow:     cfg.Dispatch.TimeWindow(),
			PricePerSeat:   cfg.Dispatch.DefaultPricePerSeat,
			DynamicPricing: cfg.Dispatch.DynamicPricing,
		},
	)

	// ops listener: health probe and Prometheus metrics
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", collectors.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Ops.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Dispatch Service started, ops listener on port %d", cfg.Ops.Port),
		map[string]any{
			"ops_port":         cfg.Ops.Port,
			"interval_seconds": cfg.Dispatch.IntervalSeconds,
			"min_cluster_size": cfg.Dispatch.MinClusterSize,
			"cluster_backend":  cfg.Dispatch.ClusterBackend,
			"retry_backend":    cfg.Dispatch.RetryBackend,
			"dynamic_pricing":  cfg.Dispatch.DynamicPricing,
		},
	)

	// start the ops server in a background goroutine
	httpErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErr <- err
			return
		}
		httpErr <- nil
	}()

	// drive the scheduler loop; it returns once ctx is cancelled and the
	// in-flight round has finished or rolled back
	schedDone := make(chan error, 1)
	go func() {
		schedDone <- svc.RunScheduler(ctx)
	}()

	// wait for shutdown or a terminal ops-server error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			logger.Error(ctx, "ops_server_error", "Ops listener terminated with error", err, map[string]any{"port": cfg.Ops.Port})
			return err
		}
	}

	// graceful teardown: stop the ops listener, let the round drain
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
		logger.Error(ctx, "ops_shutdown_failed", "Failed to gracefully shut down ops listener", err, nil)
	}

	select {
	case err := <-schedDone:
		if err != nil {
			logger.Error(ctx, "scheduler_error", "Scheduler terminated with error", err, nil)
			return err
		}
	case <-time.After(cfg.Dispatch.RoundDeadline() + 5*time.Second):
		logger.Warn(ctx, "scheduler_drain_timeout", "In-flight round did not drain before the deadline", nil)
	}

	logger.Info(ctx, "service_stopped", "Dispatch Service stopped", nil)
	return nil
}

// handleHealth returns a minimal JSON health status payload.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type resp struct {
		Status string `json:"status"`
	}
	_ = json.NewEncoder(w).Encode(resp{Status: "ok"})
}
