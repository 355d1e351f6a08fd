package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/database"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/handler"
	"github.com/mtlprog/kindroute/internal/memstore"
	"github.com/mtlprog/kindroute/internal/metrics"
	"github.com/mtlprog/kindroute/internal/middleware"
	"github.com/mtlprog/kindroute/internal/notify"
	"github.com/mtlprog/kindroute/internal/repository"
	"github.com/mtlprog/kindroute/internal/service"
)

// stores bundles the persistence backends selected by --store.
type stores struct {
	assignments service.AssignmentStore
	ledgers     service.LedgerStore
	outbox      notify.Outbox
	feed        service.NotificationStore
	ping        handler.HealthCheck
	close       func()
}

// openStores connects the configured backend and applies migrations.
func openStores(c *cli.Context) (*stores, error) {
	ctx := c.Context

	switch backend := c.String("store"); backend {
	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		mem := memstore.New()
		return &stores{
			assignments: mem,
			ledgers:     mem,
			outbox:      mem,
			feed:        mem,
			close:       func() {},
		}, nil

	case config.StorePostgres:
		databaseURL := c.String("database-url")
		if databaseURL == "" {
			return nil, errors.New("database-url is required for the postgres store")
		}

		db, err := database.New(ctx, databaseURL, database.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if _, err := database.RunMigrations(ctx, db.Pool()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		outbox := repository.NewOutboxRepository(db.Pool())
		return &stores{
			assignments: repository.NewTaskRepository(db.Pool()),
			ledgers:     repository.NewLedgerRepository(db.Pool()),
			outbox:      outbox,
			feed:        outbox,
			ping:        db.Ping,
			close:       db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", backend)
	}
}

// newDispatcher delivers through Redis when --redis-addr is set and logs
// notifications otherwise.
func newDispatcher(c *cli.Context) (notify.Dispatcher, handler.HealthCheck, func()) {
	logDispatcher := notify.NewLogDispatcher(slog.Default())

	addr := c.String("redis-addr")
	if addr == "" {
		return logDispatcher, nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: c.String("redis-password"),
		DB:       c.Int("redis-db"),
	})
	rd := notify.NewRedisDispatcher(client, c.String("email-queue"))

	dispatcher := notify.NewMultiDispatcher(map[domain.NotificationChannel]notify.Dispatcher{
		domain.ChannelInApp: rd,
		domain.ChannelEmail: rd,
	}, logDispatcher)

	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}

	slog.Info("redis dispatcher enabled", "addr", addr, "email_queue", c.String("email-queue"))
	return dispatcher, rd.HealthCheck, closeFn
}

func newWorker(c *cli.Context, outbox notify.Outbox, dispatcher notify.Dispatcher, m metrics.Collector) *notify.Worker {
	return notify.NewWorker(outbox, dispatcher, notify.WorkerConfig{
		Interval:    c.Duration("dispatch-interval"),
		Batch:       c.Int("dispatch-batch"),
		MaxAttempts: c.Int("dispatch-max-attempts"),
	}, notify.WithMetrics(m))
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	rules, err := config.LoadScoring(c.String("scoring-config"))
	if err != nil {
		return err
	}

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	dispatcher, redisPing, closeRedis := newDispatcher(c)
	defer closeRedis()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(reg, "kindroute")

	scoring := service.NewScoringService(st.ledgers, rules.Thresholds(), service.WithMetrics(collector))
	assignments := service.NewAssignmentService(st.assignments, scoring, rules, service.WithMetrics(collector))

	checks := map[string]handler.HealthCheck{}
	if st.ping != nil {
		checks["database"] = st.ping
	}
	if redisPing != nil {
		checks["redis"] = redisPing
	}

	h := handler.New(handler.Config{
		Assignments:   assignments,
		Scoring:       scoring,
		Notifications: service.NewNotificationService(st.feed),
		HealthChecks:  checks,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           middleware.NewRequestLogger(collector).Wrap(mux),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		newWorker(c, st.outbox, dispatcher, collector).Run(workerCtx)
	}()

	settleDone := make(chan struct{})
	go func() {
		defer close(settleDone)
		scoring.RunSettlement(workerCtx, c.Duration("award-settle-interval"), c.Duration("award-settle-grace"))
	}()

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port, "store", c.String("store"))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	stopWorker()
	<-workerDone
	<-settleDone

	slog.Info("server stopped")
	return nil
}

func runDispatch(c *cli.Context) error {
	if c.String("store") == config.StoreMemory {
		return errors.New("dispatch needs a shared store; the memory store only works inside serve")
	}

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	dispatcher, _, closeRedis := newDispatcher(c)
	defer closeRedis()

	worker := newWorker(c, st.outbox, dispatcher, metrics.NewNop())

	if c.Bool("once") {
		stats, err := worker.DrainOnce(c.Context)
		if err != nil {
			return fmt.Errorf("drain outbox: %w", err)
		}
		slog.Info("outbox drained",
			"claimed", stats.Claimed,
			"delivered", stats.Delivered,
			"retried", stats.Retried,
			"failed", stats.Failed,
		)
		return nil
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("dispatcher started", "interval", c.Duration("dispatch-interval"))
	worker.Run(ctx)
	slog.Info("dispatcher stopped")
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return errors.New("database-url is required")
	}

	db, err := database.New(ctx, databaseURL, database.Options{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, err := database.RunMigrations(ctx, db.Pool())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database is up to date", "version", version)
	return nil
}
