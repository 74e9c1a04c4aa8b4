// Package app wires the Beacon server runtime: config, logging, HTTP routes,
// the realtime gateway, and the optional delivery-log collaborator.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"beacon/cmd/internal/auth"
	"beacon/cmd/internal/deliverylog"
	"beacon/cmd/internal/presence"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the Beacon server runtime: it owns HTTP server wiring, the presence
// core, and the delivery-log consumer lifecycle.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	notifier *presence.Notifier
	ws       *presence.WSGateway
	consumer *deliverylog.Consumer
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	verifier, err := newVerifier(cfg, log)
	if err != nil {
		return nil, err
	}

	dbPool, recorder, dbEnabled, err := newRecorder(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	notifier := presence.NewNotifier(log, cfg.NotifyBuffer)
	dir := presence.NewDirectory(log)
	relay := presence.NewRelay(log, dir, notifier)
	ws := presence.NewWSGateway(log, dir, relay, verifier)

	consumer := deliverylog.NewConsumer(log, recorder, 2*time.Second)

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		notifier:  notifier,
		ws:        ws,
		consumer:  consumer,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.consumer.Run(consumerCtx, a.notifier.Events())
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		if runErr == nil {
			runErr = err
		}
	}

	stopConsumer()
	wg.Wait()

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return runErr
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newVerifier selects the token verifier for the identity handoff.
func newVerifier(cfg Config, log Logger) (presence.TokenVerifier, error) {
	if cfg.TokenHMACKey == "" {
		log.Warn("auth.dev_verifier", "msg", "BEACON_TOKEN_HMAC_KEY not set; accepting user:<id> tokens")
		return auth.DevVerifier{}, nil
	}
	return auth.NewJWTVerifier([]byte(cfg.TokenHMACKey))
}

// newRecorder decides between Postgres-backed delivery log and log-only mode.
func newRecorder(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, deliverylog.Recorder, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.log_recorder")
		return nil, deliverylog.LogRecorder{Log: log}, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	rec, err := deliverylog.NewPostgresRecorder(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}
	if err := rec.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_recorder")
	return pool, rec, true, nil
}
