// Package app wires the console runtime: config, logging, metrics, the session
// store and its gate, the backend client, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	authapi "methodius/cmd/internal/auth/api"
	"methodius/cmd/internal/auth/gate"
	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/auth/storage"
	"methodius/cmd/internal/backend"
	"methodius/cmd/internal/management"
	"methodius/cmd/internal/realtime"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the process-wide session and everything serving it.
type App struct {
	cfg Config
	log *slog.Logger

	store    storage.Backend
	sessions *session.Store
	api      *backend.Client
	gate     *gate.Gate
	metrics  *Metrics
	dbPool   *pgxpool.Pool

	auth  *authapi.Handler
	views *management.Handler
	svc   *management.Service
	hub   *realtime.Hub
	feed  *realtime.WSGateway

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option customises New.
type Option func(*options)

type options struct {
	store storage.Backend
}

// WithStorage replaces the configured credential storage.
func WithStorage(st storage.Backend) Option {
	return func(o *options) { o.store = st }
}

// New builds a fully wired App from cfg and the subsystem environment.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	storeCfg, err := storage.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}
	if o.store == nil {
		if err := ValidateSecurityConfig(cfg, storeCfg); err != nil {
			return nil, err
		}
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	backendCfg, err := backend.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	mgmtCfg, err := management.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("management config: %w", err)
	}

	a := &App{cfg: cfg, log: log, metrics: NewMetrics()}

	a.api, err = backend.New(backendCfg, log, backend.WithObserver(a.metrics.ObserveBackend))
	if err != nil {
		return nil, err
	}

	a.store = o.store
	if a.store == nil {
		a.store, err = storage.Open(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		log.Info("storage.open", "kind", string(storeCfg.Kind), "path", storeCfg.Path, "sealed", len(storeCfg.Key) > 0)
	}

	a.sessions = session.New(sessCfg, directory{api: a.api}, a.store, log)

	policy := gate.IgnoreRoles
	if cfg.EnforceRoles {
		policy = gate.PrivilegedRoles
	}
	a.gate = gate.New(a.sessions,
		gate.WithRolePolicy(policy),
		gate.WithObserver(a.metrics.ObserveGate),
		gate.WithLogger(log),
	)

	authOpts := []authapi.HandlerOption{authapi.WithLoginObserver(a.metrics.ObserveLogin)}
	if cfg.DatabaseURL != "" {
		a.dbPool, err = NewDBPool(ctx, cfg)
		if err != nil {
			a.closeResources()
			return nil, err
		}
		if err := EnsureAuditSchema(ctx, a.dbPool); err != nil {
			a.closeResources()
			return nil, err
		}
		authOpts = append(authOpts, authapi.WithAuditSink(authapi.PostgresAudit{Pool: a.dbPool, Log: log}))
		log.Info("db.enabled.audit")
	}

	a.auth, err = authapi.NewHandler(log, authapi.LoadConfigFromEnv(), a.api, a.sessions, a.gate, authOpts...)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	a.svc, err = management.NewService(a.api, mgmtCfg, log)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	a.views, err = management.NewHandler(log, a.svc, a.sessions, a.gate)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	a.hub = realtime.NewHub(log, a.sessions)
	a.feed = realtime.NewWSGateway(log, a.hub, realtime.LoadConfigFromEnv())
	a.metrics.TrackFeedClients(a.hub.Count)
	a.metrics.SetSessionState(a.sessions.Snapshot().State)

	return a, nil
}

// Sessions exposes the process-wide session store.
func (a *App) Sessions() *session.Store { return a.sessions }

// Start launches the background work: the feed hub, the session watcher,
// and the startup re-validation. It is idempotent and returns immediately;
// requests served before the re-validation settles see the gate's loading state.
func (a *App) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		// Subscribe before CheckAuth so no transition is missed.
		changes, cancel := a.sessions.Subscribe()

		a.wg.Add(3)
		go func() {
			defer a.wg.Done()
			a.hub.Run(ctx)
		}()
		go func() {
			defer a.wg.Done()
			defer cancel()
			a.watchSession(ctx, changes)
		}()
		go func() {
			defer a.wg.Done()
			snap := a.sessions.CheckAuth(ctx)
			a.log.Info("session.startup", "state", string(snap.State), "privileged", snap.IsPrivileged())
		}()
	})
}

// watchSession keeps the state gauge current and drops cached collections
// when a session ends.
func (a *App) watchSession(ctx context.Context, changes <-chan session.Snapshot) {
	prev := a.sessions.Snapshot().State
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-changes:
			a.metrics.SetSessionState(snap.State)
			if snap.State == session.StateUnauthenticated && prev != session.StateUnauthenticated {
				a.svc.Purge()
			}
			prev = snap.State
		}
	}
}

// Run starts the HTTP server and blocks until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.Start(ctx)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(a.log.Handler(), slog.LevelWarn),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "audit_db", a.dbPool != nil, "enforce_roles", a.cfg.EnforceRoles)

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
	case runErr = <-errCh:
		a.log.Error("server.fail", "err", runErr)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout(a.cfg.ShutdownTimeout))
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		runErr = errors.Join(runErr, err)
	}

	cancel()
	a.Close()
	a.log.Info("server.stopped")
	return runErr
}

// Close stops background work and releases storage and the audit pool.
// The caller must cancel the context given to Start first.
func (a *App) Close() {
	a.wg.Wait()
	a.closeOnce.Do(a.closeResources)
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (a *App) closeResources() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("storage.close.fail", "err", err)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}
