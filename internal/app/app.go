package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/uidkeeper/uidkeeper/internal/api"
	"github.com/uidkeeper/uidkeeper/internal/config"
	"github.com/uidkeeper/uidkeeper/internal/metrics"
	"github.com/uidkeeper/uidkeeper/internal/reconciler"
	"github.com/uidkeeper/uidkeeper/internal/registrar"
	"github.com/uidkeeper/uidkeeper/internal/store"
	"github.com/uidkeeper/uidkeeper/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// App is the process context. It is built once at startup and owns the
// store handle shared by the HTTP layer and the reconciler.
type App struct {
	cfg    *config.Config // effective settings, including command-line overrides
	loaded config.Config  // settings as read from the config file
	level  *slog.LevelVar

	Store      *store.Store
	Registrar  registrar.Registrar
	Metrics    *metrics.Registry
	Hub        *ws.Hub
	Reconciler *reconciler.Reconciler

	client  *registrar.Client // nil when the registrar is disabled
	handler http.Handler
	closers []func() error
}

// Option adjusts the effective settings without changing what config reloads
// are compared against.
type Option func(*config.Config)

// WithAddr overrides server.addr.
func WithAddr(addr string) Option {
	return func(c *config.Config) {
		if addr != "" {
			c.Server.Addr = addr
		}
	}
}

// New wires every component from cfg. level, if non-nil, is adjusted on
// config reload.
func New(cfg *config.Config, level *slog.LevelVar, opts ...Option) (*App, error) {
	effective := *cfg
	for _, opt := range opts {
		opt(&effective)
	}
	a := &App{cfg: &effective, loaded: *cfg, level: level, Metrics: metrics.New()}
	cfg = &effective

	backend, err := a.openBackend(cfg.Store)
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}
	a.Store = store.New(backend, a.Metrics)

	if cfg.Registrar.Enabled {
		a.client = registrar.New(registrarSettings(cfg.Registrar), a.Metrics)
		a.Registrar = a.client
		warnEmptyKey(cfg.Registrar)
	} else {
		slog.Warn("registrar disabled, remote allow-list will not be updated")
		a.Registrar = registrar.Nop{}
	}

	a.Hub = ws.New(a.Store, cfg.Stream.Interval)
	a.Reconciler = reconciler.New(a.Store, a.Registrar, cfg.Reconciler.Interval, a.Metrics, a.Hub)

	r := chi.NewRouter()
	r.Use(api.AccessLog)
	api.New(a.Store, a.Registrar, a.Metrics, a.Hub).Routes(r)
	r.Method(http.MethodGet, "/metrics", a.Metrics)
	r.Handle("/ws/stream", a.Hub)
	a.handler = r

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the reconciler, the stream hub, the config watcher (when
// configPath is set) and the HTTP server. It blocks until ctx is cancelled or
// the listener fails, then shuts the server down gracefully and waits for the
// background loops to finish.
func (a *App) Run(ctx context.Context, configPath string) error {
	ctx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		stop()
		wg.Wait()
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Reconciler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.Hub.Run(ctx)
	}()

	if configPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := config.Watch(ctx, configPath, a.Apply); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", a.cfg.Server.Addr, "backend", a.Store.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("uidkeeper shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Apply takes a reloaded config. Log level and registrar settings change in
// place; everything else needs a restart.
func (a *App) Apply(cfg *config.Config) {
	if a.level != nil {
		a.level.Set(cfg.Log.SlogLevel())
	}
	if a.client != nil {
		a.client.Configure(registrarSettings(cfg.Registrar))
		warnEmptyKey(cfg.Registrar)
	}
	if changed := a.needsRestart(cfg); len(changed) > 0 {
		slog.Warn("config: changes need a restart to apply", "fields", changed)
	}
	slog.Info("config applied", "log_level", cfg.Log.Level, "registrar_url", cfg.Registrar.BaseURL)
}

// needsRestart lists the reloaded fields that differ from the file loaded at
// startup and cannot be applied in place.
func (a *App) needsRestart(cfg *config.Config) []string {
	var changed []string
	if cfg.Server.Addr != a.loaded.Server.Addr {
		changed = append(changed, "server.addr")
	}
	if cfg.Store != a.loaded.Store {
		changed = append(changed, "store")
	}
	if cfg.Registrar.Enabled != a.loaded.Registrar.Enabled {
		changed = append(changed, "registrar.enabled")
	}
	if cfg.Reconciler.Interval != a.loaded.Reconciler.Interval {
		changed = append(changed, "reconciler.interval")
	}
	if cfg.Stream.Interval != a.loaded.Stream.Interval {
		changed = append(changed, "stream.interval")
	}
	return changed
}

// Close releases backend resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) openBackend(sc config.StoreConfig) (store.Backend, error) {
	switch sc.Backend {
	case "file":
		f := store.NewFile(sc.Path)
		if err := f.EnsureFile(); err != nil {
			return nil, err
		}
		return f, nil

	case "remote":
		return store.NewRemote(sc.SnapshotURL, store.NewFile(sc.Path), nil), nil

	case "sqlite":
		db, err := store.OpenSQLite(sc.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password(),
			DB:       sc.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			// Loads fail soft, so an unreachable server is not fatal at startup.
			slog.Warn("redis unreachable at startup", "addr", sc.Redis.Addr, "err", err)
		}
		return store.NewRedis(client, sc.Redis.Key), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func warnEmptyKey(rc config.RegistrarConfig) {
	if rc.Key() == "" {
		slog.Warn("registrar key is empty; set registrar.key_env or registrar.key",
			"key_env", rc.KeyEnv)
	}
}

func registrarSettings(rc config.RegistrarConfig) registrar.Settings {
	return registrar.Settings{
		BaseURL: rc.BaseURL,
		Key:     rc.Key(),
		Timeout: rc.Timeout,
	}
}
