package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uidkeeper/uidkeeper/internal/app"
	"github.com/uidkeeper/uidkeeper/internal/config"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry reconciler",
		Long: `Run the HTTP API and the expiry reconciler until interrupted.

The config file is watched; log level and registrar settings are applied
without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "override server.addr from the config file")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(cmd.OutOrStdout(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("uidkeeper starting", "config", opts.ConfigPath, "version", Version)

	configPath := resolveConfigPath(cmd, opts.ConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	level.Set(cfg.Log.SlogLevel())

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	slog.Info("config loaded",
		"addr", addr,
		"store_backend", cfg.Store.Backend,
		"registrar_enabled", cfg.Registrar.Enabled,
		"reconcile_interval", cfg.Reconciler.Interval,
	)

	a, err := app.New(cfg, level, app.WithAddr(opts.Addr))
	if err != nil {
		slog.Error("failed to initialise", "err", err)
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("close failed", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx, configPath); err != nil {
		slog.Error("server stopped", "err", err)
		return err
	}
	slog.Info("uidkeeper stopped")
	return nil
}

// resolveConfigPath falls back to built-in defaults when the default config
// file is absent. An explicitly passed path is always used as given.
func resolveConfigPath(cmd *cobra.Command, path string) string {
	if cmd.Flags().Changed("config") || path == "" {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found — using defaults", "path", path)
		return ""
	}
	return path
}
