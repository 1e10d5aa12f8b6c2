package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uidkeeper/uidkeeper/internal/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(cmd, rootOpts.ConfigPath))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ config valid\n")
			fmt.Fprintf(out, "  addr:       %s\n", cfg.Server.Addr)
			fmt.Fprintf(out, "  log level:  %s\n", cfg.Log.Level)
			fmt.Fprintf(out, "  backend:    %s\n", describeStore(cfg.Store))
			if cfg.Registrar.Enabled {
				fmt.Fprintf(out, "  registrar:  %s (timeout %s)\n", cfg.Registrar.BaseURL, cfg.Registrar.Timeout)
			} else {
				fmt.Fprintf(out, "  registrar:  disabled\n")
			}
			fmt.Fprintf(out, "  reconcile:  every %s\n", cfg.Reconciler.Interval)
			return nil
		},
	}
}

func describeStore(sc config.StoreConfig) string {
	switch sc.Backend {
	case "remote":
		return fmt.Sprintf("remote (load %s, save %s)", sc.SnapshotURL, sc.Path)
	case "sqlite":
		return fmt.Sprintf("sqlite (%s)", sc.SQLitePath)
	case "redis":
		return fmt.Sprintf("redis (%s db=%d key=%s)", sc.Redis.Addr, sc.Redis.DB, sc.Redis.Key)
	default:
		return fmt.Sprintf("file (%s)", sc.Path)
	}
}
