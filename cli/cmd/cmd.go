package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/cli/cmd/model"
	"gradle2nix.dev/gradle2nix/cli/cmd/version"
	"gradle2nix.dev/gradle2nix/cli/internal/config"
	"gradle2nix.dev/gradle2nix/cli/log"
)

// Execute runs the root command. This is called by main.main().
func Execute() {
	err := New().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradle2nix [sub-command]",
		Short: "Generate Nix expressions for the dependencies of Gradle builds",
		Long: `gradle2nix turns the resolved dependency graph of a Gradle build into a
manifest of every artifact the build needs, with the URLs it can be
fetched from and its SHA-256 hash, so the build can run offline in a
sandbox.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: setup,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	config.RegisterConfigFlag(cmd.PersistentFlags())
	log.RegisterLoggingFlags(cmd.PersistentFlags())
	cmd.AddCommand(model.New())
	cmd.AddCommand(version.New())
	return cmd
}

// setup puts the logger and the configuration into the command context.
func setup(cmd *cobra.Command, _ []string) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return fmt.Errorf("could not retrieve logger: %w", err)
	}
	slog.SetDefault(logger)

	path, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	logger.Log(cmd.Context(), slog.LevelDebug, "loaded configuration",
		slog.Int("concurrency", cfg.Concurrency),
		slog.Int("cacheSize", cfg.Cache.Size),
		slog.Duration("httpTimeout", cfg.HTTP.Timeout),
	)

	ctx := slogcontext.NewCtx(cmd.Context(), logger)
	cmd.SetContext(config.NewContext(ctx, cfg))
	return nil
}
