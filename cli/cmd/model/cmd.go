package model

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"gradle2nix.dev/gradle2nix/bindings/go/model"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/cache"
	"gradle2nix.dev/gradle2nix/bindings/go/repository/factory"
	"gradle2nix.dev/gradle2nix/cli/internal/config"
	"gradle2nix.dev/gradle2nix/cli/internal/flags/enum"
	"gradle2nix.dev/gradle2nix/cli/internal/flags/file"
	"gradle2nix.dev/gradle2nix/cli/internal/render"
)

const (
	FlagSnapshot      = "snapshot"
	FlagOutput        = "output"
	FlagFormat        = "format"
	FlagSubproject    = "subproject"
	FlagConfiguration = "configuration"
	FlagSummary       = "summary"
	FlagConcurrency   = config.KeyConcurrency
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Build the dependency manifest of a Gradle build",
		Long: `Build the dependency manifest of a Gradle build from a snapshot of its
resolved dependency graph. Every artifact in the manifest carries the URLs
it can be downloaded from and its SHA-256 hash.`,
		Example: `  # Write the manifest of all projects to gradle-env.json
  gradle2nix model --snapshot build/gradle2nix/snapshot.json --output gradle-env.json

  # Only the runtime classpath of :app and the projects it depends on, as yaml
  gradle2nix model --snapshot snapshot.yaml --subproject :app --configuration runtimeClasspath --format yaml`,
		Args:              cobra.NoArgs,
		RunE:              BuildManifest,
		DisableAutoGenTag: true,
	}

	file.VarP(cmd.Flags(), FlagSnapshot, "s", "", `snapshot of the Gradle build to read, "-" reads standard input`)
	file.VarP(cmd.Flags(), FlagOutput, "o", file.Stdio, `file to write the manifest to, "-" writes standard output`)
	enum.Var(cmd.Flags(), FlagFormat, formats(), "format of the manifest")
	cmd.Flags().StringSlice(FlagSubproject, nil, "path of a subproject to include together with the projects it depends on (repeatable, default all)")
	cmd.Flags().StringSlice(FlagConfiguration, nil, "name of a configuration to resolve (repeatable, default all resolvable)")
	cmd.Flags().Bool(FlagSummary, false, "print the unresolved dependencies and the manifest fingerprint to standard error")
	cmd.Flags().Int(FlagConcurrency, 0, "number of parallel repository queries per configuration (default from configuration)")
	_ = cmd.MarkFlagRequired(FlagSnapshot)

	return cmd
}

func formats() []string {
	var names []string
	for _, f := range model.Formats() {
		names = append(names, string(f))
	}
	return names
}

func BuildManifest(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := slogcontext.FromCtx(ctx)

	flags, err := getFlags(cmd)
	if err != nil {
		return err
	}

	in, err := flags.snapshot.Open()
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() {
		err = errors.Join(err, in.Close())
	}()
	snapshot, err := model.DecodeSnapshot(in)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", flags.snapshot, err)
	}

	builder := model.NewBuilder(
		model.WithHTTPClient(factory.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)),
		model.WithStore(cache.NewStore(cfg.Cache.Size)),
		model.WithConcurrency(cfg.Concurrency),
	)
	build, err := builder.Build(ctx, snapshot, model.Properties{
		Subprojects:    flags.subprojects,
		Configurations: flags.configurations,
	})
	if err != nil {
		return err
	}

	// a failed encoding must not truncate an existing output file
	var buf bytes.Buffer
	if err := model.Encode(&buf, build, flags.format); err != nil {
		return err
	}
	out, err := flags.output.Create(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := buf.WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	logger.Log(ctx, slog.LevelInfo, "wrote manifest",
		slog.String("output", flags.output.String()),
		slog.String("format", string(flags.format)),
		slog.Int("subprojects", len(build.RootProject.Children)),
	)

	if flags.summary {
		fingerprint, err := model.Fingerprint(build)
		if err != nil {
			return err
		}
		return render.Summary(cmd.ErrOrStderr(), build.Diagnostics, fingerprint)
	}
	return nil
}

type buildFlags struct {
	snapshot       *file.Flag
	output         *file.Flag
	format         model.Format
	subprojects    []string
	configurations []string
	summary        bool
}

func getFlags(cmd *cobra.Command) (*buildFlags, error) {
	snapshot, err := file.Get(cmd.Flags(), FlagSnapshot)
	if err != nil {
		return nil, err
	}
	output, err := file.Get(cmd.Flags(), FlagOutput)
	if err != nil {
		return nil, err
	}
	if output.String() != file.Stdio && output.String() == snapshot.String() {
		return nil, fmt.Errorf("the manifest cannot overwrite the snapshot %s", snapshot)
	}
	formatName, err := enum.Get(cmd.Flags(), FlagFormat)
	if err != nil {
		return nil, err
	}
	format, err := model.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	subprojects, err := cmd.Flags().GetStringSlice(FlagSubproject)
	if err != nil {
		return nil, err
	}
	configurations, err := cmd.Flags().GetStringSlice(FlagConfiguration)
	if err != nil {
		return nil, err
	}
	summary, err := cmd.Flags().GetBool(FlagSummary)
	if err != nil {
		return nil, err
	}
	return &buildFlags{
		snapshot:       snapshot,
		output:         output,
		format:         format,
		subprojects:    slices.Compact(slices.Sorted(slices.Values(subprojects))),
		configurations: slices.Compact(slices.Sorted(slices.Values(configurations))),
		summary:        summary,
	}, nil
}
