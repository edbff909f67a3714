package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"gradle2nix.dev/gradle2nix/cli/internal/flags/enum"
	"gradle2nix.dev/gradle2nix/cli/internal/version"
)

const (
	FlagFormat            = "format"
	FlagFormatShortHand   = "o"
	FlagFormatJSON        = "json"
	FlagFormatShort       = "short"
	FlagFormatGoBuildInfo = "gobuildinfo"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of gradle2nix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := enum.Get(cmd.Flags(), FlagFormat)
			if err != nil {
				return err
			}
			switch format {
			case FlagFormatGoBuildInfo:
				bi, ok := debug.ReadBuildInfo()
				if !ok {
					return fmt.Errorf("no build info available")
				}
				_, err = io.Copy(cmd.OutOrStdout(), strings.NewReader(bi.String()))
				return err
			}

			info, err := version.Get()
			if err != nil {
				return err
			}
			if format == FlagFormatShort {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), info.GitVersion)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), FlagFormat, FlagFormatShortHand, []string{FlagFormatJSON, FlagFormatShort, FlagFormatGoBuildInfo}, "format of the version information")
	return cmd
}
