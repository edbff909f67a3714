package log

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gradle2nix.dev/gradle2nix/cli/internal/flags/enum"
)

const (
	FlagLevel  = "loglevel"
	FlagFormat = "logformat"

	FormatText = "text"
	FormatJSON = "json"
)

func RegisterLoggingFlags(flags *pflag.FlagSet) {
	enum.Var(flags, FlagLevel, []string{
		"warn",
		"debug",
		"info",
		"error",
	}, "set the log level")
	enum.VarP(flags, FlagFormat, "f", []string{FormatText, FormatJSON}, "set the log format")
}

// GetBaseLogger builds the logger from the logging flags. Logs go to the
// error stream so the manifest on standard output stays clean.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	logLevel, err := GetLoggerLevel(cmd)
	if err != nil {
		return nil, err
	}

	format, err := enum.Get(cmd.Flags(), FlagFormat)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	case FormatText:
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

func GetLoggerLevel(cmd *cobra.Command) (slog.Level, error) {
	logLevel, err := enum.Get(cmd.Flags(), FlagLevel)
	if err != nil {
		return slog.LevelWarn, err
	}
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", logLevel)
	}
	return level, nil
}
