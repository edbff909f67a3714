package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradle2nix.dev/gradle2nix/cli/log"
)

func command(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	log.RegisterLoggingFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	return cmd, &stderr
}

func TestGetLoggerLevel(t *testing.T) {
	for args, want := range map[string]slog.Level{
		"":      slog.LevelWarn,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"error": slog.LevelError,
	} {
		var flags []string
		if args != "" {
			flags = []string{"--loglevel", args}
		}
		cmd, _ := command(t, flags...)
		level, err := log.GetLoggerLevel(cmd)
		require.NoError(t, err)
		assert.Equal(t, want, level, args)
	}
}

func TestGetBaseLoggerJSON(t *testing.T) {
	cmd, stderr := command(t, "--logformat", "json", "--loglevel", "info")
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	logger, err := log.GetBaseLogger(cmd)
	require.NoError(t, err)
	logger.Log(t.Context(), slog.LevelDebug, "hidden")
	logger.Log(t.Context(), slog.LevelInfo, "resolved", slog.String("realm", "model"))

	assert.Empty(t, stdout.String(), "logs must not be mixed into the manifest")
	var record map[string]any
	require.NoError(t, json.Unmarshal(stderr.Bytes(), &record))
	assert.Equal(t, "resolved", record["msg"])
	assert.Equal(t, "model", record["realm"])
}

func TestInvalidFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	log.RegisterLoggingFlags(cmd.Flags())
	require.Error(t, cmd.ParseFlags([]string{"--loglevel", "fatal"}))
	require.Error(t, cmd.ParseFlags([]string{"--logformat", "xml"}))
}
