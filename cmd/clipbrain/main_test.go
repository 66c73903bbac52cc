package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not registered", name)
	return nil
}

func TestCommandsRegistered(t *testing.T) {
	app := newApp()
	for _, name := range []string{"serve", "worker", "ingest", "run", "status", "search", "backfill", "export", "sweep"} {
		cmd := findCommand(t, app, name)
		assert.NotNil(t, cmd.Action, name)
	}
}

func TestSearchCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "search")

	var topK *cli.IntFlag
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == "top-k" {
			topK = f
		}
	}
	require.NotNil(t, topK)
	assert.Equal(t, 10, topK.Value)
	assert.Contains(t, topK.Aliases, "k")
}

func TestServeRunsWorkerByDefault(t *testing.T) {
	cmd := findCommand(t, newApp(), "serve")
	require.Len(t, cmd.Flags, 1)
	flag, ok := cmd.Flags[0].(*cli.BoolFlag)
	require.True(t, ok)
	assert.Equal(t, "worker", flag.Name)
	assert.True(t, flag.Value)
}

func TestArgumentsRequired(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"clipbrain", "ingest"}, "video URL is required"},
		{[]string{"clipbrain", "run"}, "job id is required"},
		{[]string{"clipbrain", "status"}, "job id is required"},
		{[]string{"clipbrain", "search"}, "query is required"},
		{[]string{"clipbrain", "search", "  "}, "query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.args[1], func(t *testing.T) {
			err := newApp().Run(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSearchRejectsUnknownPlatform(t *testing.T) {
	err := newApp().Run([]string{"clipbrain", "search", "--platform", "vimeo", "cats"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vimeo")
}

func TestSetupLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "INFO", "warn", "Error"} {
			err := newApp().Run([]string{"clipbrain", "--log-level", level, "ingest"})
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "invalid log level", level)
		}
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelError))
		assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
	})

	t.Run("invalid level", func(t *testing.T) {
		err := newApp().Run([]string{"clipbrain", "-l", "verbose", "ingest"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "00:00", formatOffset(0))
	assert.Equal(t, "00:42", formatOffset(42_900))
	assert.Equal(t, "02:05", formatOffset(125_000))
	assert.Equal(t, "61:01", formatOffset(3_661_000))
}
