package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smugsync/smugsync/internal/config"
)

func TestBuildLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		logger := buildLogger(level)
		require.NotNil(t, logger, level)
	}

	assert.True(t, buildLogger("debug").Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, buildLogger("error").Enabled(context.Background(), slog.LevelInfo))
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{}

	var flags syncFlags

	bindSyncFlags(cmd, &flags)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--sync", "two_way",
		"--dry_run",
		"--account", "cli-account",
	}))

	cfg := config.Default()
	cfg.Sync = "online_backup"
	cfg.Account = "file-account"
	cfg.BaseDir = "/photos"

	applyFlagOverrides(cmd, cfg, &flags)

	assert.Equal(t, "two_way", cfg.Sync, "flag overrides file")
	assert.Equal(t, "cli-account", cfg.Account)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "/photos", cfg.BaseDir, "unset flags leave file values alone")
}

func TestSyncCmdHasAllFlags(t *testing.T) {
	cmd := newSyncCmd()

	for _, name := range []string{
		"sync", "base_dir", "account",
		"consumer_key", "consumer_secret", "access_token", "access_token_secret",
		"mac_photos_library_location",
		"force_refresh", "dry_run", "test_upload", "log_level",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
