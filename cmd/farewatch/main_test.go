package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWithFlags(t *testing.T, args ...string) error {
	t.Helper()
	var o overrides
	root := newRootCmd(&o)
	require.NoError(t, root.ParseFlags(args))
	_, _, err := loadConfig(root, &o)
	return err
}

func TestLoadConfig_FlagRepairsInvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOTIFY_ENABLED", "true")

	err := loadWithFlags(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_ENABLED")

	assert.NoError(t, loadWithFlags(t, "--notify=false"))
}

func TestLoadConfig_FlagCanBreakValidEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	err := loadWithFlags(t, "--origin", "SEOUL")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORIGIN and DEST")
}

func TestLoadConfig_AppliesOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	var o overrides
	root := newRootCmd(&o)
	require.NoError(t, root.ParseFlags([]string{"--origin", " gmp ", "--airlines", "ke,7c", "--months", "2", "--start", "2025-09-01"}))

	cfg, log, err := loadConfig(root, &o)

	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, "GMP", cfg.Origin)
	assert.Equal(t, []string{"KE", "7C"}, cfg.Airlines)
	assert.Equal(t, 2, cfg.MonthsAhead)
	assert.Equal(t, "2025-09-01", cfg.StartDate)
}
