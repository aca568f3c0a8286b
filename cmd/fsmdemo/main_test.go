package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FSM_DEMO_MACHINE", "handoff")
	t.Setenv("FSM_DEMO_TICK", "5ms")

	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "handoff", cfg.Machine)
	assert.Equal(t, 5*time.Millisecond, cfg.Tick)
	assert.True(t, cfg.FSM.Tracing)
	assert.InDelta(t, 1.9, cfg.Mission.Depth, 1e-9)

	cfg, err = loadConfig([]string{"-machine", "counter", "-runners", "0", "-max-steps", "7"})
	require.NoError(t, err)
	assert.Equal(t, "counter", cfg.Machine)
	assert.Equal(t, 1, cfg.Runners)
	assert.Equal(t, int64(7), cfg.FSM.MaxSteps)
}

func TestLoadConfigMissionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depth: 2.5\n"), 0o600))

	cfg, err := loadConfig([]string{"-mission", path})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, cfg.Mission.Depth, 1e-9)

	_, err = loadConfig([]string{"-mission", filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)

	_, err = loadConfig([]string{"-no-such-flag"})
	require.Error(t, err)
}

func TestRunMachine(t *testing.T) {
	cfg, err := loadConfig([]string{"-tick", "1ms", "-runners", "3"})
	require.NoError(t, err)

	cfg.FSM.Metrics = false

	for _, name := range []string{"counter", "handoff"} {
		cfg.Machine = name
		require.NoError(t, runMachine(t.Context(), cfg), name)
	}

	cfg.Machine = "bogus"
	require.ErrorIs(t, runMachine(t.Context(), cfg), ErrUnknownMachine)

	cfg.Machine = "counter"
	cfg.FSM.MaxSteps = 2
	require.ErrorIs(t, runMachine(t.Context(), cfg), fsm.ErrStepLimit)
}
