package demo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/fleet"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacedDriverPrintsTransitions(t *testing.T) {
	t.Parallel()

	machine, err := NewHandoffMachine(Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	var out bytes.Buffer

	runner, err := machine.Start(t.Context(), HandoffStart.ID(), struct{}{}, Handoff{Waits: 2, Value: 9})
	require.NoError(t, err)

	require.NoError(t, Paced[Handoff](time.Millisecond, &out)(t.Context(), runner))

	assert.Equal(t, int32(9), runner.Data().Received)
	assert.Contains(t, out.String(), "Start --[Advance]--> Middle")
	assert.Contains(t, out.String(), "Middle --[Done]--> END")
	assert.NotContains(t, out.String(), "Keep")
}

func TestPacedDriverAdvancesWorld(t *testing.T) {
	t.Parallel()

	config := DefaultMissionConfig()
	config.GateDistance = 0.05

	machine, err := NewMissionMachine(config, nil, Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	f := fleet.New(machine, fleet.WithConcurrency(2)).WithDriver(Paced[Mission](10*time.Millisecond, nil))
	defer f.Close()

	result := f.RunOne(t.Context(), fleet.Job[Mission]{Entry: MissionApproach.Start(config.GateDistance), Data: NewMission()})
	require.NoError(t, result.Err)
	assert.True(t, result.Data.Passed)
	assert.Positive(t, result.Data.Vehicle.Travelled)
}

func TestPacedDriverStopsOnCancel(t *testing.T) {
	t.Parallel()

	machine, err := NewHandoffMachine(Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	runner, err := machine.Start(t.Context(), HandoffStart.ID(), struct{}{}, Handoff{Waits: 1 << 30})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err = Paced[Handoff](time.Millisecond, nil)(ctx, runner)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, HandoffStart.ID(), runner.Active())
}

func TestParseMissionConfig(t *testing.T) {
	t.Parallel()

	config, err := ParseMissionConfig([]byte("depth: 3.5\nsubmergeTimeout: 30s\n"), DefaultMissionConfig())
	require.NoError(t, err)

	assert.InDelta(t, 3.5, config.Depth, 1e-9)
	assert.Equal(t, 30*time.Second, config.SubmergeTimeout)
	assert.InDelta(t, 45, config.GateHeading, 1e-9)

	_, err = ParseMissionConfig([]byte("depth: [1"), DefaultMissionConfig())
	require.Error(t, err)
}

func TestLoadMissionConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mission.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateHeading: -90\n"), 0o600))

	config, err := LoadMissionConfig(path, DefaultMissionConfig())
	require.NoError(t, err)
	assert.InDelta(t, -90, config.GateHeading, 1e-9)

	_, err = LoadMissionConfig(filepath.Join(t.TempDir(), "missing.yaml"), DefaultMissionConfig())
	require.Error(t, err)
}

func TestPacedDriverStepLimit(t *testing.T) {
	t.Parallel()

	config := fsm.DefaultConfig()
	config.MaxSteps = 2

	machine, err := NewHandoffMachine(Options{Logger: fsm.NopLogger{}, Config: &config})
	require.NoError(t, err)

	runner, err := machine.Start(t.Context(), HandoffStart.ID(), struct{}{}, Handoff{Waits: 5})
	require.NoError(t, err)

	err = Paced[Handoff](time.Millisecond, nil)(t.Context(), runner)
	require.ErrorIs(t, err, fsm.ErrStepLimit)
	assert.Equal(t, int64(2), runner.Steps())
}
