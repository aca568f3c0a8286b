package demo

import (
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/fsm/fsmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simTick = 100 * time.Millisecond

type simClock struct {
	now time.Time
}

func (c *simClock) Now() time.Time {
	return c.now
}

// simulate steps the runner and advances world and clock by one tick per
// step until it halts.
func simulate(t *testing.T, runner *fsm.Runner[Mission], clock *simClock) {
	t.Helper()

	for range 5000 {
		if runner.Halted() {
			return
		}

		_, err := runner.Step(t.Context())
		require.NoError(t, err)

		runner.Data().Advance(simTick)
		clock.now = clock.now.Add(simTick)
	}

	t.Fatalf("mission did not finish, stuck in %s", runner.Active())
}

func TestMissionPassesGate(t *testing.T) {
	t.Parallel()

	clock := &simClock{now: time.Unix(0, 0)}
	rec := fsmtest.NewRecorder()

	machine, err := NewMissionMachine(DefaultMissionConfig(), clock.Now, Options{Logger: rec})
	require.NoError(t, err)

	runner, err := machine.Start(t.Context(), MissionStart.ID(), struct{}{}, NewMission())
	require.NoError(t, err)

	simulate(t, runner, clock)

	mission := runner.Data()
	assert.True(t, mission.Passed)
	assert.Empty(t, mission.TimedOut)
	assert.InDelta(t, 1.9, mission.Vehicle.Heave.Pose, 0.1)
	assert.InDelta(t, 45, mission.Vehicle.Yaw.Pose, 2)
	assert.InDelta(t, 0, mission.Vehicle.Surge, 0, "approach must stop the vehicle when it is released")

	assert.Equal(t, []fsm.ID{
		MissionStart.ID(), MissionSubmerge.ID(), MissionAlign.ID(), MissionApproach.ID(),
	}, rec.Visited())

	fsmtest.AssertAll(t, rec,
		fsmtest.CompletedFrom(MissionApproach.ID()),
		fsmtest.NoFailures(),
	)
}

func TestMissionSubmergeTimesOut(t *testing.T) {
	t.Parallel()

	config := DefaultMissionConfig()
	config.SubmergeTimeout = time.Second

	clock := &simClock{now: time.Unix(0, 0)}

	machine, err := NewMissionMachine(config, clock.Now, Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	mission := NewMission()
	mission.Vehicle.Heave.Rate = 0

	runner, err := machine.Start(t.Context(), MissionStart.ID(), struct{}{}, mission)
	require.NoError(t, err)

	fsmtest.RequireStep(t, t.Context(), runner, fsm.StepTransitioned, MissionSubmerge.ID())

	var result fsm.StepResult

	for range 100 {
		result, err = runner.Step(t.Context())
		require.NoError(t, err)

		clock.now = clock.now.Add(simTick)

		if result.Kind != fsm.StepContinued {
			break
		}
	}

	assert.Equal(t, fsm.StepTransitioned, result.Kind)
	assert.Equal(t, "Timeout", result.Label)
	assert.Equal(t, MissionAlign.ID(), runner.Active())
	assert.Equal(t, []fsm.ID{MissionSubmerge.ID()}, runner.Data().TimedOut)

	simulate(t, runner, clock)
	assert.True(t, runner.Data().Passed)
}

func TestMissionApproachTimesOut(t *testing.T) {
	t.Parallel()

	config := DefaultMissionConfig()
	config.SurgeSpeed = 0
	config.ApproachTimeout = 2 * time.Second

	clock := &simClock{now: time.Unix(0, 0)}

	machine, err := NewMissionMachine(config, clock.Now, Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	runner, err := machine.Start(t.Context(), MissionApproach.ID(), float64(3), NewMission())
	require.NoError(t, err)

	simulate(t, runner, clock)

	assert.False(t, runner.Data().Passed)
	assert.Equal(t, []fsm.ID{MissionApproach.ID()}, runner.Data().TimedOut)
}

func TestMissionRejectsBadSetPoints(t *testing.T) {
	t.Parallel()

	config := DefaultMissionConfig()
	config.Depth = -1

	machine, err := NewMissionMachine(config, nil, Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	runner, err := machine.Start(t.Context(), MissionStart.ID(), struct{}{}, NewMission())
	require.NoError(t, err)

	err = fsmtest.RequireStepError(t, t.Context(), runner, fsm.ErrConstruction)
	require.ErrorIs(t, err, ErrInvalidDepth)

	_, err = machine.Start(t.Context(), MissionApproach.ID(), float64(0), NewMission())
	require.ErrorIs(t, err, ErrInvalidDistance)

	_, err = machine.Start(t.Context(), MissionSubmerge.ID(), 1, NewMission())
	require.ErrorIs(t, err, fsm.ErrIncomeTypeMismatch)
}

func TestWrapDegrees(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{720, 0},
		{45, 45},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, WrapDegrees(tt.in), 1e-9, "wrap(%v)", tt.in)
	}
}

func TestVehicleTurnsShortWay(t *testing.T) {
	t.Parallel()

	v := NewVehicle()
	v.Yaw.Pose = 170
	v.Yaw.Target = -170

	v.Advance(100 * time.Millisecond)

	assert.InDelta(t, 173, v.Yaw.Pose, 1e-9)
}

func TestAxisAdvanceClamps(t *testing.T) {
	t.Parallel()

	a := Axis{Target: 1, Rate: 0.5}
	a.Advance(time.Second)
	assert.InDelta(t, 0.5, a.Pose, 1e-9)

	a.Advance(10 * time.Second)
	assert.InDelta(t, 1, a.Pose, 1e-9)
	assert.InDelta(t, 0, a.Error(), 1e-9)
}
