package demo

import (
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/fsm/fsmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffMachine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		waits int
		value int32
		steps int64
	}{
		{name: "advances immediately", waits: 0, value: 2, steps: 2},
		{name: "keeps twice", waits: 2, value: 7, steps: 4},
		{name: "zero value", waits: 1, value: 0, steps: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := fsmtest.NewRecorder()

			machine, err := NewHandoffMachine(Options{Logger: rec})
			require.NoError(t, err)

			runner, err := machine.Start(t.Context(), HandoffStart.ID(), struct{}{}, Handoff{Waits: tt.waits, Value: tt.value})
			require.NoError(t, err)
			require.NoError(t, runner.Run(t.Context()))

			assert.Equal(t, tt.value, runner.Data().Received)
			assert.Equal(t, tt.waits+1, runner.Data().Ticks)
			assert.Equal(t, tt.steps, runner.Steps())

			fsmtest.AssertAll(t, rec,
				fsmtest.TransitionWasTaken(HandoffStart.ID(), HandoffMiddle.ID()),
				fsmtest.CompletedFrom(HandoffMiddle.ID()),
			)
		})
	}
}

func TestHandoffRejectsNegativeValue(t *testing.T) {
	t.Parallel()

	machine, err := NewHandoffMachine(Options{Logger: fsm.NopLogger{}})
	require.NoError(t, err)

	runner, err := machine.Start(t.Context(), HandoffStart.ID(), struct{}{}, Handoff{Value: -1})
	require.NoError(t, err)

	err = fsmtest.RequireStepError(t, t.Context(), runner, fsm.ErrConstruction)
	require.ErrorIs(t, err, ErrNegativeValue)
	assert.Equal(t, HandoffStart.ID(), runner.Active())
}

func TestStartMoveOutcomes(t *testing.T) {
	t.Parallel()

	assert.True(t, Keep().IntoOutcome().IsContinue())
	assert.Equal(t, "Keep", Keep().IntoOutcome().Label())

	advance := Advance(3).IntoOutcome()
	assert.Equal(t, HandoffMiddle.ID(), advance.Target())
	assert.Equal(t, int32(3), advance.Income())
	assert.Equal(t, "Advance", advance.Label())
}
