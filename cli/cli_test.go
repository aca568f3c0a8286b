package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		alignment Alignment
		want      string
	}{
		{"left", "ab", AlignLeft, "│ab  │"},
		{"center", "ab", AlignCenter, "│ ab │"},
		{"right", "ab", AlignRight, "│  ab│"},
		{"truncated", "abcdef", AlignLeft, "│abc…│"},
		{"wide runes", "日本", AlignLeft, "│日本│"},
		{"wide runes truncated", "日本語", AlignLeft, "│日… │"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lines := strings.Split(strings.TrimSuffix(Box(tt.text, 6, tt.alignment), "\n"), "\n")
			require.Len(t, lines, 3)
			assert.Equal(t, "╒════╕", lines[0])
			assert.Equal(t, tt.want, lines[1])
			assert.Equal(t, "└────┘", lines[2])
		})
	}

	assert.Empty(t, Box("x", 2, AlignLeft))
	assert.Equal(t, "┠──┨\n", Divider(4))
	assert.Empty(t, Divider(1))
	assert.Equal(t, "   3  a --[go]--> b", StepLine(3, "a --[go]--> b"))
}

func TestValidation(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, validateNonEmpty(""), ErrEmptyInput)
	require.NoError(t, validateNonEmpty("x"))
	require.NoError(t, validateInt("-12"))
	require.Error(t, validateInt("twelve"))

	n, err := parseInt("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

type ticks struct {
	N int
}

func newRunner(t *testing.T) *fsm.Runner[ticks] {
	t.Helper()

	b := fsm.NewBuilder[ticks]("drive").WithLogger(fsm.NopLogger{})
	fsm.RegisterFunc(b, fsm.NewRef[struct{}]("tick"), func(_ context.Context, data *ticks) fsm.Outcome {
		data.N++
		if data.N >= 3 {
			return fsm.Complete().Named("done")
		}

		return fsm.Continue().Named("again")
	})

	runner, err := b.MustBuild().Start(t.Context(), "tick", struct{}{}, ticks{})
	require.NoError(t, err)

	return runner
}

func scripted(actions ...Action) Chooser {
	return func(string) (Action, error) {
		if len(actions) == 0 {
			return "", promptui.ErrInterrupt
		}

		next := actions[0]
		actions = actions[1:]

		return next, nil
	}
}

func TestDriveSteps(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	runner := newRunner(t)

	err := Drive(t.Context(), runner, scripted(ActionStep, ActionStep, ActionStep), &out, 40)
	require.NoError(t, err)
	assert.True(t, runner.Halted())

	transcript := out.String()
	assert.Contains(t, transcript, "   1  tick --[again]--> tick")
	assert.Contains(t, transcript, "   3  tick --[done]--> END")
	assert.Contains(t, transcript, "drive halted after 3 steps")
}

func TestDriveRunAndQuit(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	runner := newRunner(t)
	require.NoError(t, Drive(t.Context(), runner, scripted(ActionStep, ActionQuit), &out, 40))
	assert.False(t, runner.Halted())
	assert.Equal(t, int64(1), runner.Steps())

	require.NoError(t, Drive(t.Context(), runner, scripted(ActionRun), &out, 40))
	assert.True(t, runner.Halted())
	assert.Equal(t, 3, runner.Data().N)
}

func TestDriveInterruptAndErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	runner := newRunner(t)
	require.NoError(t, Drive(t.Context(), runner, scripted(), &out, 40))

	errBroken := errors.New("terminal gone")
	err := Drive(t.Context(), runner, func(string) (Action, error) { return "", errBroken }, &out, 40)
	require.ErrorIs(t, err, errBroken)

	err = Drive(t.Context(), runner, scripted("Dance"), &out, 40)
	require.ErrorIs(t, err, ErrUnknownAction)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err = Drive(ctx, runner, scripted(ActionStep), &out, 40)
	require.ErrorIs(t, err, context.Canceled)
}
