package demo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/fleet"
	"github.com/amp-labs/amp-fsm/fsm"
)

// Advancer is shared data that simulates a world between steps.
type Advancer interface {
	Advance(dt time.Duration)
}

// Paced returns a driver that steps the runner once per tick. When *D is an
// Advancer it is advanced by tick after every step. Steps that change state
// are written to out if it is not nil. The machine's step limit applies as
// it does for Run.
func Paced[D any](tick time.Duration, out io.Writer) fleet.Driver[D] {
	return func(ctx context.Context, runner *fsm.Runner[D]) error {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		limit := runner.Machine().Config().MaxSteps

		for taken := int64(0); !runner.Halted(); taken++ {
			if limit > 0 && taken >= limit {
				return fsm.WrapStateError(runner.Active(), fsm.ErrStepLimit)
			}

			select {
			case <-ctx.Done():
				return fsm.WrapStateError(runner.Active(), ctx.Err())
			case <-ticker.C:
			}

			result, err := runner.Step(ctx)
			if err != nil {
				return err
			}

			if world, ok := any(runner.Data()).(Advancer); ok {
				world.Advance(tick)
			}

			if out != nil && result.Notable() {
				_, _ = fmt.Fprintln(out, cli.StepLine(runner.Steps(), result.String()))
			}
		}

		return nil
	}
}
