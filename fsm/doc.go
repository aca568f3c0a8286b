// Package fsm is a generic finite state machine engine in which every state
// is its own type, owns its own data, and declares the payload it must be
// constructed from.
//
// # Overview
//
// A [Machine] is a closed set of state variants over shared data D, built
// with a [Builder]. Each variant is registered under an [ID] with a
// constructor taking an income of type I. A [Runner] holds exactly one active
// state and calls its Step method once per iteration. Step returns a
// transition value; any type implementing [IntoOutcome] works, including
// [Outcome] itself. The runner then either keeps the active state
// ([Continue]) or constructs the target from the carried income ([Switch]).
//
// The income is checked against the target's registered type at runtime. A
// mismatch, an unknown target, or a failing constructor all return an error
// and leave the active state untouched.
//
// Switching to [Terminal] with an empty struct payload ([Complete]) halts the
// runner.
//
// # Usage
//
//	type Counter struct{ Hits int }
//
//	var (
//		idle = fsm.NewRef[struct{}]("idle")
//		busy = fsm.NewRef[int]("busy")
//	)
//
//	b := fsm.NewBuilder[Counter]("counter")
//
//	fsm.RegisterFunc(b, idle, func(ctx context.Context, c *Counter) fsm.Outcome {
//		return busy.With(3)
//	})
//
//	fsm.Register(b, busy, func(ctx context.Context, n int, c *Counter) (fsm.State[Counter, fsm.Outcome], error) {
//		return fsm.StepFunc[Counter, fsm.Outcome](func(ctx context.Context, c *Counter) fsm.Outcome {
//			c.Hits++
//			if c.Hits >= n {
//				return fsm.Complete()
//			}
//
//			return fsm.Continue()
//		}), nil
//	})
//
//	machine, err := b.Build()
//	if err != nil {
//		return err
//	}
//
//	final, err := machine.Run(ctx, idle.ID(), struct{}{}, Counter{})
//
// # Observability
//
// Runners log through a [Logger] (slog by default), emit OpenTelemetry spans
// named fsm.run and fsm.step, and record Prometheus metrics prefixed fsm_.
// Tracing and metrics can be switched off through [Config].
package fsm
