package demo

import "github.com/amp-labs/amp-fsm/fsm"

// Options are shared by the machine constructors of this package.
type Options struct {
	// Logger receives runner events. Nil means the default slog logger.
	Logger fsm.Logger
	// Config overrides the builder defaults. Its name, if empty, is the
	// machine's own.
	Config *fsm.Config
}

func newBuilder[D any](name string, opts Options) *fsm.Builder[D] {
	b := fsm.NewBuilder[D](name).WithLogger(opts.Logger)

	if opts.Config != nil {
		b.WithConfig(*opts.Config)
	}

	return b
}
