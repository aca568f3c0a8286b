package fsm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"facette.io/natsort"
)

// Builder collects state variants and produces an immutable Machine.
type Builder[D any] struct {
	config Config
	order  []ID
	states map[ID]*variant[D]
	errs   []error
	logger Logger
}

// NewBuilder creates a builder for a machine called name.
func NewBuilder[D any](name string) *Builder[D] {
	config := DefaultConfig()
	config.Name = name

	return &Builder[D]{
		config: config,
		states: make(map[ID]*variant[D]),
	}
}

// WithConfig replaces the builder's configuration. An empty name in config
// keeps the name given to NewBuilder.
func (b *Builder[D]) WithConfig(config Config) *Builder[D] {
	if config.Name == "" {
		config.Name = b.config.Name
	}

	b.config = config

	return b
}

// WithMaxSteps bounds the number of steps a single Run may take. Zero means
// unbounded.
func (b *Builder[D]) WithMaxSteps(steps int64) *Builder[D] {
	b.config.MaxSteps = steps

	return b
}

// WithLogger sets the logging hooks used by runners of the machine.
func (b *Builder[D]) WithLogger(logger Logger) *Builder[D] {
	b.logger = logger

	return b
}

// Remove drops a previously registered state. It reports whether the state
// was present.
func (b *Builder[D]) Remove(id ID) bool {
	if _, ok := b.states[id]; !ok {
		return false
	}

	delete(b.states, id)
	b.order = slices.DeleteFunc(b.order, func(other ID) bool { return other == id })

	return true
}

// Build validates the registrations and returns the machine.
func (b *Builder[D]) Build() (*Machine[D], error) {
	err := b.config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	if len(b.states) == 0 {
		return nil, ErrNoStates
	}

	logger := b.logger
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &Machine[D]{
		config: b.config,
		order:  slices.Clone(b.order),
		states: maps.Clone(b.states),
		logger: logger,
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder[D]) MustBuild() *Machine[D] {
	machine, err := b.Build()
	if err != nil {
		panic(err)
	}

	return machine
}

func (b *Builder[D]) add(v *variant[D]) {
	switch {
	case v.id == "":
		b.errs = append(b.errs, ErrEmptyStateID)
	case v.id == Terminal:
		b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrReservedState, v.id))
	default:
		if _, exists := b.states[v.id]; exists {
			b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateState, v.id))

			return
		}

		b.states[v.id] = v
		b.order = append(b.order, v.id)
	}
}

func (b *Builder[D]) fail(id ID, err error) {
	b.errs = append(b.errs, fmt.Errorf("state %s: %w", id, err))
}

// Machine is a closed set of state variants over shared data D. It is
// immutable and safe to share between runners on different goroutines.
type Machine[D any] struct {
	config Config
	order  []ID
	states map[ID]*variant[D]
	logger Logger
}

// Name returns the machine name.
func (m *Machine[D]) Name() string {
	return m.config.Name
}

// Config returns the machine configuration.
func (m *Machine[D]) Config() Config {
	return m.config
}

// Has reports whether id is registered.
func (m *Machine[D]) Has(id ID) bool {
	_, ok := m.states[id]

	return ok
}

// States returns the registered ids in natural sort order.
func (m *Machine[D]) States() []ID {
	names := make([]string, 0, len(m.order))
	for _, id := range m.order {
		names = append(names, string(id))
	}

	natsort.Sort(names)

	ids := make([]ID, len(names))
	for i, name := range names {
		ids[i] = ID(name)
	}

	return ids
}

// IncomeType returns the income type id was registered with.
func (m *Machine[D]) IncomeType(id ID) (reflect.Type, bool) {
	if id == Terminal {
		return terminalIncome, true
	}

	v, ok := m.states[id]
	if !ok {
		return nil, false
	}

	return v.income, true
}

// Start constructs the start state from income and returns a runner that owns
// data. The start income is checked exactly like a transition payload.
func (m *Machine[D]) Start(ctx context.Context, start ID, income any, data D) (*Runner[D], error) {
	runner := newRunner(m, data)

	err := runner.enter(ctx, start, income)
	if err != nil {
		return nil, err
	}

	return runner, nil
}

// Run starts a runner and drives it to completion, returning the final shared
// data. On error the active state is released and the data is returned as it
// was when the run stopped.
func (m *Machine[D]) Run(ctx context.Context, start ID, income any, data D) (D, error) {
	runner, err := m.Start(ctx, start, income, data)
	if err != nil {
		return data, err
	}

	err = runner.Run(ctx)
	if err != nil {
		runner.Close(ctx)
	}

	return *runner.Data(), err
}

func (m *Machine[D]) lookup(id ID) (*variant[D], bool) {
	v, ok := m.states[id]

	return v, ok
}

var terminalIncome = reflect.TypeFor[struct{}]()
