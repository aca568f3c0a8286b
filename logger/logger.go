// Package logger configures slog for fsm binaries and hands out context-aware
// loggers that carry the machine and runner a log line belongs to.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/caarlos0/env/v11"
)

// Default subsystem set by ConfigureLogging.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes ConfigureLoggingWithOptions, which swaps global state.
var configMutex sync.Mutex //nolint:gochecknoglobals

type contextKey string

const (
	loggerKey    contextKey = "logger"
	muteKey      contextKey = "mute"
	subsystemKey contextKey = "subsystem"
	valuesKey    contextKey = "values"
)

// ErrInvalidLogOutput is returned when an invalid log output destination is specified.
var ErrInvalidLogOutput = errors.New("invalid log output")

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer
	// Extra receives every record in addition to the console handler, for
	// example an OpenTelemetry log bridge.
	Extra slog.Handler
}

// Config is the environment-driven part of Options.
type Config struct {
	JSON        bool       `env:"LOG_JSON"         envDefault:"false"`
	Level       slog.Level `env:"LOG_LEVEL"        envDefault:"INFO"`
	LegacyLevel slog.Level `env:"LEGACY_LOG_LEVEL" envDefault:"INFO"`
	Output      string     `env:"LOG_OUTPUT"       envDefault:"stdout"`
}

// Option adjusts Options after they are read from the environment.
type Option func(*Options)

// WithExtraHandler fans every record out to handler as well.
func WithExtraHandler(handler slog.Handler) Option {
	return func(o *Options) {
		o.Extra = handler
	}
}

// WithOutput overrides LOG_OUTPUT.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithLevel overrides LOG_LEVEL.
func WithLevel(level slog.Level) Option {
	return func(o *Options) {
		o.MinLevel = level
	}
}

// ConfigureLogging reads LOG_* variables and configures logging for app.
func ConfigureLogging(app string, opts ...Option) (*slog.Logger, error) {
	var cfg Config

	err := env.Parse(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse logging environment: %w", err)
	}

	output, err := outputFor(cfg.Output)
	if err != nil {
		return nil, err
	}

	options := Options{
		Subsystem:   app,
		JSON:        cfg.JSON,
		MinLevel:    cfg.Level,
		LegacyLevel: cfg.LegacyLevel,
		Output:      output,
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options), nil
}

func outputFor(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, name)
	}
}

// ConfigureLoggingWithOptions installs the default slog logger and redirects
// the legacy log package into it.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.MinLevel}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	if opts.Extra != nil {
		handler = Fanout(handler, opts.Extra)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// WithLogger stores logger in the context; Get returns it instead of the default.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithMuted suppresses every log line produced through Get for this context.
func WithMuted(ctx context.Context, muted bool) context.Context {
	return context.WithValue(ctx, muteKey, muted)
}

// WithSubsystem overrides the default subsystem for this context.
func WithSubsystem(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, subsystemKey, name)
}

// GetSubsystem returns the subsystem for ctx, falling back to the configured default.
func GetSubsystem(ctx context.Context) string {
	if ctx != nil {
		if sub, ok := ctx.Value(subsystemKey).(string); ok {
			return sub
		}
	}

	if sub, ok := subsystem.Load().(string); ok {
		return sub
	}

	return ""
}

// With returns a context whose loggers carry values.
func With(ctx context.Context, values ...any) context.Context {
	if len(values) == 0 {
		return ctx
	}

	existing := getValues(ctx)
	merged := make([]any, 0, len(existing)+len(values))
	merged = append(merged, existing...)
	merged = append(merged, values...)

	return context.WithValue(ctx, valuesKey, merged)
}

func getValues(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	vals, _ := ctx.Value(valuesKey).([]any)

	return vals
}

func isMuted(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	muted, ok := ctx.Value(muteKey).(bool)

	return ok && muted
}

// Get returns a logger for ctx. It carries the subsystem, values added with
// With, and, when called from inside a state step, the machine name and
// runner id.
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := context.Background()

	for _, c := range ctx {
		if c != nil {
			realCtx = c

			break
		}
	}

	if isMuted(realCtx) {
		return nullLogger
	}

	logger, ok := realCtx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		logger = slog.Default()
	}

	if sub := GetSubsystem(realCtx); sub != "" {
		logger = logger.With("subsystem", sub)
	}

	if labels := fsm.GetObservabilityLabels(realCtx); labels.RunnerID != "" {
		logger = logger.With(
			"machine", labels.Machine,
			"runner_id", labels.RunnerID,
			"state", labels.Active)
	}

	if vals := getValues(realCtx); len(vals) > 0 {
		logger = logger.With(vals...)
	}

	return logger
}

// nullHandler discards everything.
type nullHandler struct{}

func (nullHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nullHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nullHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nullHandler) WithGroup(string) slog.Handler           { return h }

var nullLogger = slog.New(nullHandler{}) //nolint:gochecknoglobals
