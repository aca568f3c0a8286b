// Package shutdown turns SIGINT/SIGTERM into context cancellation and runs
// registered cleanup hooks first.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []hook         //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a hook that runs before the handler's context is
// cancelled, so the context is still usable inside it. Hooks run in reverse
// registration order.
func BeforeShutdown(name string, fn func(ctx context.Context) error) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, hook{name: name, fn: fn})
}

// Shutdown triggers the shutdown process programmatically. It does nothing
// when no handler is installed.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch == nil {
		return
	}

	select {
	case ch <- os.Interrupt:
	default:
	}
}

// SetupHandler installs the signal handler and returns a context that is
// cancelled once the hooks have run. The returned stop function uninstalls
// the handler without running hooks.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			slog.WarnContext(ctx, "Received "+sig.String()+", shutting down...")

			_ = RunHooks(ctx)
		case <-done:
		}

		cancel()
	}()

	var once sync.Once

	stop := func() {
		once.Do(func() {
			signal.Stop(ch)

			mut.Lock()
			if channel == ch {
				channel = nil
			}
			mut.Unlock()

			close(done)
		})
	}

	return ctx, stop
}

// RunHooks runs and clears every registered hook. Failures are logged and
// returned joined.
func RunHooks(ctx context.Context) error {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	var errs []error

	for i := len(pending) - 1; i >= 0; i-- {
		h := pending[i]

		err := h.fn(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}

	return errors.Join(errs...)
}
