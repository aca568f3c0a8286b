// Command fsmdemo runs the example machines: a counter, a two-state handoff
// and a simulated gate mission. Runs are paced by a ticker, stepped by hand,
// or spread over a fleet of concurrent runners.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amp-labs/amp-fsm/build"
	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/fleet"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/internal/demo"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/startup"
	"github.com/amp-labs/amp-fsm/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const appName = "fsmdemo"

var ErrUnknownMachine = errors.New("unknown machine")

// Config is read from the environment, then overridden by flags.
type Config struct {
	Machine     string        `env:"FSM_DEMO_MACHINE"      envDefault:"mission"`
	Tick        time.Duration `env:"FSM_DEMO_TICK"         envDefault:"20ms"`
	Runners     int           `env:"FSM_DEMO_RUNNERS"      envDefault:"1"`
	Concurrency int           `env:"FSM_DEMO_CONCURRENCY"  envDefault:"4"`
	Interactive bool          `env:"FSM_DEMO_INTERACTIVE"  envDefault:"false"`
	MetricsAddr string        `env:"FSM_DEMO_METRICS_ADDR"`
	Width       int           `env:"FSM_DEMO_WIDTH"        envDefault:"64"`
	MissionFile string        `env:"FSM_DEMO_MISSION_FILE"`

	FSM     fsm.Config
	Mission demo.MissionConfig
}

func main() {
	os.Exit(run())
}

func run() int {
	err := startup.ConfigureEnvironment(startup.WithDefaultFiles(".env"))
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		return 1
	}

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		return 2 //nolint:mnd
	}

	ctx, stop := shutdown.SetupHandler(context.Background())
	defer stop()

	ctx = logger.WithSubsystem(ctx, appName)

	err = setupTelemetry(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		return 1
	}

	defer func() {
		_ = shutdown.RunHooks(context.Background())
	}()

	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, cfg.MetricsAddr)
	}

	logger.Get(ctx).Info("Starting", "version", build.Current().String(), "machine", cfg.Machine)

	err = runMachine(ctx, cfg)
	if err != nil {
		logger.Get(ctx).Error("Demo failed", "machine", cfg.Machine, "error", err)

		return 1
	}

	return 0
}

func loadConfig(args []string) (Config, error) {
	var cfg Config

	err := env.Parse(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.StringVar(&cfg.Machine, "machine", cfg.Machine, "machine to run: counter, handoff or mission")
	flags.DurationVar(&cfg.Tick, "tick", cfg.Tick, "delay between steps")
	flags.IntVar(&cfg.Runners, "runners", cfg.Runners, "number of runners; more than one runs a fleet")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "fleet worker count")
	flags.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "step a single runner by hand")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	flags.StringVar(&cfg.MissionFile, "mission", cfg.MissionFile, "YAML file overriding mission set points")
	flags.Int64Var(&cfg.FSM.MaxSteps, "max-steps", cfg.FSM.MaxSteps, "step limit per run, 0 for none")

	err = flags.Parse(args)
	if err != nil {
		return cfg, err
	}

	if cfg.MissionFile != "" {
		cfg.Mission, err = demo.LoadMissionConfig(cfg.MissionFile, cfg.Mission)
		if err != nil {
			return cfg, err
		}
	}

	if cfg.Runners < 1 {
		cfg.Runners = 1
	}

	return cfg, nil
}

func setupTelemetry(ctx context.Context) error {
	tcfg, err := telemetry.LoadConfigFromEnv(ctx)
	if err != nil {
		return err
	}

	err = telemetry.Initialize(ctx, tcfg)
	if err != nil {
		return err
	}

	shutdown.BeforeShutdown("telemetry", telemetry.Shutdown)

	var opts []logger.Option
	if handler := telemetry.LogHandler(); handler != nil {
		opts = append(opts, logger.WithExtraHandler(handler))
	}

	_, err = logger.ConfigureLogging(appName, opts...)

	return err
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	shutdown.BeforeShutdown("metrics", server.Shutdown)

	logger.Get(ctx).Info("Serving metrics", "addr", addr)
}

func runMachine(ctx context.Context, cfg Config) error {
	opts := demo.Options{
		Logger: fsm.NewSlogLogger(slog.Default()),
		Config: &cfg.FSM,
	}

	switch cfg.Machine {
	case "counter":
		machine, err := demo.NewCounterMachine(opts)
		if err != nil {
			return err
		}

		return drive(ctx, cfg, machine, demo.CounterStart.Start(struct{}{}), func() int { return 0 })
	case "handoff":
		machine, err := demo.NewHandoffMachine(opts)
		if err != nil {
			return err
		}

		return drive(ctx, cfg, machine, demo.HandoffStart.Start(struct{}{}), func() demo.Handoff {
			return demo.Handoff{Waits: 3, Value: 42} //nolint:mnd
		})
	case "mission":
		machine, err := demo.NewMissionMachine(cfg.Mission, time.Now, opts)
		if err != nil {
			return err
		}

		return drive(ctx, cfg, machine, demo.MissionStart.Start(struct{}{}), demo.NewMission)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMachine, cfg.Machine)
	}
}

func drive[D any](ctx context.Context, cfg Config, machine *fsm.Machine[D], entry fsm.Entry, data func() D) error {
	out := os.Stdout

	_, _ = fmt.Fprint(out, cli.Box(fmt.Sprintf("%s: %v", machine.Name(), machine.States()), cfg.Width, cli.AlignCenter))

	if cfg.Interactive {
		runner, err := machine.Start(ctx, entry.ID, entry.Income, data())
		if err != nil {
			return err
		}

		defer runner.Close(ctx)

		return cli.Drive(ctx, runner, cli.NewPrompter().PromptChooser(), out, cfg.Width)
	}

	var printer io.Writer
	if cfg.Runners == 1 {
		printer = out
	}

	f := fleet.New(machine, fleet.WithConcurrency(cfg.Concurrency)).WithDriver(demo.Paced[D](cfg.Tick, printer))
	defer f.Close()

	jobs := make([]fleet.Job[D], cfg.Runners)
	for i := range jobs {
		jobs[i] = fleet.Job[D]{Entry: entry, Data: data()}
	}

	results, err := f.Run(ctx, jobs)

	for _, result := range results {
		status := "ok"
		if result.Err != nil {
			status = result.Err.Error()
		}

		_, _ = fmt.Fprintln(out, cli.StepLine(result.Steps, fmt.Sprintf("%s %s in %s: %s",
			result.Job, result.RunnerID, result.Duration.Round(time.Millisecond), status)))
	}

	stats := f.Stats()
	_, _ = fmt.Fprint(out, cli.Box(fmt.Sprintf("%d started, %d completed, %d failed",
		stats.Started, stats.Completed, stats.Failed), cfg.Width, cli.AlignCenter))

	return err
}
