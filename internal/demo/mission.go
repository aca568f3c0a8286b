package demo

import (
	"context"
	"errors"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
)

var (
	ErrInvalidDepth    = errors.New("dive depth must be positive")
	ErrInvalidDistance = errors.New("approach distance must be positive")
)

var (
	MissionStart    = fsm.NewRef[struct{}]("Start")
	MissionSubmerge = fsm.NewRef[float64]("Submerge")
	MissionAlign    = fsm.NewRef[float64]("AlignGate")
	MissionApproach = fsm.NewRef[float64]("ApproachGate")
)

// MissionConfig holds the set points and time limits of a gate run.
type MissionConfig struct {
	Depth            float64       `env:"MISSION_DEPTH"             envDefault:"1.9"  yaml:"depth"`
	DepthTolerance   float64       `env:"MISSION_DEPTH_TOLERANCE"   envDefault:"0.1"  yaml:"depthTolerance"`
	SubmergeTimeout  time.Duration `env:"MISSION_SUBMERGE_TIMEOUT"  envDefault:"15s"  yaml:"submergeTimeout"`
	GateHeading      float64       `env:"MISSION_GATE_HEADING"      envDefault:"45"   yaml:"gateHeading"`
	HeadingTolerance float64       `env:"MISSION_HEADING_TOLERANCE" envDefault:"2"    yaml:"headingTolerance"`
	AlignTimeout     time.Duration `env:"MISSION_ALIGN_TIMEOUT"     envDefault:"10s"  yaml:"alignTimeout"`
	GateDistance     float64       `env:"MISSION_GATE_DISTANCE"     envDefault:"5"    yaml:"gateDistance"`
	SurgeSpeed       float64       `env:"MISSION_SURGE_SPEED"       envDefault:"1"    yaml:"surgeSpeed"`
	ApproachTimeout  time.Duration `env:"MISSION_APPROACH_TIMEOUT"  envDefault:"20s"  yaml:"approachTimeout"`
}

// DefaultMissionConfig returns the stock gate run.
func DefaultMissionConfig() MissionConfig {
	return MissionConfig{
		Depth:            1.9,
		DepthTolerance:   0.1,
		SubmergeTimeout:  15 * time.Second,
		GateHeading:      45,
		HeadingTolerance: 2,
		AlignTimeout:     10 * time.Second,
		GateDistance:     5,
		SurgeSpeed:       1,
		ApproachTimeout:  20 * time.Second,
	}
}

// Mission is the data shared by every state of the gate run.
type Mission struct {
	Vehicle Vehicle
	// TimedOut lists the states that gave up instead of reaching their goal.
	TimedOut []fsm.ID
	// Passed is set once the vehicle has travelled through the gate.
	Passed bool
}

// NewMission returns a mission with a fresh vehicle.
func NewMission() Mission {
	return Mission{Vehicle: NewVehicle()}
}

// Advance moves the simulated world forward between steps.
func (m *Mission) Advance(dt time.Duration) {
	m.Vehicle.Advance(dt)
}

type submerge struct {
	config MissionConfig
	depth  float64
}

func (s *submerge) Step(_ context.Context, m *Mission) fsm.Outcome {
	m.Vehicle.Heave.Target = s.depth

	if !Within(m.Vehicle.Heave.Error(), s.config.DepthTolerance) {
		return fsm.Continue().Named("Unreached")
	}

	return MissionAlign.With(s.config.GateHeading).Named("Reached")
}

func (s *submerge) Timeout(ctx context.Context, m *Mission) fsm.Outcome {
	logger.Get(ctx).Warn("submerge timed out", "depth", m.Vehicle.Heave.Pose)

	m.TimedOut = append(m.TimedOut, MissionSubmerge.ID())

	return MissionAlign.With(s.config.GateHeading).Named("Timeout")
}

type alignGate struct {
	config  MissionConfig
	heading float64
}

func (s *alignGate) Step(_ context.Context, m *Mission) fsm.Outcome {
	m.Vehicle.Yaw.Target = s.heading

	if !Within(WrapDegrees(m.Vehicle.Yaw.Error()), s.config.HeadingTolerance) {
		return fsm.Continue().Named("Unreached")
	}

	return MissionApproach.With(s.config.GateDistance).Named("Reached")
}

func (s *alignGate) Timeout(ctx context.Context, m *Mission) fsm.Outcome {
	logger.Get(ctx).Warn("gate alignment timed out", "yaw", m.Vehicle.Yaw.Pose)

	m.TimedOut = append(m.TimedOut, MissionAlign.ID())

	return MissionApproach.With(s.config.GateDistance).Named("Timeout")
}

// approachGate drives forward until it has covered the distance measured
// from where it was entered.
type approachGate struct {
	config  MissionConfig
	from    float64
	through float64
	vehicle *Vehicle
}

func (s *approachGate) Step(_ context.Context, m *Mission) fsm.Outcome {
	m.Vehicle.Surge = s.config.SurgeSpeed

	if m.Vehicle.Travelled-s.from < s.through {
		return fsm.Continue().Named("Unreached")
	}

	m.Passed = true

	return fsm.Complete().Named("Passed")
}

func (s *approachGate) Timeout(ctx context.Context, m *Mission) fsm.Outcome {
	logger.Get(ctx).Warn("gate approach timed out", "travelled", m.Vehicle.Travelled-s.from)

	m.TimedOut = append(m.TimedOut, MissionApproach.ID())

	return fsm.Complete().Named("Timeout")
}

// Close stops the vehicle when the approach is left, whichever way.
func (s *approachGate) Close() error {
	s.vehicle.Surge = 0

	return nil
}

// NewMissionMachine builds Start -> Submerge -> AlignGate -> ApproachGate.
// Every state past Start is timed against now and moves on when its limit
// runs out. The world is not advanced by the machine; callers step the runner
// and call Mission.Advance in between.
func NewMissionMachine(config MissionConfig, now func() time.Time, opts Options) (*fsm.Machine[Mission], error) {
	if now == nil {
		now = time.Now
	}

	b := newBuilder[Mission]("mission", opts)

	fsm.RegisterFunc(b, MissionStart, func(context.Context, *Mission) fsm.Outcome {
		return MissionSubmerge.With(config.Depth).Named("Complete")
	})

	fsm.Register(b, MissionSubmerge, fsm.TimedClock(now,
		func(_ context.Context, depth float64, _ *Mission) (fsm.TimedState[Mission, fsm.Outcome], time.Duration, error) {
			if depth <= 0 {
				return nil, 0, ErrInvalidDepth
			}

			return &submerge{config: config, depth: depth}, config.SubmergeTimeout, nil
		}))

	fsm.Register(b, MissionAlign, fsm.TimedClock(now,
		func(_ context.Context, heading float64, _ *Mission) (fsm.TimedState[Mission, fsm.Outcome], time.Duration, error) {
			return &alignGate{config: config, heading: WrapDegrees(heading)}, config.AlignTimeout, nil
		}))

	fsm.Register(b, MissionApproach, fsm.TimedClock(now,
		func(_ context.Context, distance float64, m *Mission) (fsm.TimedState[Mission, fsm.Outcome], time.Duration, error) {
			if distance <= 0 {
				return nil, 0, ErrInvalidDistance
			}

			return &approachGate{
				config:  config,
				from:    m.Vehicle.Travelled,
				through: distance,
				vehicle: &m.Vehicle,
			}, config.ApproachTimeout, nil
		}))

	return b.Build()
}
