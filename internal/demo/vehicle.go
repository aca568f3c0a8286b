package demo

import (
	"math"
	"time"
)

// Axis is one controlled degree of freedom. Pose moves toward Target at no
// more than Rate units per second.
type Axis struct {
	Pose   float64
	Target float64
	Rate   float64
}

// Advance moves the axis toward its target for dt.
func (a *Axis) Advance(dt time.Duration) {
	limit := a.Rate * dt.Seconds()
	delta := a.Target - a.Pose

	a.Pose += math.Max(-limit, math.Min(limit, delta))
}

// Error is the signed distance from pose to target.
func (a *Axis) Error() float64 {
	return a.Target - a.Pose
}

// Vehicle is a toy underwater vehicle: depth and heading are position
// controlled, forward motion is a commanded surge speed.
type Vehicle struct {
	Heave Axis
	// Yaw is in degrees. Targets are wrapped into (-180, 180].
	Yaw Axis
	// Surge is the commanded forward speed in m/s.
	Surge float64
	// Travelled is the forward distance covered in metres.
	Travelled float64
}

// NewVehicle returns a vehicle at the surface, pointing north.
func NewVehicle() Vehicle {
	return Vehicle{
		Heave: Axis{Rate: 0.5},
		Yaw:   Axis{Rate: 30},
	}
}

// Advance integrates the vehicle for dt.
func (v *Vehicle) Advance(dt time.Duration) {
	v.Heave.Advance(dt)

	// Steer the short way round.
	v.Yaw.Target = v.Yaw.Pose + WrapDegrees(v.Yaw.Target-v.Yaw.Pose)
	v.Yaw.Advance(dt)
	v.Yaw.Pose = WrapDegrees(v.Yaw.Pose)
	v.Yaw.Target = WrapDegrees(v.Yaw.Target)

	v.Travelled += v.Surge * dt.Seconds()
}

// WrapDegrees maps an angle into (-180, 180].
func WrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360) //nolint:mnd
	if deg > 180 {           //nolint:mnd
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}

	return deg
}

// Within reports whether |value| is below tolerance.
func Within(value, tolerance float64) bool {
	return math.Abs(value) < tolerance
}
