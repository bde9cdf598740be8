// Package vehicleframe converts planar waypoints between the world frame and
// a vehicle-centered frame.
//
// The vehicle frame places the vehicle at the origin with its direction of
// travel along +X. World headings are measured from the +Y axis, so the
// rotation applied is by (heading - 90 degrees); the fixed -90 degree offset
// is what maps forward travel onto +X. Downstream consumers rely on this
// convention: a reference curve fitted in the vehicle frame has its
// cross-track error at f(0) and its heading error at -atan(f'(0)).
package vehicleframe

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose is a planar vehicle pose in the world frame. Heading is in radians,
// per the convention documented on the package.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// ToVehicleFrame maps world-frame points into the frame of the given pose:
// translation by (-X, -Y) followed by rotation by (Heading - pi/2).
// Z is ignored and zero on output. The input is not modified.
func ToVehicleFrame(points []r3.Vector, pose Pose) []r3.Vector {
	sin, cos := math.Sincos(pose.Heading - math.Pi/2)
	transformed := make([]r3.Vector, 0, len(points))
	for _, pt := range points {
		dx := pt.X - pose.X
		dy := pt.Y - pose.Y
		transformed = append(transformed, r3.Vector{
			X: -dx*sin + dy*cos,
			Y: -dx*cos - dy*sin,
		})
	}
	return transformed
}

// FromVehicleFrame inverts ToVehicleFrame for the same pose. The rotation is
// orthogonal, so the inverse is its transpose followed by translation back to
// the pose position.
func FromVehicleFrame(points []r3.Vector, pose Pose) []r3.Vector {
	sin, cos := math.Sincos(pose.Heading - math.Pi/2)
	restored := make([]r3.Vector, 0, len(points))
	for _, pt := range points {
		restored = append(restored, r3.Vector{
			X: -pt.X*sin - pt.Y*cos + pose.X,
			Y: pt.X*cos - pt.Y*sin + pose.Y,
		})
	}
	return restored
}
