// Package pose converts body landmarks from a pose estimator into the
// per-arm samples consumed by the rep tracker.
package pose

import "math"

// Body landmark indices following the MediaPipe Pose convention.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	NumLandmarks  = 33
)

// Landmark is one detected point. X and Y are normalized to [0, 1] of the
// image size; Z is relative depth (smaller is closer to the camera).
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Point is a 2D position in pixels.
type Point struct {
	X float64
	Y float64
}

// Frame is the landmark set for one video frame. An empty frame means no
// person was detected.
type Frame []Landmark

func (f Frame) point(i, width, height int) (Point, bool) {
	if i < 0 || i >= len(f) {
		return Point{}, false
	}
	l := f[i]
	if math.IsNaN(l.X) || math.IsNaN(l.Y) {
		return Point{}, false
	}
	return Point{X: l.X * float64(width), Y: l.Y * float64(height)}, true
}

func (f Frame) landmark(i int) (Landmark, bool) {
	if i < 0 || i >= len(f) {
		return Landmark{}, false
	}
	return f[i], true
}

// Angle returns the angle at b formed by a-b-c, in degrees. It reports false
// when either arm of the angle has zero length.
func Angle(a, b, c Point) (float64, bool) {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y
	magBA := math.Hypot(bax, bay)
	magBC := math.Hypot(bcx, bcy)
	if magBA < 1e-6 || magBC < 1e-6 {
		return 0, false
	}
	cos := (bax*bcx + bay*bcy) / (magBA * magBC)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}
