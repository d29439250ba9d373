package pose

import (
	"math"
	"time"

	"github.com/claude/curlform/internal/curl"
)

// alignmentTolerance is the allowed horizontal elbow offset from the
// shoulder, as a fraction of torso height.
const alignmentTolerance = 0.15

type armJoints struct {
	shoulder, elbow, wrist, hip int
}

var joints = [2]armJoints{
	curl.SideLeft:  {LeftShoulder, LeftElbow, LeftWrist, LeftHip},
	curl.SideRight: {RightShoulder, RightElbow, RightWrist, RightHip},
}

// ArmAngle returns the shoulder-elbow-wrist angle, or nil when it cannot be
// measured.
func ArmAngle(f Frame, side curl.Side, width, height int) *float64 {
	j := joints[side]
	return angleAt(f, j.shoulder, j.elbow, j.wrist, width, height)
}

// TorsoAngle returns the elbow-shoulder-hip angle, or nil when any of the
// three landmarks is missing.
func TorsoAngle(f Frame, side curl.Side, width, height int) *float64 {
	j := joints[side]
	return angleAt(f, j.elbow, j.shoulder, j.hip, width, height)
}

func angleAt(f Frame, a, b, c, width, height int) *float64 {
	pa, okA := f.point(a, width, height)
	pb, okB := f.point(b, width, height)
	pc, okC := f.point(c, width, height)
	if !okA || !okB || !okC {
		return nil
	}
	v, ok := Angle(pa, pb, pc)
	if !ok {
		return nil
	}
	return &v
}

// Aligned reports whether the elbow stays under the shoulder. It returns
// true when the check cannot be made.
func Aligned(f Frame, side curl.Side, width, height int) bool {
	j := joints[side]
	shoulder, ok1 := f.point(j.shoulder, width, height)
	elbow, ok2 := f.point(j.elbow, width, height)
	hip, ok3 := f.point(j.hip, width, height)
	if !ok1 || !ok2 || !ok3 {
		return true
	}
	torsoHeight := math.Abs(hip.Y - shoulder.Y)
	if torsoHeight == 0 {
		return true
	}
	return math.Abs(elbow.X-shoulder.X) < torsoHeight*alignmentTolerance
}

// Visibility describes whether an arm can be trusted this frame.
type Visibility struct {
	Confidence float64 `json:"confidence"`
	Depth      float64 `json:"depth"`
	Occluded   bool    `json:"occluded"`
	Visible    bool    `json:"visible"`
}

// ArmVisibility scores both arms. Confidence is the mean landmark visibility
// of shoulder, elbow and wrist. With the depth filter on, an arm lying more
// than DepthThreshold behind the other arm is treated as occluded.
func ArmVisibility(f Frame, cfg curl.Config) [2]Visibility {
	var out [2]Visibility
	var measured [2]bool
	for _, side := range curl.Sides {
		j := joints[side]
		var conf, depth float64
		n := 0
		for _, idx := range []int{j.shoulder, j.elbow, j.wrist} {
			l, ok := f.landmark(idx)
			if !ok {
				continue
			}
			conf += l.Visibility
			depth += l.Z
			n++
		}
		if n == 3 {
			out[side].Confidence = conf / 3
			out[side].Depth = depth / 3
			measured[side] = true
		}
	}

	if cfg.DepthFilterEnabled && measured[curl.SideLeft] && measured[curl.SideRight] {
		l, r := out[curl.SideLeft].Depth, out[curl.SideRight].Depth
		switch {
		case l-r > cfg.DepthThreshold:
			out[curl.SideLeft].Occluded = true
		case r-l > cfg.DepthThreshold:
			out[curl.SideRight].Occluded = true
		}
	}
	for _, side := range curl.Sides {
		v := &out[side]
		v.Visible = measured[side] && !v.Occluded && v.Confidence >= cfg.MinLandmarkConfidence
	}
	return out
}

// Sample builds the tracker input for one frame.
func Sample(f Frame, at time.Duration, width, height int, cfg curl.Config) curl.FrameSample {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	vis := ArmVisibility(f, cfg)
	fs := curl.FrameSample{At: at}
	for _, side := range curl.Sides {
		s := curl.ArmSample{
			Angle:      ArmAngle(f, side, width, height),
			TorsoAngle: TorsoAngle(f, side, width, height),
			Aligned:    Aligned(f, side, width, height),
			Visible:    vis[side].Visible,
			Confidence: vis[side].Confidence,
		}
		if side == curl.SideLeft {
			fs.Left = s
		} else {
			fs.Right = s
		}
	}
	return fs
}
