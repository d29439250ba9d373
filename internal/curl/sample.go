package curl

import (
	"encoding/json"
	"math"
	"time"
)

// ArmSample is one arm's measurement for one frame, as produced by the pose
// adapter. Nil pointers mean the value could not be measured.
type ArmSample struct {
	Angle      *float64 `json:"angle"`
	TorsoAngle *float64 `json:"torso_angle"`
	Aligned    bool     `json:"aligned"`
	Visible    bool     `json:"visible"`
	Confidence float64  `json:"confidence"`
}

// FrameSample is one frame of bilateral measurements. At is the video clock
// offset from the start of the stream; on the wire it is "t" in seconds.
type FrameSample struct {
	At    time.Duration `json:"-"`
	Left  ArmSample     `json:"left"`
	Right ArmSample     `json:"right"`
}

type frameSampleJSON struct {
	T     float64   `json:"t"`
	Left  ArmSample `json:"left"`
	Right ArmSample `json:"right"`
}

// MarshalJSON encodes At as fractional seconds.
func (f FrameSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameSampleJSON{T: f.At.Seconds(), Left: f.Left, Right: f.Right})
}

// UnmarshalJSON decodes "t" (seconds) into At.
func (f *FrameSample) UnmarshalJSON(b []byte) error {
	var v frameSampleJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.At = Seconds(v.T)
	f.Left = v.Left
	f.Right = v.Right
	return nil
}

// Seconds converts fractional seconds to a Duration, rounded to the microsecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}

// Arm returns the sample for the given side.
func (f FrameSample) Arm(side Side) ArmSample {
	if side == SideRight {
		return f.Right
	}
	return f.Left
}

// Usable reports whether the sample may drive the state machine.
func (s ArmSample) Usable(minConfidence float64) bool {
	return s.Angle != nil && !math.IsNaN(*s.Angle) && s.Visible && s.Confidence >= minConfidence
}

// Float returns a pointer to v, for building samples.
func Float(v float64) *float64 { return &v }
