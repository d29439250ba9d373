package curl

import (
	"encoding/json"
	"time"
)

// Counters are the session totals. They change only when a counted rep closes.
type Counters struct {
	LeftReps       int `json:"left_reps"`
	RightReps      int `json:"right_reps"`
	LeftCorrect    int `json:"left_correct"`
	LeftIncorrect  int `json:"left_incorrect"`
	RightCorrect   int `json:"right_correct"`
	RightIncorrect int `json:"right_incorrect"`
	TotalReps      int `json:"total_reps"`
}

// record adds one counted rep and returns its 1-based index for the side.
func (c *Counters) record(side Side, correct bool) int {
	c.TotalReps++
	switch side {
	case SideLeft:
		c.LeftReps++
		if correct {
			c.LeftCorrect++
		} else {
			c.LeftIncorrect++
		}
		return c.LeftReps
	default:
		c.RightReps++
		if correct {
			c.RightCorrect++
		} else {
			c.RightIncorrect++
		}
		return c.RightReps
	}
}

func (c Counters) Reps(side Side) int {
	if side == SideLeft {
		return c.LeftReps
	}
	return c.RightReps
}

func (c Counters) Correct(side Side) int {
	if side == SideLeft {
		return c.LeftCorrect
	}
	return c.RightCorrect
}

func (c Counters) Incorrect(side Side) int {
	if side == SideLeft {
		return c.LeftIncorrect
	}
	return c.RightIncorrect
}

// TotalCorrect returns correct reps across both arms.
func (c Counters) TotalCorrect() int { return c.LeftCorrect + c.RightCorrect }

// TotalIncorrect returns incorrect reps across both arms.
func (c Counters) TotalIncorrect() int { return c.LeftIncorrect + c.RightIncorrect }

// ArmStatus is one arm's part of a Status snapshot.
type ArmStatus struct {
	Level            Level    `json:"level"`
	Progress         Progress `json:"progress"`
	RawAngle         *float64 `json:"raw_angle"`
	SmoothedAngle    *float64 `json:"smoothed_angle"`
	TorsoAngle       *float64 `json:"torso_angle"`
	Aligned          bool     `json:"aligned"`
	AlignmentWarning bool     `json:"alignment_warning"`
	TorsoViolation   bool     `json:"torso_violation"`
	Visible          bool     `json:"visible"`
	Confidence       float64  `json:"confidence"`
	Reps             int      `json:"reps"`
	Correct          int      `json:"correct"`
	Incorrect        int      `json:"incorrect"`
	CycleIndex       int      `json:"cycle_index"`
	LastReasons      []string `json:"last_reasons"`
}

// Status is the per-frame snapshot consumed by exporters and live clients.
type Status struct {
	At       time.Duration `json:"-"`
	Frame    int           `json:"frame"`
	Counters Counters      `json:"counters"`
	Left     ArmStatus     `json:"left"`
	Right    ArmStatus     `json:"right"`
}

// Arm returns the status for the given side.
func (s Status) Arm(side Side) ArmStatus {
	if side == SideRight {
		return s.Right
	}
	return s.Left
}

// MarshalJSON adds the frame time as "t" in seconds.
func (s Status) MarshalJSON() ([]byte, error) {
	type plain Status
	return json.Marshal(struct {
		T float64 `json:"t"`
		plain
	}{T: s.At.Seconds(), plain: plain(s)})
}

// RepRecord describes one counted rep.
type RepRecord struct {
	Side             Side          `json:"side"`
	Index            int           `json:"index"`
	Start            time.Duration `json:"-"`
	End              time.Duration `json:"-"`
	Correct          bool          `json:"correct"`
	Reasons          []Reason      `json:"reasons"`
	MinAngle         float64       `json:"min_angle"`
	MaxAngle         float64       `json:"max_angle"`
	ROM              float64       `json:"rom"`
	MaxTorsoAngle    float64       `json:"max_torso_angle"`
	TempoUp          time.Duration `json:"-"`
	TempoDown        time.Duration `json:"-"`
	Frames           int           `json:"frames"`
	MisalignedFrames int           `json:"misaligned_frames"`
}

// MarshalJSON encodes the durations as seconds.
func (r RepRecord) MarshalJSON() ([]byte, error) {
	type plain RepRecord
	return json.Marshal(struct {
		StartS     float64 `json:"start_s"`
		EndS       float64 `json:"end_s"`
		TempoUpS   float64 `json:"tempo_up_s"`
		TempoDownS float64 `json:"tempo_down_s"`
		plain
	}{
		StartS:     r.Start.Seconds(),
		EndS:       r.End.Seconds(),
		TempoUpS:   r.TempoUp.Seconds(),
		TempoDownS: r.TempoDown.Seconds(),
		plain:      plain(r),
	})
}

// Report is the session-end output.
type Report struct {
	Counters     Counters
	Reps         []RepRecord
	FormFeedback []string
	Frames       int
	Duration     time.Duration
}
