package models

import (
	"encoding/json"
	"time"

	"github.com/claude/curlform/internal/curl"
	"github.com/google/uuid"
)

// Analysis sources.
const (
	SourceTimeline  = "timeline"
	SourceLandmarks = "landmarks"
	SourceLive      = "live"
)

// AnalysisRow is a row for the analyses table: one analyzed video or live set.
type AnalysisRow struct {
	ID             uuid.UUID       `json:"id"`
	UserID         int             `json:"user_id"`
	Name           string          `json:"name"`
	Source         string          `json:"source"`
	CreatedAt      time.Time       `json:"created_at"`
	FrameCount     int             `json:"frame_count"`
	FramesUsed     int             `json:"frames_used"`
	DurationSec    float64         `json:"duration_sec"`
	FPS            float64         `json:"fps"`
	TotalReps      int             `json:"total_reps"`
	LeftReps       int             `json:"left_reps"`
	RightReps      int             `json:"right_reps"`
	LeftCorrect    int             `json:"left_correct"`
	LeftIncorrect  int             `json:"left_incorrect"`
	RightCorrect   int             `json:"right_correct"`
	RightIncorrect int             `json:"right_incorrect"`
	FormFeedback   []string        `json:"form_feedback"`
	Config         json.RawMessage `json:"config,omitempty"`
}

// CorrectReps returns correct reps across both arms.
func (a AnalysisRow) CorrectReps() int { return a.LeftCorrect + a.RightCorrect }

// IncorrectReps returns incorrect reps across both arms.
func (a AnalysisRow) IncorrectReps() int { return a.LeftIncorrect + a.RightIncorrect }

// SetCounters copies session counters into the row.
func (a *AnalysisRow) SetCounters(c curl.Counters) {
	a.TotalReps = c.TotalReps
	a.LeftReps = c.LeftReps
	a.RightReps = c.RightReps
	a.LeftCorrect = c.LeftCorrect
	a.LeftIncorrect = c.LeftIncorrect
	a.RightCorrect = c.RightCorrect
	a.RightIncorrect = c.RightIncorrect
}

// RepRow is a row for the reps table.
type RepRow struct {
	AnalysisID       uuid.UUID `json:"analysis_id"`
	UserID           int       `json:"user_id"`
	Side             string    `json:"side"`
	RepIndex         int       `json:"rep_index"`
	StartSec         float64   `json:"start_sec"`
	EndSec           float64   `json:"end_sec"`
	Correct          bool      `json:"correct"`
	ReasonCodes      []string  `json:"reason_codes"`
	Reasons          []string  `json:"reasons"`
	MinAngle         float64   `json:"min_angle"`
	MaxAngle         float64   `json:"max_angle"`
	ROM              float64   `json:"rom"`
	MaxTorsoAngle    float64   `json:"max_torso_angle"`
	TempoUpSec       float64   `json:"tempo_up_sec"`
	TempoDownSec     float64   `json:"tempo_down_sec"`
	Frames           int       `json:"frames"`
	MisalignedFrames int       `json:"misaligned_frames"`
}

// RepRowFromRecord converts a counted rep into a storable row.
func RepRowFromRecord(analysisID uuid.UUID, userID int, r curl.RepRecord) RepRow {
	row := RepRow{
		AnalysisID:       analysisID,
		UserID:           userID,
		Side:             r.Side.String(),
		RepIndex:         r.Index,
		StartSec:         r.Start.Seconds(),
		EndSec:           r.End.Seconds(),
		Correct:          r.Correct,
		ReasonCodes:      []string{},
		Reasons:          []string{},
		MinAngle:         r.MinAngle,
		MaxAngle:         r.MaxAngle,
		ROM:              r.ROM,
		MaxTorsoAngle:    r.MaxTorsoAngle,
		TempoUpSec:       r.TempoUp.Seconds(),
		TempoDownSec:     r.TempoDown.Seconds(),
		Frames:           r.Frames,
		MisalignedFrames: r.MisalignedFrames,
	}
	for _, reason := range r.Reasons {
		row.ReasonCodes = append(row.ReasonCodes, string(reason.Code))
		row.Reasons = append(row.Reasons, reason.Message)
	}
	return row
}
