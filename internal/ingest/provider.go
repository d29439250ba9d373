package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/models"
	"github.com/google/uuid"
)

// Store persists analyses. *storage.DB satisfies it.
type Store interface {
	InsertAnalysis(ctx context.Context, row models.AnalysisRow) error
	InsertReps(ctx context.Context, rows []models.RepRow) (int64, error)
}

// Result holds the outcome of an ingest operation.
type Result struct {
	AnalysisID     string   `json:"analysis_id,omitempty"`
	Name           string   `json:"name"`
	FramesReceived int      `json:"frames_received"`
	FramesUsed     int      `json:"frames_used"`
	DurationSec    float64  `json:"duration_sec"`
	FPS            float64  `json:"fps"`
	TotalReps      int      `json:"total_reps"`
	CorrectReps    int      `json:"correct_reps"`
	IncorrectReps  int      `json:"incorrect_reps"`
	LeftReps       int      `json:"left_reps"`
	RightReps      int      `json:"right_reps"`
	LeftCorrect    int      `json:"left_correct"`
	LeftIncorrect  int      `json:"left_incorrect"`
	RightCorrect   int      `json:"right_correct"`
	RightIncorrect int      `json:"right_incorrect"`
	FormFeedback   []string `json:"form_feedback"`

	Reps         []curl.RepRecord `json:"reps"`
	RepsInserted int64            `json:"reps_inserted"`

	Message string `json:"message,omitempty"`
}

// Analysis is the outcome of replaying a recorded stream.
type Analysis struct {
	Report   curl.Report
	Timeline []curl.Status
	// FramesUsed counts frames where at least one arm passed the gate.
	FramesUsed int
}

// Replay feeds frames through a fresh session in order. A frame whose time
// precedes the previous one aborts the replay.
func Replay(frames []curl.FrameSample, cfg curl.Config, log *slog.Logger) (*Analysis, error) {
	s, err := curl.NewSession(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &Analysis{Timeline: make([]curl.Status, 0, len(frames))}
	for i, f := range frames {
		st, err := s.Update(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if f.Left.Usable(cfg.MinLandmarkConfidence) || f.Right.Usable(cfg.MinLandmarkConfidence) {
			a.FramesUsed++
		}
		a.Timeline = append(a.Timeline, st)
	}
	a.Report = s.Report()
	return a, nil
}

// NewResult summarizes an analysis. fps of zero is derived from the frame
// count and duration.
func NewResult(name string, a *Analysis, fps float64) *Result {
	rep := a.Report
	c := rep.Counters
	if fps == 0 && rep.Duration > 0 && rep.Frames > 1 {
		fps = float64(rep.Frames-1) / rep.Duration.Seconds()
	}
	feedback := rep.FormFeedback
	if feedback == nil {
		feedback = []string{}
	}
	reps := rep.Reps
	if reps == nil {
		reps = []curl.RepRecord{}
	}
	return &Result{
		Name:           name,
		FramesReceived: rep.Frames,
		FramesUsed:     a.FramesUsed,
		DurationSec:    round2(rep.Duration.Seconds()),
		FPS:            round2(fps),
		TotalReps:      c.TotalReps,
		CorrectReps:    c.TotalCorrect(),
		IncorrectReps:  c.TotalIncorrect(),
		LeftReps:       c.LeftReps,
		RightReps:      c.RightReps,
		LeftCorrect:    c.LeftCorrect,
		LeftIncorrect:  c.LeftIncorrect,
		RightCorrect:   c.RightCorrect,
		RightIncorrect: c.RightIncorrect,
		FormFeedback:   feedback,
		Reps:           reps,
	}
}

// Persist stores the analysis and its reps, setting res.AnalysisID and
// res.RepsInserted.
func Persist(ctx context.Context, store Store, userID int, source string, res *Result, cfg curl.Config) error {
	id := uuid.New()
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding tracker config: %w", err)
	}

	row := models.AnalysisRow{
		ID:           id,
		UserID:       userID,
		Name:         res.Name,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
		FrameCount:   res.FramesReceived,
		FramesUsed:   res.FramesUsed,
		DurationSec:  res.DurationSec,
		FPS:          res.FPS,
		FormFeedback: res.FormFeedback,
		Config:       cfgJSON,
	}
	row.SetCounters(curl.Counters{
		LeftReps:       res.LeftReps,
		RightReps:      res.RightReps,
		LeftCorrect:    res.LeftCorrect,
		LeftIncorrect:  res.LeftIncorrect,
		RightCorrect:   res.RightCorrect,
		RightIncorrect: res.RightIncorrect,
		TotalReps:      res.TotalReps,
	})
	if err := store.InsertAnalysis(ctx, row); err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}

	rows := make([]models.RepRow, 0, len(res.Reps))
	for _, r := range res.Reps {
		rows = append(rows, models.RepRowFromRecord(id, userID, r))
	}
	inserted, err := store.InsertReps(ctx, rows)
	if err != nil {
		return fmt.Errorf("inserting reps: %w", err)
	}

	res.AnalysisID = id.String()
	res.RepsInserted = inserted
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
