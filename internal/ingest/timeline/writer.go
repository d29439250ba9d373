package timeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/claude/curlform/internal/curl"
)

// Header is the column layout produced by Writer. Parse accepts it back.
var Header = []string{
	"frame", "time_s",
	"left_cycle_index", "right_cycle_index",
	"left_state", "right_state",
	"left_angle_raw_deg", "right_angle_raw_deg",
	"left_angle_smoothed_deg", "right_angle_smoothed_deg",
	"left_torso_angle_deg", "right_torso_angle_deg",
	"left_aligned", "right_aligned",
	"left_arm_visible", "right_arm_visible",
	"left_avg_confidence", "right_avg_confidence",
	"left_reps", "right_reps",
	"left_correct_reps", "right_correct_reps",
	"left_incorrect_reps", "right_incorrect_reps",
	"total_reps",
	"left_last_rep_reasons", "right_last_rep_reasons",
}

// Writer writes one CSV row per status snapshot.
type Writer struct {
	w     *csv.Writer
	wrote bool
}

// NewWriter creates a timeline writer. The header is written with the first row.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends the row for one frame.
func (tw *Writer) Write(st curl.Status) error {
	if !tw.wrote {
		if err := tw.w.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		tw.wrote = true
	}
	l, r := st.Left, st.Right
	c := st.Counters
	row := []string{
		strconv.Itoa(st.Frame - 1), strconv.FormatFloat(st.At.Seconds(), 'f', 3, 64),
		strconv.Itoa(l.CycleIndex), strconv.Itoa(r.CycleIndex),
		l.Level.String(), r.Level.String(),
		optDeg(l.RawAngle), optDeg(r.RawAngle),
		optDeg(l.SmoothedAngle), optDeg(r.SmoothedAngle),
		optDeg(l.TorsoAngle), optDeg(r.TorsoAngle),
		flag(l.Aligned), flag(r.Aligned),
		flag(l.Visible), flag(r.Visible),
		strconv.FormatFloat(l.Confidence, 'f', 3, 64), strconv.FormatFloat(r.Confidence, 'f', 3, 64),
		strconv.Itoa(c.LeftReps), strconv.Itoa(c.RightReps),
		strconv.Itoa(c.LeftCorrect), strconv.Itoa(c.RightCorrect),
		strconv.Itoa(c.LeftIncorrect), strconv.Itoa(c.RightIncorrect),
		strconv.Itoa(c.TotalReps),
		strings.Join(l.LastReasons, "; "), strings.Join(r.LastReasons, "; "),
	}
	if err := tw.w.Write(row); err != nil {
		return fmt.Errorf("writing frame %d: %w", st.Frame, err)
	}
	return nil
}

// WriteAll writes every snapshot and flushes.
func (tw *Writer) WriteAll(timeline []curl.Status) error {
	for _, st := range timeline {
		if err := tw.Write(st); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Flush writes any buffered rows.
func (tw *Writer) Flush() error {
	tw.w.Flush()
	return tw.w.Error()
}

func optDeg(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
