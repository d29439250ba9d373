// Package timeline reads and writes per-frame angle timelines as CSV.
package timeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/claude/curlform/internal/curl"
)

// Accepted header names, first match wins. The extractor tools over the
// years have used several spellings for the same measurement.
var (
	timeColumns       = []string{"time_s", "timestamp", "time"}
	angleColumns      = []string{"%s_angle_raw_deg", "%s_arm_angle", "%s_angle"}
	torsoColumns      = []string{"%s_torso_angle_deg", "%s_torso_arm_angle_deg", "%s_elbow_alignment"}
	alignedColumns    = []string{"%s_aligned"}
	visibleColumns    = []string{"%s_arm_visible", "%s_visible"}
	confidenceColumns = []string{"%s_avg_confidence", "%s_confidence"}
)

type armColumns struct {
	angle, torso, aligned, visible, confidence int
}

type layout struct {
	time int
	arms [2]armColumns
}

func lookup(header map[string]int, side curl.Side, patterns []string) int {
	for _, p := range patterns {
		name := p
		if strings.Contains(p, "%s") {
			name = fmt.Sprintf(p, side)
		}
		if i, ok := header[name]; ok {
			return i
		}
	}
	return -1
}

func newLayout(row []string) (layout, error) {
	header := make(map[string]int, len(row))
	for i, name := range row {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	l := layout{time: lookup(header, curl.SideLeft, timeColumns)}
	if l.time < 0 {
		return l, errors.New("missing time column (time_s)")
	}
	found := false
	for _, side := range curl.Sides {
		a := armColumns{
			angle:      lookup(header, side, angleColumns),
			torso:      lookup(header, side, torsoColumns),
			aligned:    lookup(header, side, alignedColumns),
			visible:    lookup(header, side, visibleColumns),
			confidence: lookup(header, side, confidenceColumns),
		}
		if a.angle >= 0 {
			found = true
		}
		l.arms[side] = a
	}
	if !found {
		return l, errors.New("missing arm angle columns (left_angle_raw_deg, right_angle_raw_deg)")
	}
	return l, nil
}

// Parse reads a timeline CSV into frame samples. Empty cells mean the value
// was not measured. Files without visibility columns are treated as fully
// visible with confidence 1.
func Parse(r io.Reader) ([]curl.FrameSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty timeline")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	l, err := newLayout(head)
	if err != nil {
		return nil, err
	}

	var frames []curl.FrameSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		ts, err := strconv.ParseFloat(cell(rec, l.time), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid time %q", line, cell(rec, l.time))
		}
		f := curl.FrameSample{At: curl.Seconds(ts)}
		for _, side := range curl.Sides {
			arm, err := parseArm(rec, l.arms[side])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, side, err)
			}
			if side == curl.SideLeft {
				f.Left = arm
			} else {
				f.Right = arm
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func parseArm(rec []string, c armColumns) (curl.ArmSample, error) {
	var s curl.ArmSample
	var err error
	if s.Angle, err = optFloat(cell(rec, c.angle)); err != nil {
		return s, fmt.Errorf("angle: %w", err)
	}
	if s.TorsoAngle, err = optFloat(cell(rec, c.torso)); err != nil {
		return s, fmt.Errorf("torso angle: %w", err)
	}

	s.Aligned = true
	if v := cell(rec, c.aligned); v != "" {
		if s.Aligned, err = parseBool(v); err != nil {
			return s, fmt.Errorf("aligned: %w", err)
		}
	}

	if c.visible < 0 && c.confidence < 0 {
		s.Visible, s.Confidence = true, 1
		return s, nil
	}
	s.Visible = true
	if v := cell(rec, c.visible); v != "" {
		if s.Visible, err = parseBool(v); err != nil {
			return s, fmt.Errorf("visible: %w", err)
		}
	}
	s.Confidence = 1
	if v := cell(rec, c.confidence); v != "" {
		if s.Confidence, err = strconv.ParseFloat(v, 64); err != nil {
			return s, fmt.Errorf("confidence %q: %w", v, err)
		}
	}
	return s, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func optFloat(v string) (*float64, error) {
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "none") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", v)
	}
	return &f, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}
