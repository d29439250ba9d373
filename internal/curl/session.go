package curl

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrNotInitialized is returned when a Session was not built with NewSession.
	ErrNotInitialized = errors.New("curl: session not initialized")
	// ErrOutOfOrder is returned for a frame whose timestamp precedes the
	// previous frame's. The frame is ignored.
	ErrOutOfOrder = errors.New("curl: frame timestamp precedes previous frame")
)

// Session counts reps for both arms of one video or live stream. A Session
// is not safe for concurrent use; each stream owns its own.
type Session struct {
	cfg Config
	log *slog.Logger

	arms        [2]*ArmTracker
	counters    Counters
	lastReasons [2][]Reason
	reps        []RepRecord

	frames int
	lastAt time.Duration

	onRep func(RepRecord)
}

// NewSession validates cfg and creates a session with both arms UNKNOWN.
func NewSession(cfg Config, log *slog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Session{cfg: cfg, log: log}
	for i, side := range Sides {
		s.arms[i] = NewArmTracker(side, cfg, log)
	}
	return s, nil
}

// Config returns the session's tracker options.
func (s *Session) Config() Config { return s.cfg }

// OnRep registers a callback invoked synchronously for every counted rep.
func (s *Session) OnRep(fn func(RepRecord)) { s.onRep = fn }

// Update feeds one frame through both arm trackers and returns the resulting
// status. Frames must arrive in non-decreasing time order.
func (s *Session) Update(f FrameSample) (Status, error) {
	if s == nil || s.arms[SideLeft] == nil {
		return Status{}, ErrNotInitialized
	}
	if s.frames > 0 && f.At < s.lastAt {
		return s.Status(), fmt.Errorf("frame at %v after %v: %w", f.At, s.lastAt, ErrOutOfOrder)
	}
	s.frames++
	s.lastAt = f.At

	for i, side := range Sides {
		if closed := s.arms[i].Update(f.Arm(side), f.At); closed != nil {
			s.apply(*closed)
		}
	}
	return s.Status(), nil
}

// apply is the only place counters change.
func (s *Session) apply(c CycleClose) {
	v := Validate(c, s.cfg)
	if !v.Counted {
		s.log.Debug("cycle discarded", "side", c.Side, "progress", c.Progress, "at", c.End)
		return
	}

	index := s.counters.record(c.Side, v.Correct)
	s.lastReasons[c.Side] = v.Reasons

	rep := RepRecord{
		Side:             c.Side,
		Index:            index,
		Start:            c.Start,
		End:              c.End,
		Correct:          v.Correct,
		Reasons:          v.Reasons,
		MinAngle:         c.MinAngle,
		MaxAngle:         c.MaxAngle,
		ROM:              c.ROM(),
		MaxTorsoAngle:    c.MaxTorsoAngle,
		TempoUp:          c.FirstUpAt - c.Start,
		TempoDown:        c.End - c.DescentAt,
		Frames:           c.Frames,
		MisalignedFrames: c.MisalignedFrames,
	}
	s.reps = append(s.reps, rep)

	if v.Correct {
		s.log.Info("rep counted", "side", c.Side, "index", index, "correct", true, "at", c.End)
	} else {
		s.log.Info("rep counted", "side", c.Side, "index", index, "correct", false,
			"reasons", ReasonMessages(v.Reasons), "at", c.End)
	}
	if s.onRep != nil {
		s.onRep(rep)
	}
}

// Status returns a snapshot of the session. It does not change state.
func (s *Session) Status() Status {
	if s == nil || s.arms[SideLeft] == nil {
		return Status{}
	}
	return Status{
		At:       s.lastAt,
		Frame:    s.frames,
		Counters: s.counters,
		Left:     s.armStatus(SideLeft),
		Right:    s.armStatus(SideRight),
	}
}

func (s *Session) armStatus(side Side) ArmStatus {
	t := s.arms[side]
	last := t.LastSample()
	st := ArmStatus{
		Level:            t.Level(),
		Progress:         t.Progress(),
		Visible:          last.Visible,
		Confidence:       last.Confidence,
		Aligned:          last.Aligned,
		AlignmentWarning: last.Angle != nil && !last.Aligned,
		TorsoViolation:   t.TorsoViolation(),
		Reps:             s.counters.Reps(side),
		Correct:          s.counters.Correct(side),
		Incorrect:        s.counters.Incorrect(side),
		CycleIndex:       s.counters.Reps(side),
		LastReasons:      ReasonMessages(s.lastReasons[side]),
	}
	if last.Angle != nil {
		st.RawAngle = Float(*last.Angle)
	}
	if last.TorsoAngle != nil {
		st.TorsoAngle = Float(*last.TorsoAngle)
	}
	if v, ok := t.Smoothed(); ok {
		st.SmoothedAngle = Float(v)
	}
	return st
}

// Reps returns a copy of the counted reps so far.
func (s *Session) Reps() []RepRecord {
	if s == nil {
		return nil
	}
	out := make([]RepRecord, len(s.reps))
	copy(out, s.reps)
	return out
}

// Report returns the session-end output. Cycles still open are not included.
func (s *Session) Report() Report {
	if s == nil || s.arms[SideLeft] == nil {
		return Report{}
	}
	var feedback []string
	for _, side := range Sides {
		for _, r := range s.lastReasons[side] {
			feedback = append(feedback, side.Title()+": "+r.Message)
		}
	}
	return Report{
		Counters:     s.counters,
		Reps:         s.Reps(),
		FormFeedback: feedback,
		Frames:       s.frames,
		Duration:     s.lastAt,
	}
}

// Reset returns the session to its freshly constructed state, keeping the
// config, logger and rep callback.
func (s *Session) Reset() {
	if s == nil || s.arms[SideLeft] == nil {
		return
	}
	for _, t := range s.arms {
		t.Reset()
	}
	s.counters = Counters{}
	s.lastReasons = [2][]Reason{}
	s.reps = nil
	s.frames = 0
	s.lastAt = 0
	s.log.Debug("session reset")
}
