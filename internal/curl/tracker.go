package curl

import (
	"log/slog"
	"math"
	"time"
)

// cycle is the bookkeeping for one movement cycle. It is replaced wholesale
// when the arm leaves DOWN and cleared when the cycle closes.
type cycle struct {
	progress Progress
	visited  levelSet
	start    time.Duration

	firstUpAt time.Duration
	descentAt time.Duration

	hasAngle bool
	minAngle float64
	maxAngle float64

	torsoViolation bool
	maxTorso       float64

	frames     int
	misaligned int
}

func (c *cycle) observe(angle float64, aligned bool) {
	if !c.hasAngle {
		c.minAngle, c.maxAngle, c.hasAngle = angle, angle, true
	} else {
		c.minAngle = math.Min(c.minAngle, angle)
		c.maxAngle = math.Max(c.maxAngle, angle)
	}
	c.frames++
	if !aligned {
		c.misaligned++
	}
}

// CycleClose describes a cycle that ended with a committed return to DOWN.
// Whether it counts as a rep is decided by Validate.
type CycleClose struct {
	Side     Side
	From     Level
	Start    time.Duration
	End      time.Duration
	Progress Progress

	VisitedDown       bool
	VisitedTransition bool
	VisitedUp         bool

	HasAngles bool
	MinAngle  float64
	MaxAngle  float64

	TorsoViolation bool
	MaxTorsoAngle  float64

	// FirstUpAt and DescentAt are zero when the cycle never reached that point.
	FirstUpAt time.Duration
	DescentAt time.Duration

	Frames           int
	MisalignedFrames int
}

// ROM returns the range of motion observed during the cycle.
func (c CycleClose) ROM() float64 {
	if !c.HasAngles {
		return 0
	}
	return c.MaxAngle - c.MinAngle
}

// ArmTracker turns one arm's raw angle stream into debounced level commits.
type ArmTracker struct {
	side Side
	cfg  Config
	log  *slog.Logger

	level        Level
	pending      Level
	hasPending   bool
	pendingSince time.Duration
	lastCommit   time.Duration

	smoother *Smoother
	torso    ring
	cycle    cycle

	last ArmSample
}

// NewArmTracker creates a tracker for one side. cfg is assumed valid.
func NewArmTracker(side Side, cfg Config, log *slog.Logger) *ArmTracker {
	return &ArmTracker{
		side:     side,
		cfg:      cfg,
		log:      log,
		smoother: NewSmoother(cfg.HistoryLength),
		torso:    newRing(TorsoWindow),
	}
}

// Level returns the committed level.
func (t *ArmTracker) Level() Level { return t.level }

// Pending returns the proposed level waiting out its dwell time, if any.
func (t *ArmTracker) Pending() (Level, time.Duration, bool) {
	return t.pending, t.pendingSince, t.hasPending
}

// Progress returns the ordered-sequence progress of the active cycle.
func (t *ArmTracker) Progress() Progress { return t.cycle.progress }

// TorsoViolation reports whether the active cycle has a sticky torso violation.
func (t *ArmTracker) TorsoViolation() bool { return t.cycle.torsoViolation }

// Smoothed returns the moving-average display angle.
func (t *ArmTracker) Smoothed() (float64, bool) { return t.smoother.Value() }

// LastSample returns the most recent sample passed to Update.
func (t *ArmTracker) LastSample() ArmSample { return t.last }

// Reset returns the tracker to its freshly constructed state.
func (t *ArmTracker) Reset() {
	t.level = LevelUnknown
	t.pending, t.hasPending, t.pendingSince = LevelUnknown, false, 0
	t.lastCommit = 0
	t.smoother.Reset()
	t.torso.reset()
	t.cycle = cycle{}
	t.last = ArmSample{}
}

// Update consumes one frame for this arm. It returns a non-nil CycleClose when
// the frame committed a return to DOWN from UP or TRANSITION.
func (t *ArmTracker) Update(s ArmSample, at time.Duration) *CycleClose {
	t.last = s

	// Torso tracking runs while a cycle may be active, even when the arm
	// itself is not usable this frame.
	if t.level != LevelDown {
		t.trackTorso(s.TorsoAngle)
	}

	if !s.Usable(t.cfg.MinLandmarkConfidence) {
		return nil
	}
	angle := *s.Angle

	t.smoother.Add(angle)
	if t.level != LevelDown {
		t.cycle.observe(angle, s.Aligned)
	}

	proposed := t.cfg.classify(angle)
	switch {
	case proposed == t.level:
		t.hasPending = false
	case t.hasPending && t.pending == proposed:
		if at-t.pendingSince >= t.cfg.MinHoldTime {
			return t.commit(proposed, at)
		}
	default:
		t.pending, t.pendingSince, t.hasPending = proposed, at, true
	}
	return nil
}

func (t *ArmTracker) trackTorso(torso *float64) {
	if torso == nil || math.IsNaN(*torso) {
		if t.cfg.MissingTorsoIsViolation {
			t.cycle.torsoViolation = true
		}
		return
	}
	t.cycle.maxTorso = math.Max(t.cycle.maxTorso, *torso)
	t.torso.push(*torso)
	if !t.torso.full() {
		return
	}
	if avg, _ := t.torso.mean(); avg > t.cfg.TorsoAngleThreshold {
		t.cycle.torsoViolation = true
	}
}

func (t *ArmTracker) commit(next Level, at time.Duration) *CycleClose {
	prev := t.level
	t.level = next
	t.hasPending = false
	t.lastCommit = at

	t.log.Debug("state change", "side", t.side, "from", prev, "to", next,
		"at", at, "progress", t.cycle.progress)

	if (prev == LevelUp || prev == LevelTransition) && next == LevelDown {
		return t.closeCycle(prev, at)
	}

	if prev == LevelDown {
		// Leaving DOWN starts a new cycle.
		t.torso.reset()
		t.cycle = cycle{progress: ProgressAwaitingUp, start: at}
		t.cycle.visited.add(LevelDown)
	}
	t.cycle.visited.add(next)

	switch {
	case next == LevelUp && t.cycle.progress == ProgressAwaitingUp:
		t.cycle.progress = ProgressAwaitingDescent
		t.cycle.firstUpAt = at
	case prev == LevelUp && next == LevelTransition && t.cycle.progress == ProgressAwaitingDescent:
		t.cycle.progress = ProgressReadyToClose
		t.cycle.descentAt = at
	}
	return nil
}

func (t *ArmTracker) closeCycle(from Level, at time.Duration) *CycleClose {
	c := t.cycle
	ev := &CycleClose{
		Side:              t.side,
		From:              from,
		Start:             c.start,
		End:               at,
		Progress:          c.progress,
		VisitedDown:       c.visited.has(LevelDown),
		VisitedTransition: c.visited.has(LevelTransition),
		VisitedUp:         c.visited.has(LevelUp),
		HasAngles:         c.hasAngle,
		MinAngle:          c.minAngle,
		MaxAngle:          c.maxAngle,
		TorsoViolation:    c.torsoViolation,
		MaxTorsoAngle:     c.maxTorso,
		FirstUpAt:         c.firstUpAt,
		DescentAt:         c.descentAt,
		Frames:            c.frames,
		MisalignedFrames:  c.misaligned,
	}

	t.cycle = cycle{}
	t.smoother.Reset()
	t.torso.reset()
	return ev
}
