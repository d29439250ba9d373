package curl

import "fmt"

// Side identifies one arm.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Sides lists both arms in processing order.
var Sides = [2]Side{SideLeft, SideRight}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Title returns the capitalized side name used in form feedback.
func (s Side) Title() string {
	switch s {
	case SideLeft:
		return "Left"
	case SideRight:
		return "Right"
	}
	return s.String()
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSide converts "left" or "right" to a Side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	}
	return 0, fmt.Errorf("unknown side %q", v)
}

// Level is the coarse position class of an arm.
type Level int

const (
	LevelUnknown Level = iota
	LevelDown
	LevelTransition
	LevelUp
)

func (l Level) String() string {
	switch l {
	case LevelDown:
		return "down"
	case LevelTransition:
		return "transition"
	case LevelUp:
		return "up"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "down":
		*l = LevelDown
	case "transition":
		*l = LevelTransition
	case "up":
		*l = LevelUp
	case "unknown", "":
		*l = LevelUnknown
	default:
		return fmt.Errorf("unknown level %q", b)
	}
	return nil
}

// levelSet records which committed levels a cycle has visited.
type levelSet uint8

func (s levelSet) has(l Level) bool { return s&(1<<uint(l)) != 0 }

func (s *levelSet) add(l Level) { *s |= 1 << uint(l) }

// Progress tracks how far a cycle has advanced through the ordered
// down → up → down movement. Only ProgressReadyToClose counts as a rep.
type Progress int

const (
	ProgressNotStarted Progress = iota
	// ProgressAwaitingUp: the arm left DOWN and has not committed UP yet.
	ProgressAwaitingUp
	// ProgressAwaitingDescent: UP was reached; waiting for UP → TRANSITION.
	ProgressAwaitingDescent
	// ProgressReadyToClose: descending; the next DOWN commit closes a countable rep.
	ProgressReadyToClose
)

func (p Progress) String() string {
	switch p {
	case ProgressAwaitingUp:
		return "awaiting_up"
	case ProgressAwaitingDescent:
		return "awaiting_descent"
	case ProgressReadyToClose:
		return "ready_to_close"
	}
	return "not_started"
}

// MarshalText implements encoding.TextMarshaler.
func (p Progress) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// StartedFromDown reports whether the cycle began with a DOWN exit.
func (p Progress) StartedFromDown() bool { return p >= ProgressAwaitingUp }

// ReachedUp reports whether UP was committed after the cycle started.
func (p Progress) ReachedUp() bool { return p >= ProgressAwaitingDescent }

// Descending reports whether UP → TRANSITION happened after reaching UP.
func (p Progress) Descending() bool { return p == ProgressReadyToClose }
