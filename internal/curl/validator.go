package curl

import (
	"fmt"
	"sort"
)

// ReasonCode identifies one kind of form problem.
type ReasonCode string

const (
	ReasonDidNotReachDown ReasonCode = "did_not_reach_down"
	ReasonNoTransition    ReasonCode = "no_transition"
	ReasonDidNotReachUp   ReasonCode = "did_not_reach_up"
	ReasonTorsoViolation  ReasonCode = "torso_violation"
	ReasonInsufficientROM ReasonCode = "insufficient_rom"
)

// Reason is a form problem attached to a counted rep.
type Reason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

func (r Reason) String() string { return r.Message }

// Verdict is the outcome of validating a closed cycle.
type Verdict struct {
	Counted bool     `json:"counted"`
	Correct bool     `json:"correct"`
	Reasons []Reason `json:"reasons,omitempty"`
}

// Validate decides whether a closed cycle counts as a rep and whether its
// form was correct. Reasons are sorted by code.
func Validate(c CycleClose, cfg Config) Verdict {
	var reasons []Reason
	if !c.VisitedDown {
		reasons = append(reasons, Reason{
			Code:    ReasonDidNotReachDown,
			Message: fmt.Sprintf("Did not reach DOWN position (arm angle must be >= %.0f°)", cfg.AngleThresholdDown),
		})
	}
	if !c.VisitedTransition {
		reasons = append(reasons, Reason{
			Code:    ReasonNoTransition,
			Message: "No transition detected",
		})
	}
	if !c.VisitedUp {
		reasons = append(reasons, Reason{
			Code:    ReasonDidNotReachUp,
			Message: fmt.Sprintf("Did not reach UP position (arm angle must be <= %.0f°)", cfg.AngleThresholdUp),
		})
	}
	if c.TorsoViolation {
		reasons = append(reasons, Reason{
			Code:    ReasonTorsoViolation,
			Message: fmt.Sprintf("Torso angle exceeded %.0f° (3-frame avg) during rep cycle", cfg.TorsoAngleThreshold),
		})
	}
	if cfg.MinROM > 0 && c.ROM() < cfg.MinROM {
		reasons = append(reasons, Reason{
			Code:    ReasonInsufficientROM,
			Message: fmt.Sprintf("Insufficient ROM (%.1f° < %.1f°)", c.ROM(), cfg.MinROM),
		})
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i].Code < reasons[j].Code })

	counted := c.Progress == ProgressReadyToClose
	return Verdict{
		Counted: counted,
		Correct: counted && len(reasons) == 0,
		Reasons: reasons,
	}
}

// ReasonMessages returns the human-readable messages in order.
func ReasonMessages(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = r.Message
	}
	return out
}
