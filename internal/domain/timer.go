package domain

import "time"

// Phase is one of the two alternating pomodoro intervals.
type Phase string

const (
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// Next returns the phase that follows the receiver in the cycle.
func (p Phase) Next() Phase {
	if p == PhaseWork {
		return PhaseBreak
	}
	return PhaseWork
}

// TimerState is one user's pomodoro position. It exists from the first
// start until an explicit stop; absence means idle.
type TimerState struct {
	User      UserID        `json:"user"`
	Phase     Phase         `json:"phase"`
	Remaining time.Duration `json:"remaining"`
	Running   bool          `json:"running"`
	AnchorAt  time.Time     `json:"-"`
}
