package domain

import "time"

const dayLayout = "2006-01-02"

// Day is a calendar date in the process-local zone. The ISO layout keeps
// lexical order equal to chronological order.
type Day string

func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// Prev returns the previous calendar day. A zero Day has no previous day.
func (d Day) Prev() Day {
	if d == "" {
		return ""
	}
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return ""
	}
	return DayOf(t.AddDate(0, 0, -1))
}

// OpenSession exists only while a user occupies a tracked room.
// At most one per user at a time.
type OpenSession struct {
	User      UserID
	Kind      RoomKind
	StartedAt time.Time
}

// HistorySize caps the rolling session-duration window.
const HistorySize = 10

// UserStats accumulates finalized study sessions. Mutated only by the
// stats aggregator.
type UserStats struct {
	User       UserID          `json:"user"`
	Lifetime   time.Duration   `json:"lifetime"`
	Sessions   int             `json:"sessions"`
	History    []time.Duration `json:"history"` // newest last, capped at HistorySize
	LastActive Day             `json:"last_active"`
	Streak     int             `json:"streak"`
}

// Average is the mean over the rolling history, a derived read.
func (s *UserStats) Average() time.Duration {
	if len(s.History) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.History {
		sum += d
	}
	return sum / time.Duration(len(s.History))
}

// Goal tracks a daily study target. Accumulation resets lazily the first
// time the goal is touched on a new calendar date.
type Goal struct {
	User          UserID        `json:"user"`
	Target        time.Duration `json:"target"`
	Accumulated   time.Duration `json:"accumulated"`
	EffectiveDate Day           `json:"effective_date"`
}
