package types

import "time"

// PulseLevel is a coarse self-reported rating.
type PulseLevel string

const (
	PulseLow    PulseLevel = "low"
	PulseMedium PulseLevel = "medium"
	PulseHigh   PulseLevel = "high"
)

// IsValid reports whether the level is one of the known ratings.
func (l PulseLevel) IsValid() bool {
	switch l {
	case PulseLow, PulseMedium, PulseHigh:
		return true
	}
	return false
}

// Score maps a level onto 0..100 for aggregation.
func (l PulseLevel) Score() int {
	switch l {
	case PulseLow:
		return 0
	case PulseMedium:
		return 50
	case PulseHigh:
		return 100
	}
	return 0
}

// PulseResponse is one answer to a well-being check-in.
type PulseResponse struct {
	UserID     string     `json:"user_id"`
	Dimension  string     `json:"dimension"`
	Level      PulseLevel `json:"level"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// PulseTime is an hour/minute within the working day.
type PulseTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// PulseEnrollment is a user's scheduled daily check-ins.
type PulseEnrollment struct {
	UserID    string      `json:"user_id"`
	ChannelID string      `json:"channel_id"`
	Times     []PulseTime `json:"times"`
	LastSent  string      `json:"last_sent,omitempty"` // YYYY-MM-DD of the last delivered pulse
}
