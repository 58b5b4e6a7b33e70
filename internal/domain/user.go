package domain

import (
	"time"
)

// User represents a learner profile with their training preferences.
type User struct {
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	Theme       Theme      `json:"theme"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	Phase       Phase      `json:"phase"`
	TotalPoints int        `json:"total_points"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EffectiveTheme returns the user's chosen theme, or the default when the
// profile has none yet.
func (u *User) EffectiveTheme() Theme {
	if u.Theme == "" {
		return DefaultTheme
	}
	return u.Theme
}

// EffectivePhase returns the user's measurement phase, defaulting to pre.
func (u *User) EffectivePhase() Phase {
	if u.Phase == "" {
		return PhasePre
	}
	return u.Phase
}
