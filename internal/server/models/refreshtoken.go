package models

import "time"

// RefreshToken is a persisted session. The row existing with ExpiresAt in
// the future is what makes the session live.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
