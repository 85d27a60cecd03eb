package entity

import "time"

// Session - one joined player's credentials for one game. At most one
// session exists per (game, role); viewers are never persisted.
type Session struct {
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	GameToken    string    `json:"game_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsLive - an expired access token is inert, but the session itself
// stays refreshable until the reaper removes it.
func (that *Session) IsLive(now time.Time) bool {
	return now.Before(that.ExpiresAt)
}
