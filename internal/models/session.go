package models

import "time"

// SessionInfo describes a live conversation session
type SessionInfo struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Turns        int       `json:"turns"`
}

// IsIdle checks if the session has been inactive longer than ttl
func (s *SessionInfo) IsIdle(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActivity) > ttl
}

// UpdateActivity records a processed turn
func (s *SessionInfo) UpdateActivity(now time.Time) {
	s.LastActivity = now
	s.Turns++
}
