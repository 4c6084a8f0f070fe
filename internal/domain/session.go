package domain

import "time"

// Session is the authenticated identity bound to a device.
type Session struct {
	User      User
	TokenID   string
	ExpiresAt time.Time
	// DeviceID is the device that completed the sign-in.
	DeviceID string
}

// UserID returns the session owner id, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}
