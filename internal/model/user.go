package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// User is a registered account. Username is case-sensitive and immutable.
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	TOTPSecret   string    `json:"totp_secret,omitempty"` // empty until enrolled
	CreatedAt    time.Time `json:"created_at"`
}

// HasTOTP reports whether a second factor has been enrolled
func (u *User) HasTOTP() bool {
	return u.TOTPSecret != ""
}

// RecoveryQuestion is one of the security questions supplied at registration
type RecoveryQuestion struct {
	UserID     UserID `json:"user_id"`
	Question   string `json:"question"`
	AnswerHash string `json:"answer_hash"`
}

// Session is an issued login for one device
type Session struct {
	Token     string    `json:"token"`
	UserID    UserID    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
