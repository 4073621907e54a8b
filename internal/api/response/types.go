package response

import (
	"encoding/base64"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/protocol"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
)

// User represents the logged in user in API responses
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	HasTOTP  bool   `json:"hasTOTP"`
}

// UserFromIdentity converts an auth.Identity
func UserFromIdentity(id *auth.Identity) User {
	return User{
		ID:       string(id.UserID),
		Username: id.Username,
		HasTOTP:  id.HasTOTP,
	}
}

// Success is the body of operations with no other payload
type Success struct {
	Success bool `json:"success"`
}

// OK is the common successful Success body
var OK = Success{Success: true}

// RegisterResponse is returned after creating an account
type RegisterResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Success   bool   `json:"success"`
	User      User   `json:"user"`
	Token     string `json:"token"`
	DeviceID  string `json:"deviceId"`
	ExpiresAt string `json:"expiresAt"`
}

// LoginResponseFromResult converts an auth.LoginResult
func LoginResponseFromResult(r *auth.LoginResult) LoginResponse {
	return LoginResponse{
		Success: true,
		User: User{
			ID:       string(r.UserID),
			Username: r.Username,
			HasTOTP:  r.HasTOTP,
		},
		Token:     r.Token,
		DeviceID:  r.DeviceID,
		ExpiresAt: r.ExpiresAt.UTC().Format(protocol.TimestampFormat),
	}
}

// SessionResponse describes the caller's own session
type SessionResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// TOTPEnrollmentResponse carries everything an authenticator app needs
type TOTPEnrollmentResponse struct {
	Success           bool   `json:"success"`
	Secret            string `json:"secret"`
	EnrollmentPayload string `json:"enrollmentPayload"`
	QRCode            string `json:"qrCode"`
}

// TOTPEnrollmentFromModel converts an auth.TOTPEnrollment; the QR code is
// rendered as a PNG data URL
func TOTPEnrollmentFromModel(e *auth.TOTPEnrollment) TOTPEnrollmentResponse {
	return TOTPEnrollmentResponse{
		Success:           true,
		Secret:            e.Secret,
		EnrollmentPayload: e.EnrollmentURI,
		QRCode:            "data:image/png;base64," + base64.StdEncoding.EncodeToString(e.QRCodePNG),
	}
}

// Health is the body of the health check
type Health struct {
	Status string `json:"status"`
}
