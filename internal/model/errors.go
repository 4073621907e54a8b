package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Marker errors
	ErrMarkerExists = errors.New("marker id already exists")
)
