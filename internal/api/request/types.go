package request

// RecoveryAnswer is one security question and its answer
type RecoveryAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Username          string           `json:"username"`
	Password          string           `json:"password"`
	SecurityQuestions []RecoveryAnswer `json:"securityQuestions"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifyTOTPRequest carries a six digit authenticator code
type VerifyTOTPRequest struct {
	Code string `json:"code"`
}

// VerifyRecoveryRequest checks security answers for a username
type VerifyRecoveryRequest struct {
	Username string           `json:"username"`
	Answers  []RecoveryAnswer `json:"answers"`
}

// AddMarkerRequest is a marker as sent by a client. Color, createdBy and
// timestamp are optional and derived server-side when absent.
type AddMarkerRequest struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Shape     string  `json:"shape"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color,omitempty"`
	CreatedBy string  `json:"created_by,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}
