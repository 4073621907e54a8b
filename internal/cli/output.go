package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case LoginResult:
		o.printLoginResult(v)
	case RegisterResult:
		_, _ = fmt.Fprintf(o.w, "Registered user %s\n", v.UserID)
	case SessionResult:
		o.printUser(v.User)
	case TOTPEnrollment:
		o.printTOTPEnrollment(v)
	case SuccessResult:
		if v.Success {
			_, _ = fmt.Fprintln(o.w, "OK")
		} else {
			_, _ = fmt.Fprintln(o.w, "Rejected")
		}
	case []Marker:
		o.printMarkers(v)
	case HubStatus:
		o.printHubStatus(v)
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	HasTOTP  bool   `json:"hasTOTP"`
}

// LoginResult is the login response
type LoginResult struct {
	Success   bool   `json:"success"`
	User      User   `json:"user"`
	Token     string `json:"token"`
	DeviceID  string `json:"deviceId"`
	ExpiresAt string `json:"expiresAt"`
}

// RegisterResult is the registration response
type RegisterResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

// SessionResult is the session introspection response
type SessionResult struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// TOTPEnrollment is the TOTP enable response
type TOTPEnrollment struct {
	Success           bool   `json:"success"`
	Secret            string `json:"secret"`
	EnrollmentPayload string `json:"enrollmentPayload"`
	QRCode            string `json:"qrCode,omitempty"`
}

// SuccessResult is the bare success response
type SuccessResult struct {
	Success bool `json:"success"`
}

// Marker response type
type Marker struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Shape     string  `json:"shape"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color,omitempty"`
	CreatedBy string  `json:"created_by,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// HubStatus response type
type HubStatus struct {
	Connected bool `json:"connected"`
	Clients   int  `json:"clients"`
	Port      int  `json:"port"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	totp := "no"
	if u.HasTOTP {
		totp = "yes"
	}
	_, _ = fmt.Fprintf(o.w, "User: %s (%s)\n", u.Username, u.ID)
	_, _ = fmt.Fprintf(o.w, "TOTP: %s\n", totp)
}

func (o *Output) printLoginResult(r LoginResult) {
	o.printUser(r.User)
	_, _ = fmt.Fprintf(o.w, "Device: %s\n", r.DeviceID)
	_, _ = fmt.Fprintf(o.w, "Expires: %s\n", r.ExpiresAt)
	_, _ = fmt.Fprintf(o.w, "Token: %s\n", r.Token)
}

func (o *Output) printTOTPEnrollment(e TOTPEnrollment) {
	_, _ = fmt.Fprintf(o.w, "Secret: %s\n", e.Secret)
	_, _ = fmt.Fprintf(o.w, "Enrollment URI: %s\n", e.EnrollmentPayload)
	_, _ = fmt.Fprintln(o.w, "Add the secret to an authenticator app, then run: tacmap totp verify <code>")
}

func (o *Output) printMarkers(markers []Marker) {
	if len(markers) == 0 {
		_, _ = fmt.Fprintln(o.w, "No markers")
		return
	}
	_, _ = fmt.Fprintf(o.w, "Markers (%d):\n", len(markers))
	for _, m := range markers {
		line := fmt.Sprintf("  - %s %s/%s at (%.1f, %.1f) by %s", m.ID, m.Type, m.Shape, m.X, m.Y, m.CreatedBy)
		if m.Notes != "" {
			line += " - " + strings.ReplaceAll(m.Notes, "\n", " ")
		}
		_, _ = fmt.Fprintln(o.w, line)
	}
}

func (o *Output) printHubStatus(s HubStatus) {
	state := "stopped"
	if s.Connected {
		state = "running"
	}
	_, _ = fmt.Fprintf(o.w, "Hub: %s\n", state)
	_, _ = fmt.Fprintf(o.w, "Clients: %d\n", s.Clients)
	_, _ = fmt.Fprintf(o.w, "Port: %d\n", s.Port)
}
