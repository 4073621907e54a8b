// Package protocol is the JSON framing of the real-time channel.
//
// Client to hub:   {"type":"marker","action":"add"|"remove","data":...}
// Hub welcome:     {"type":"connected","message":...,"clients":n}
// Hub broadcast:   {"type":"marker","action":...,"data":...,"timestamp":...}
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
)

// ErrMalformedMessage is returned for frames that cannot be understood
var ErrMalformedMessage = errors.New("malformed message")

// Message types
const (
	TypeMarker    = "marker"
	TypeConnected = "connected"
)

// Action is a marker mutation kind
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

const welcomeMessage = "Connected to tactical map sync server"

// Envelope is the outer shape shared by every frame
type Envelope struct {
	Type   string          `json:"type"`
	Action Action          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Welcome is sent to a connection as soon as it joins
type Welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Clients int    `json:"clients"`
}

// Broadcast announces a persisted mutation
type Broadcast struct {
	Type      string `json:"type"`
	Action    Action `json:"action"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// RemovePayload is the data of a remove event
type RemovePayload struct {
	ID string `json:"id"`
}

// MarkerEvent is a decoded marker envelope. Marker is set for adds, ID for
// both adds and removes.
type MarkerEvent struct {
	Action Action
	ID     string
	Marker *model.Marker
}

// Decode parses one inbound frame
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &env, nil
}

// IsMarker reports whether the envelope carries a marker event
func (e *Envelope) IsMarker() bool {
	return e.Type == TypeMarker
}

// MarkerEvent decodes the data of a marker envelope
func (e *Envelope) MarkerEvent() (MarkerEvent, error) {
	if !e.IsMarker() {
		return MarkerEvent{}, fmt.Errorf("%w: type %q is not a marker event", ErrMalformedMessage, e.Type)
	}
	if len(e.Data) == 0 {
		return MarkerEvent{}, fmt.Errorf("%w: missing data", ErrMalformedMessage)
	}

	switch e.Action {
	case ActionAdd:
		var m model.Marker
		if err := json.Unmarshal(e.Data, &m); err != nil {
			return MarkerEvent{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return MarkerEvent{Action: ActionAdd, ID: m.ID, Marker: &m}, nil
	case ActionRemove:
		var p RemovePayload
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return MarkerEvent{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if p.ID == "" {
			return MarkerEvent{}, fmt.Errorf("%w: remove without id", ErrMalformedMessage)
		}
		return MarkerEvent{Action: ActionRemove, ID: p.ID}, nil
	default:
		return MarkerEvent{}, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, e.Action)
	}
}

// EncodeWelcome builds the frame sent on connect
func EncodeWelcome(clients int) ([]byte, error) {
	return json.Marshal(Welcome{
		Type:    TypeConnected,
		Message: welcomeMessage,
		Clients: clients,
	})
}

// EncodeBroadcast builds a marker broadcast stamped with ts
func EncodeBroadcast(action Action, data any, ts time.Time) ([]byte, error) {
	return json.Marshal(Broadcast{
		Type:      TypeMarker,
		Action:    action,
		Data:      data,
		Timestamp: ts.UTC().Format(TimestampFormat),
	})
}
