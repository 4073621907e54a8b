package storage

import (
	"context"
	"sort"
	"time"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
)

// Storage is the durable record for credentials, sessions and markers.
// Lookups of absent entities return the model.Err*NotFound sentinels.
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error // model.ErrDuplicateUsername
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	SetTOTPSecret(ctx context.Context, id model.UserID, secret string) error

	// Recovery question operations
	SaveRecoveryQuestions(ctx context.Context, id model.UserID, questions []model.RecoveryQuestion) error
	GetRecoveryQuestions(ctx context.Context, id model.UserID) ([]model.RecoveryQuestion, error)

	// Session operations
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSessionsForUser(ctx context.Context, id model.UserID) (int, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)

	// Marker operations
	ListMarkers(ctx context.Context) ([]*model.Marker, error) // newest first
	AddMarker(ctx context.Context, marker *model.Marker) error // model.ErrMarkerExists
	RemoveMarker(ctx context.Context, id string) error         // idempotent
	ClearMarkers(ctx context.Context) error

	Close() error
}

// SortMarkers orders markers newest first, breaking timestamp ties by
// descending id so every backend lists in the same order.
func SortMarkers(markers []*model.Marker) {
	sort.Slice(markers, func(i, j int) bool {
		a, b := markers[i], markers[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
}
