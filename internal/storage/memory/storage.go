package memory

import (
	"context"
	"sync"
	"time"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state
// with the store.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	questions     map[model.UserID][]model.RecoveryQuestion
	sessions      map[string]*model.Session
	markers       map[string]*model.Marker
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		questions:     make(map[model.UserID][]model.RecoveryQuestion),
		sessions:      make(map[string]*model.Session),
		markers:       make(map[string]*model.Marker),
	}
}

var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernameIndex[user.Username]; ok {
		return model.ErrDuplicateUsername
	}
	u := *user
	s.users[u.ID] = &u
	s.usernameIndex[u.Username] = u.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *Storage) SetTOTPSecret(ctx context.Context, id model.UserID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.TOTPSecret = secret
	return nil
}

// Recovery question operations

func (s *Storage) SaveRecoveryQuestions(ctx context.Context, id model.UserID, questions []model.RecoveryQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	qs := make([]model.RecoveryQuestion, len(questions))
	for i, q := range questions {
		q.UserID = id
		qs[i] = q
	}
	s.questions[id] = qs
	return nil
}

func (s *Storage) GetRecoveryQuestions(ctx context.Context, id model.UserID) ([]model.RecoveryQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs := s.questions[id]
	out := make([]model.RecoveryQuestion, len(qs))
	copy(out, qs)
	return out, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[cp.Token] = &cp
	return nil
}

func (s *Storage) GetSession(ctx context.Context, token string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Storage) DeleteSessionsForUser(ctx context.Context, id model.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// Marker operations

func (s *Storage) ListMarkers(ctx context.Context) ([]*model.Marker, error) {
	s.mu.RLock()
	out := make([]*model.Marker, 0, len(s.markers))
	for _, m := range s.markers {
		cp := *m
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	storage.SortMarkers(out)
	return out, nil
}

func (s *Storage) AddMarker(ctx context.Context, marker *model.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[marker.ID]; ok {
		return model.ErrMarkerExists
	}
	cp := *marker
	s.markers[cp.ID] = &cp
	return nil
}

func (s *Storage) RemoveMarker(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, id)
	return nil
}

func (s *Storage) ClearMarkers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = make(map[string]*model.Marker)
	return nil
}

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}
