// Package storagetest holds the behaviour every storage backend must share.
// Backend packages embed Suite and supply a fresh store per test.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Suite runs the storage contract against Store, which the embedding suite
// must set in its SetupTest.
type Suite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

func (s *Suite) user(id, username string) *model.User {
	return &model.User{
		ID:           model.UserID(id),
		Username:     username,
		PasswordHash: "hash-" + username,
		CreatedAt:    baseTime,
	}
}

func (s *Suite) marker(id string, ts time.Time) *model.Marker {
	return &model.Marker{
		ID:        id,
		Type:      model.MarkerEnemy,
		Shape:     model.ShapeCircle,
		X:         1200.5,
		Y:         3400,
		Color:     "#FF0000",
		CreatedBy: "alice",
		Timestamp: ts,
	}
}

func (s *Suite) ctx() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))

	byID, err := s.Store.GetUser(s.ctx(), "u1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)
	s.Equal("hash-alice", byID.PasswordHash)
	s.False(byID.HasTOTP())
	s.True(baseTime.Equal(byID.CreatedAt))

	byName, err := s.Store.GetUserByUsername(s.ctx(), "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), byName.ID)
}

func (s *Suite) TestCreateUserDuplicateUsername() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))

	err := s.Store.CreateUser(s.ctx(), s.user("u2", "alice"))
	s.ErrorIs(err, model.ErrDuplicateUsername)
}

func (s *Suite) TestUsernameIsCaseSensitive() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u2", "Alice")))

	_, err := s.Store.GetUserByUsername(s.ctx(), "ALICE")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Store.GetUser(s.ctx(), "missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Store.GetUserByUsername(s.ctx(), "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestSetTOTPSecret() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))
	s.Require().NoError(s.Store.SetTOTPSecret(s.ctx(), "u1", "JBSWY3DPEHPK3PXP"))

	u, err := s.Store.GetUserByUsername(s.ctx(), "alice")
	s.Require().NoError(err)
	s.Equal("JBSWY3DPEHPK3PXP", u.TOTPSecret)
}

func (s *Suite) TestSetTOTPSecretUnknownUser() {
	err := s.Store.SetTOTPSecret(s.ctx(), "missing", "JBSWY3DPEHPK3PXP")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Recovery question tests

func (s *Suite) TestRecoveryQuestionsRoundTrip() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))
	qs := []model.RecoveryQuestion{
		{Question: "First pet?", AnswerHash: "h1"},
		{Question: "Home town?", AnswerHash: "h2"},
	}
	s.Require().NoError(s.Store.SaveRecoveryQuestions(s.ctx(), "u1", qs))

	got, err := s.Store.GetRecoveryQuestions(s.ctx(), "u1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("First pet?", got[0].Question)
	s.Equal("h1", got[0].AnswerHash)
	s.Equal(model.UserID("u1"), got[0].UserID)
	s.Equal("Home town?", got[1].Question)
}

func (s *Suite) TestRecoveryQuestionsEmptyForUnknownUser() {
	got, err := s.Store.GetRecoveryQuestions(s.ctx(), "missing")
	s.Require().NoError(err)
	s.Empty(got)
}

// Session tests

func (s *Suite) TestSaveAndGetSession() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))
	sess := &model.Session{
		Token:     "sess_a",
		UserID:    "u1",
		DeviceID:  "dev_a",
		CreatedAt: baseTime,
		ExpiresAt: baseTime.Add(24 * time.Hour),
	}
	s.Require().NoError(s.Store.SaveSession(s.ctx(), sess))

	got, err := s.Store.GetSession(s.ctx(), "sess_a")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), got.UserID)
	s.Equal("dev_a", got.DeviceID)
	s.True(sess.ExpiresAt.Equal(got.ExpiresAt))
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Store.GetSession(s.ctx(), "nope")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestDeleteSessionsForUserRemovesEveryDevice() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u2", "bob")))
	for _, sess := range []*model.Session{
		{Token: "a1", UserID: "u1", DeviceID: "laptop", CreatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)},
		{Token: "a2", UserID: "u1", DeviceID: "phone", CreatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)},
		{Token: "b1", UserID: "u2", DeviceID: "laptop", CreatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour)},
	} {
		s.Require().NoError(s.Store.SaveSession(s.ctx(), sess))
	}

	n, err := s.Store.DeleteSessionsForUser(s.ctx(), "u1")
	s.Require().NoError(err)
	s.Equal(2, n)

	_, err = s.Store.GetSession(s.ctx(), "a1")
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.Store.GetSession(s.ctx(), "a2")
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.Store.GetSession(s.ctx(), "b1")
	s.NoError(err)
}

func (s *Suite) TestDeleteExpiredSessions() {
	s.Require().NoError(s.Store.CreateUser(s.ctx(), s.user("u1", "alice")))
	s.Require().NoError(s.Store.SaveSession(s.ctx(), &model.Session{
		Token: "old", UserID: "u1", DeviceID: "d", CreatedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour),
	}))
	s.Require().NoError(s.Store.SaveSession(s.ctx(), &model.Session{
		Token: "new", UserID: "u1", DeviceID: "d", CreatedAt: baseTime, ExpiresAt: baseTime.Add(48 * time.Hour),
	}))

	n, err := s.Store.DeleteExpiredSessions(s.ctx(), baseTime.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.Store.GetSession(s.ctx(), "old")
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, err = s.Store.GetSession(s.ctx(), "new")
	s.NoError(err)
}

// Marker tests

func (s *Suite) TestAddListRemoveMarker() {
	m := s.marker("m1", baseTime)
	m.Notes = "enemy squad"
	s.Require().NoError(s.Store.AddMarker(s.ctx(), m))

	list, err := s.Store.ListMarkers(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	got := list[0]
	s.Equal("m1", got.ID)
	s.Equal(model.MarkerEnemy, got.Type)
	s.Equal(model.ShapeCircle, got.Shape)
	s.InDelta(1200.5, got.X, 0.0001)
	s.InDelta(3400, got.Y, 0.0001)
	s.Equal("#FF0000", got.Color)
	s.Equal("alice", got.CreatedBy)
	s.Equal("enemy squad", got.Notes)
	s.True(baseTime.Equal(got.Timestamp))

	s.Require().NoError(s.Store.RemoveMarker(s.ctx(), "m1"))
	list, err = s.Store.ListMarkers(s.ctx())
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *Suite) TestAddMarkerDuplicateID() {
	s.Require().NoError(s.Store.AddMarker(s.ctx(), s.marker("m1", baseTime)))

	err := s.Store.AddMarker(s.ctx(), s.marker("m1", baseTime.Add(time.Minute)))
	s.ErrorIs(err, model.ErrMarkerExists)

	list, err := s.Store.ListMarkers(s.ctx())
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *Suite) TestRemoveMissingMarkerIsNotAnError() {
	s.NoError(s.Store.RemoveMarker(s.ctx(), "never-existed"))
}

func (s *Suite) TestListMarkersNewestFirst() {
	s.Require().NoError(s.Store.AddMarker(s.ctx(), s.marker("a", baseTime)))
	s.Require().NoError(s.Store.AddMarker(s.ctx(), s.marker("b", baseTime.Add(2*time.Minute))))
	s.Require().NoError(s.Store.AddMarker(s.ctx(), s.marker("c", baseTime.Add(time.Minute))))

	list, err := s.Store.ListMarkers(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("b", list[0].ID)
	s.Equal("c", list[1].ID)
	s.Equal("a", list[2].ID)
}

func (s *Suite) TestClearMarkers() {
	s.Require().NoError(s.Store.AddMarker(s.ctx(), s.marker("a", baseTime)))
	s.Require().NoError(s.Store.AddMarker(s.ctx(), s.marker("b", baseTime)))

	s.Require().NoError(s.Store.ClearMarkers(s.ctx()))

	list, err := s.Store.ListMarkers(s.ctx())
	s.Require().NoError(err)
	s.Empty(list)

	// ids are reusable after a wipe
	s.NoError(s.Store.AddMarker(s.ctx(), s.marker("a", baseTime)))
}
