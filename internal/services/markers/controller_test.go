package markers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/mocks"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/protocol"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/memory"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/testutil"
)

type published struct {
	action protocol.Action
	data   any
}

type fakePublisher struct {
	events  []published
	clients int
	running bool
}

func (p *fakePublisher) Publish(action protocol.Action, data any) error {
	p.events = append(p.events, published{action, data})
	return nil
}

func (p *fakePublisher) ClientCount() int { return p.clients }
func (p *fakePublisher) IsRunning() bool  { return p.running }

// failingStore fails every marker write
type failingStore struct {
	storage.Storage
}

func (failingStore) AddMarker(context.Context, *model.Marker) error { return errors.New("disk full") }
func (failingStore) RemoveMarker(context.Context, string) error     { return errors.New("disk full") }
func (failingStore) ListMarkers(context.Context) ([]*model.Marker, error) {
	return nil, errors.New("disk full")
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	publisher  *fakePublisher
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.publisher = &fakePublisher{}
	s.controller = NewController(s.storage, s.publisher, s.clock, DefaultConfig(), nil, testutil.NopLogger())
	s.ctx = context.Background()
}

func validMarker(id string) *model.Marker {
	return &model.Marker{
		ID:        id,
		Type:      model.MarkerEnemy,
		Shape:     model.ShapeCircle,
		X:         100,
		Y:         200,
		CreatedBy: "alice",
	}
}

var alice = &auth.Identity{UserID: "u1", Username: "alice"}

// Add tests

func (s *ControllerSuite) TestAddThenListContainsExactlyOne() {
	s.Require().NoError(s.controller.Add(s.ctx, validMarker("m1"), alice))

	list, err := s.controller.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("m1", list[0].ID)
}

func (s *ControllerSuite) TestAddPublishesToEveryone() {
	m := validMarker("m1")
	s.Require().NoError(s.controller.Add(s.ctx, m, alice))

	s.Require().Len(s.publisher.events, 1)
	s.Equal(protocol.ActionAdd, s.publisher.events[0].action)
	s.Equal(m, s.publisher.events[0].data)
}

func (s *ControllerSuite) TestAddShapesDerivedFields() {
	m := validMarker("m1")
	m.Type = model.MarkerObjective
	m.CreatedBy = ""

	s.Require().NoError(s.controller.Add(s.ctx, m, alice))

	list, _ := s.controller.List(s.ctx)
	s.Equal("#FFFF00", list[0].Color)
	s.Equal("alice", list[0].CreatedBy)
	s.Equal(s.clock.Now(), list[0].Timestamp)
}

func (s *ControllerSuite) TestAddKeepsClientColorAndTimestamp() {
	ts := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	m := validMarker("m1")
	m.Color = "#123456"
	m.Timestamp = ts

	s.Require().NoError(s.controller.Add(s.ctx, m, nil))

	list, _ := s.controller.List(s.ctx)
	s.Equal("#123456", list[0].Color)
	s.Equal(ts, list[0].Timestamp)
}

func (s *ControllerSuite) TestAddRejectsInvalidMarkers() {
	tests := []struct {
		name   string
		mutate func(*model.Marker)
	}{
		{"missing id", func(m *model.Marker) { m.ID = "" }},
		{"unknown type", func(m *model.Marker) { m.Type = "tank" }},
		{"unknown shape", func(m *model.Marker) { m.Shape = "hexagon" }},
		{"negative x", func(m *model.Marker) { m.X = -1 }},
		{"beyond map", func(m *model.Marker) { m.Y = 8000.5 }},
		{"no creator", func(m *model.Marker) { m.CreatedBy = "" }},
		{"bad color", func(m *model.Marker) { m.Color = "red" }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			m := validMarker("bad")
			tt.mutate(m)
			err := s.controller.Add(s.ctx, m, nil)
			s.ErrorIs(err, ErrInvalidMarker)
		})
	}

	list, _ := s.controller.List(s.ctx)
	s.Empty(list)
	s.Empty(s.publisher.events)
}

func (s *ControllerSuite) TestAddDuplicateIsPersistenceErrorAndNotPublished() {
	s.Require().NoError(s.controller.Add(s.ctx, validMarker("m1"), alice))

	err := s.controller.Add(s.ctx, validMarker("m1"), alice)
	s.ErrorIs(err, ErrPersistence)
	s.ErrorIs(err, model.ErrMarkerExists)
	s.Len(s.publisher.events, 1)
}

func (s *ControllerSuite) TestStoreFailureIsPersistenceError() {
	c := NewController(failingStore{s.storage}, s.publisher, s.clock, DefaultConfig(), nil, testutil.NopLogger())

	s.ErrorIs(c.Add(s.ctx, validMarker("m1"), alice), ErrPersistence)
	s.ErrorIs(c.Remove(s.ctx, "m1"), ErrPersistence)
	_, err := c.List(s.ctx)
	s.ErrorIs(err, ErrPersistence)
	s.Empty(s.publisher.events)
}

// Remove tests

func (s *ControllerSuite) TestRemoveThenListIsEmpty() {
	s.Require().NoError(s.controller.Add(s.ctx, validMarker("m1"), alice))
	s.Require().NoError(s.controller.Remove(s.ctx, "m1"))

	list, _ := s.controller.List(s.ctx)
	s.Empty(list)

	s.Require().Len(s.publisher.events, 2)
	s.Equal(protocol.ActionRemove, s.publisher.events[1].action)
	s.Equal(protocol.RemovePayload{ID: "m1"}, s.publisher.events[1].data)
}

func (s *ControllerSuite) TestRemoveUnknownIDSucceeds() {
	s.NoError(s.controller.Remove(s.ctx, "never-existed"))
}

func (s *ControllerSuite) TestClear() {
	s.Require().NoError(s.controller.Add(s.ctx, validMarker("a"), alice))
	s.Require().NoError(s.controller.Add(s.ctx, validMarker("b"), alice))

	s.Require().NoError(s.controller.Clear(s.ctx))

	list, _ := s.controller.List(s.ctx)
	s.Empty(list)
}

// Real-time sink tests

func (s *ControllerSuite) TestHandleMarkerEventPersistsWithoutPublishing() {
	err := s.controller.HandleMarkerEvent(s.ctx, protocol.MarkerEvent{
		Action: protocol.ActionAdd, ID: "m1", Marker: validMarker("m1"),
	}, nil)
	s.Require().NoError(err)

	list, _ := s.controller.List(s.ctx)
	s.Len(list, 1)
	s.Empty(s.publisher.events)

	err = s.controller.HandleMarkerEvent(s.ctx, protocol.MarkerEvent{Action: protocol.ActionRemove, ID: "m1"}, nil)
	s.Require().NoError(err)
	list, _ = s.controller.List(s.ctx)
	s.Empty(list)
}

func (s *ControllerSuite) TestHandleMarkerEventRejectsInvalid() {
	m := validMarker("m1")
	m.Type = "tank"
	err := s.controller.HandleMarkerEvent(s.ctx, protocol.MarkerEvent{Action: protocol.ActionAdd, ID: "m1", Marker: m}, nil)
	s.ErrorIs(err, ErrInvalidMarker)

	err = s.controller.HandleMarkerEvent(s.ctx, protocol.MarkerEvent{Action: protocol.ActionAdd}, nil)
	s.ErrorIs(err, ErrInvalidMarker)

	err = s.controller.HandleMarkerEvent(s.ctx, protocol.MarkerEvent{Action: "move", ID: "m1"}, nil)
	s.ErrorIs(err, ErrInvalidMarker)
}

// Status tests

func (s *ControllerSuite) TestStatus() {
	s.publisher.clients = 3
	s.publisher.running = true

	s.Equal(Status{Connected: true, Clients: 3, Port: 8765}, s.controller.Status())
}
