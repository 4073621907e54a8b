// Package markers is the request/response side of the sync gateway: it
// shapes and validates marker mutations, writes them to the store and only
// then announces them on the hub.
package markers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/clock"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/metrics"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/protocol"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
)

// Errors
var (
	ErrPersistence   = errors.New("marker could not be persisted")
	ErrInvalidMarker = errors.New("invalid marker")
)

// Publisher announces persisted mutations to live connections
type Publisher interface {
	Publish(action protocol.Action, data any) error
	ClientCount() int
	IsRunning() bool
}

// Status describes the real-time endpoint
type Status struct {
	Connected bool `json:"connected"`
	Clients   int  `json:"clients"`
	Port      int  `json:"port"`
}

// Config holds map bounds and the advertised real-time port
type Config struct {
	MapWidth     float64
	MapHeight    float64
	RealtimePort int
}

// DefaultConfig returns the default map extent and port
func DefaultConfig() Config {
	return Config{
		MapWidth:     model.DefaultMapWidth,
		MapHeight:    model.DefaultMapHeight,
		RealtimePort: 8765,
	}
}

// Controller owns marker list/add/remove/clear
type Controller struct {
	storage   storage.Storage
	publisher Publisher
	clock     clock.Clock
	cfg       Config
	validate  *validator.Validate
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewController creates a Controller
func NewController(store storage.Storage, publisher Publisher, clk clock.Clock, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Controller {
	if cfg.MapWidth <= 0 {
		cfg.MapWidth = model.DefaultMapWidth
	}
	if cfg.MapHeight <= 0 {
		cfg.MapHeight = model.DefaultMapHeight
	}
	return &Controller{
		storage:   store,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   m,
		logger:    logger.With(slog.String("component", "markers")),
	}
}

// List returns every marker, newest first
func (c *Controller) List(ctx context.Context) ([]*model.Marker, error) {
	markers, err := c.storage.ListMarkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return markers, nil
}

// Add shapes, validates and stores a marker, then publishes it to every
// live connection. identity fills CreatedBy when the marker has none.
func (c *Controller) Add(ctx context.Context, marker *model.Marker, identity *auth.Identity) error {
	if err := c.persistAdd(ctx, marker, identity); err != nil {
		return err
	}
	c.publish(protocol.ActionAdd, marker)
	return nil
}

// Remove deletes a marker by id and publishes the removal. Removing an
// unknown id succeeds.
func (c *Controller) Remove(ctx context.Context, id string) error {
	if err := c.persistRemove(ctx, id); err != nil {
		return err
	}
	c.publish(protocol.ActionRemove, protocol.RemovePayload{ID: id})
	return nil
}

// Clear wipes every marker. Connected clients are not notified and must
// reload with List.
func (c *Controller) Clear(ctx context.Context) error {
	if err := c.storage.ClearMarkers(ctx); err != nil {
		c.metrics.MarkerMutation("clear", "error")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	c.metrics.MarkerMutation("clear", "ok")
	c.logger.Warn("all markers cleared")
	return nil
}

// Status reports the real-time endpoint state
func (c *Controller) Status() Status {
	return Status{
		Connected: c.publisher.IsRunning(),
		Clients:   c.publisher.ClientCount(),
		Port:      c.cfg.RealtimePort,
	}
}

// HandleMarkerEvent persists a marker event that arrived on the real-time
// channel. The hub relays the original frame itself, so nothing is
// published here.
func (c *Controller) HandleMarkerEvent(ctx context.Context, ev protocol.MarkerEvent, identity *auth.Identity) error {
	switch ev.Action {
	case protocol.ActionAdd:
		return c.persistAdd(ctx, ev.Marker, identity)
	case protocol.ActionRemove:
		return c.persistRemove(ctx, ev.ID)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMarker, ev.Action)
	}
}

func (c *Controller) persistAdd(ctx context.Context, marker *model.Marker, identity *auth.Identity) error {
	if marker == nil {
		return fmt.Errorf("%w: missing marker", ErrInvalidMarker)
	}
	c.shape(marker, identity)
	if err := c.check(marker); err != nil {
		c.metrics.MarkerMutation("add", "invalid")
		return err
	}

	if err := c.storage.AddMarker(ctx, marker); err != nil {
		c.metrics.MarkerMutation("add", "error")
		c.logger.Warn("marker add failed",
			slog.String("marker_id", marker.ID),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	c.metrics.MarkerMutation("add", "ok")
	c.logger.Info("marker added",
		slog.String("marker_id", marker.ID),
		slog.String("type", string(marker.Type)),
		slog.String("created_by", marker.CreatedBy))
	return nil
}

func (c *Controller) persistRemove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMarker)
	}
	if err := c.storage.RemoveMarker(ctx, id); err != nil {
		c.metrics.MarkerMutation("remove", "error")
		c.logger.Warn("marker remove failed",
			slog.String("marker_id", id),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	c.metrics.MarkerMutation("remove", "ok")
	c.logger.Info("marker removed", slog.String("marker_id", id))
	return nil
}

// shape fills the derived fields
func (c *Controller) shape(m *model.Marker, identity *auth.Identity) {
	if m.CreatedBy == "" && identity != nil {
		m.CreatedBy = identity.Username
	}
	if m.Color == "" {
		m.Color = m.Type.Color()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = c.clock.Now()
	}
}

func (c *Controller) check(m *model.Marker) error {
	if err := c.validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMarker, err)
	}
	if m.X > c.cfg.MapWidth || m.Y > c.cfg.MapHeight {
		return fmt.Errorf("%w: position (%.1f, %.1f) outside %.0fx%.0f map",
			ErrInvalidMarker, m.X, m.Y, c.cfg.MapWidth, c.cfg.MapHeight)
	}
	return nil
}

// publish is best effort; the mutation is already durable
func (c *Controller) publish(action protocol.Action, data any) {
	if err := c.publisher.Publish(action, data); err != nil {
		c.logger.Error("publish failed", slog.String("action", string(action)), slog.String("error", err.Error()))
	}
}
