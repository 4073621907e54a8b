// Package sqlstore is the relational backend. It runs on PostgreSQL through
// pgx and on embedded SQLite through modernc.org/sqlite, with the schema
// managed by goose migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
)

// Config selects and tunes the database
type Config struct {
	Dialect Dialect
	DSN     string

	MaxOpenConns int
}

// Storage implements storage.Storage over database/sql
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

var _ storage.Storage = (*Storage)(nil)

// Open connects, applies migrations and returns a ready store
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open(cfg.Dialect.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}

	switch {
	case cfg.Dialect == DialectSQLite:
		// one writer; also keeps ":memory:" on a single database
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Dialect, err)
	}

	if cfg.Dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := Migrate(ctx, db, cfg.Dialect, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewWithDB(db, cfg.Dialect), nil
}

// NewWithDB wraps an already migrated database (for testing)
func NewWithDB(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{db: db, dialect: dialect}
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// User operations

const userColumns = `id, username, password_hash, totp_secret, created_at`

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	n, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		string(user.ID), user.Username, user.PasswordHash, nullString(user.TOTPSecret), user.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrDuplicateUsername
	}
	return nil
}

func (s *Storage) scanUser(row *sql.Row) (*model.User, error) {
	var (
		u      model.User
		id     string
		secret sql.NullString
	)
	if err := row.Scan(&id, &u.Username, &u.PasswordHash, &secret, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.ID = model.UserID(id)
	u.TOTPSecret = secret.String
	return &u, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = $1`), string(id))
	return s.scanUser(row)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT `+userColumns+` FROM users WHERE username = $1`), username)
	return s.scanUser(row)
}

func (s *Storage) SetTOTPSecret(ctx context.Context, id model.UserID, secret string) error {
	n, err := s.exec(ctx, `UPDATE users SET totp_secret = $1 WHERE id = $2`, nullString(secret), string(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// Recovery question operations

func (s *Storage) SaveRecoveryQuestions(ctx context.Context, id model.UserID, questions []model.RecoveryQuestion) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	for _, q := range questions {
		if _, err := s.exec(ctx,
			`INSERT INTO security_questions (user_id, question, answer_hash) VALUES ($1, $2, $3)`,
			string(id), q.Question, q.AnswerHash); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) GetRecoveryQuestions(ctx context.Context, id model.UserID) ([]model.RecoveryQuestion, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT question, answer_hash FROM security_questions WHERE user_id = $1 ORDER BY id`), string(id))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []model.RecoveryQuestion
	for rows.Next() {
		q := model.RecoveryQuestion{UserID: id}
		if err := rows.Scan(&q.Question, &q.AnswerHash); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	_, err := s.exec(ctx,
		`INSERT INTO sessions (token, user_id, device_id, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		session.Token, string(session.UserID), session.DeviceID, session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	return err
}

func (s *Storage) GetSession(ctx context.Context, token string) (*model.Session, error) {
	var (
		sess   model.Session
		userID string
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT token, user_id, device_id, created_at, expires_at FROM sessions WHERE token = $1`), token).
		Scan(&sess.Token, &userID, &sess.DeviceID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	sess.UserID = model.UserID(userID)
	return &sess, nil
}

func (s *Storage) DeleteSessionsForUser(ctx context.Context, id model.UserID) (int, error) {
	n, err := s.exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, string(id))
	return int(n), err
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	n, err := s.exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
	return int(n), err
}

// Marker operations

func (s *Storage) ListMarkers(ctx context.Context) ([]*model.Marker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, shape, x, y, color, created_by, timestamp, notes
		 FROM markers ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	markers := []*model.Marker{}
	for rows.Next() {
		var (
			m     model.Marker
			typ   string
			shape string
			notes sql.NullString
		)
		if err := rows.Scan(&m.ID, &typ, &shape, &m.X, &m.Y, &m.Color, &m.CreatedBy, &m.Timestamp, &notes); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Type = model.MarkerType(typ)
		m.Shape = model.MarkerShape(shape)
		m.Notes = notes.String
		markers = append(markers, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return markers, nil
}

func (s *Storage) AddMarker(ctx context.Context, marker *model.Marker) error {
	n, err := s.exec(ctx,
		`INSERT INTO markers (id, type, shape, x, y, color, created_by, timestamp, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
		marker.ID, string(marker.Type), string(marker.Shape), marker.X, marker.Y, marker.Color,
		marker.CreatedBy, marker.Timestamp.UTC(), nullString(marker.Notes))
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrMarkerExists
	}
	return nil
}

func (s *Storage) RemoveMarker(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `DELETE FROM markers WHERE id = $1`, id)
	return err
}

func (s *Storage) ClearMarkers(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM markers`)
	return err
}
