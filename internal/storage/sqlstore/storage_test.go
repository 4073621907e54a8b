package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage/storagetest"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/testutil"
)

type SQLiteSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.Ctx = context.Background()
	st, err := Open(s.Ctx, Config{Dialect: DialectSQLite, DSN: ":memory:"}, testutil.NopLogger())
	s.Require().NoError(err)
	s.storage = st
	s.Store = st
}

func (s *SQLiteSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *SQLiteSuite) TestMigrationsAreIdempotent() {
	s.NoError(Migrate(s.Ctx, s.storage.db, DialectSQLite, testutil.NopLogger()))
}

func (s *SQLiteSuite) TestEmptyCreatorRejectedBySchema() {
	err := s.storage.AddMarker(s.Ctx, &model.Marker{ID: "m1", Type: "enemy", Shape: "circle", Timestamp: time.Now()})
	s.Error(err)
}

// Postgres dialect against sqlmock

func newMockStore(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db, DialectPostgres), mock
}

func TestAddMarkerUsesNumberedPlaceholders(t *testing.T) {
	st, mock := newMockStore(t)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+markers.*VALUES\s*\(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)\s*ON CONFLICT \(id\) DO NOTHING$`).
		WithArgs("m1", "enemy", "circle", 10.0, 20.0, "#FF0000", "alice", ts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.AddMarker(context.Background(), &model.Marker{
		ID: "m1", Type: model.MarkerEnemy, Shape: model.ShapeCircle, X: 10, Y: 20,
		Color: "#FF0000", CreatedBy: "alice", Timestamp: ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMarkerConflictIsDuplicate(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec(`INSERT\s+INTO\s+markers`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.AddMarker(context.Background(), &model.Marker{ID: "m1", CreatedBy: "alice"})
	assert.ErrorIs(t, err, model.ErrMarkerExists)
}

func TestAddMarkerWrapsDriverError(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectExec(`INSERT\s+INTO\s+markers`).WillReturnError(errors.New("disk full"))

	err := st.AddMarker(context.Background(), &model.Marker{ID: "m1", CreatedBy: "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: disk full")
	assert.NotErrorIs(t, err, model.ErrMarkerExists)
}

func TestGetUserNoRowsIsNotFound(t *testing.T) {
	st, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "totp_secret", "created_at"}))

	_, err := st.GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestDeleteExpiredSessionsReportsCount(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := st.DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = $1 AND b = $2`
	assert.Equal(t, q, DialectPostgres.rebind(q))
	assert.Equal(t, `SELECT * FROM t WHERE a = ? AND b = ?`, DialectSQLite.rebind(q))
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"sqlite": DialectSQLite, "sqlite3": DialectSQLite,
		"postgres": DialectPostgres, "postgresql": DialectPostgres, "pgx": DialectPostgres,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}
