package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its base FS and dialect in package globals
var gooseMu sync.Mutex

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Migrate applies every pending migration for the dialect
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	sub, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	goose.SetLogger(gooseLogger{logger: logger.With(slog.String("component", "migrations"))})
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}
