package sqlstore

import (
	"fmt"
	"regexp"
)

// Dialect selects the SQL driver, placeholder style and migration set
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the storage type names used in configuration
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", s)
	}
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

var numberedPlaceholder = regexp.MustCompile(`\$\d+`)

// rebind rewrites $N placeholders for drivers that only take '?'.
// Queries in this package use each $N once, in order.
func (d Dialect) rebind(query string) string {
	if d == DialectPostgres {
		return query
	}
	return numberedPlaceholder.ReplaceAllString(query, "?")
}
