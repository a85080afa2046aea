package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Options selects and configures the database backend.
type Options struct {
	// Driver is "sqlite" (default) or "pgx".
	Driver string
	// DSN is a file path for sqlite and a connection URL for pgx.
	DSN    string
	Logger hclog.Logger
}

// Open connects to the database and creates the schema when missing.
func Open(ctx context.Context, opts Options) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, "", err
	}
	if opts.DSN == "" {
		return nil, "", errors.New("sqlstore: empty dsn")
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	if dialect == DialectSQLite {
		dir := filepath.Dir(opts.DSN)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, "", fmt.Errorf("sqlstore: create db dir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(dialect.driverName(), opts.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("sqlstore: open: %w", err)
	}

	if dialect == DialectSQLite {
		// One connection: SQLite has a single writer and the pragmas are per connection.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			`PRAGMA journal_mode=WAL;`,
			`PRAGMA busy_timeout=5000;`,
			`PRAGMA foreign_keys=OFF;`,
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, "", fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("sqlstore: ping: %w", err)
	}
	if err := ensureSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	logger.Info("database ready", "driver", dialect.driverName())
	return db, dialect, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	data, err := schemaFS.ReadFile("schema/" + string(dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("sqlstore: read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(data), ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: apply schema: %w", err)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
