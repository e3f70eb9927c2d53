// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db is the local store: the server registry, the domain cache and
// the sync audit trail, over SQLite, PostgreSQL or MySQL through bun.
package db // import "github.com/toeirei/cpcm/internal/db"

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var (
	//go:embed migrations
	embeddedMigrations embed.FS
	// sqlOpenFunc allows tests to override database opening behavior.
	sqlOpenFunc = sql.Open
)

// statementSeparator splits a migration file into single statements so no
// driver needs multi-statement support.
const statementSeparator = "-- statement"

// driverName maps a config database type to the registered sql driver.
func driverName(dbType string) (string, error) {
	switch dbType {
	case "sqlite":
		return "sqlite", nil
	case "postgres":
		// The pgx stdlib registers driver name "pgx".
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported database type: '%s'", dbType)
	}
}

// normalizeDSN applies settings the store relies on.
func normalizeDSN(dbType, dsn string) (string, error) {
	switch dbType {
	case "sqlite":
		// foreign keys are off by default in SQLite
		if !strings.Contains(dsn, "foreign_keys") {
			dsn = appendQuery(dsn, "_pragma=foreign_keys(1)")
		}
		if !strings.Contains(dsn, "busy_timeout") {
			dsn = appendQuery(dsn, "_pragma=busy_timeout(5000)")
		}
		return dsn, nil
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		// sync_runs timestamps scan into time.Time
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	default:
		return dsn, nil
	}
}

func appendQuery(dsn, kv string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + kv
	}
	return dsn + "?" + kv
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Open connects to the configured backend, applies migrations for the given
// table names and returns the Store.
func Open(ctx context.Context, dbType, dsn string, tables Tables) (*BunStore, error) {
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}
	full, err := normalizeDSN(dbType, dsn)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driver, full)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(sqlDB, dbType, dsn)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	dbLogf("db: opened %s driver in %s", driver, time.Since(start))

	bdb := createBunDB(sqlDB, dbType)
	bdb.AddQueryHook(queryLogHook{})

	migStart := time.Now()
	if err := RunMigrations(ctx, bdb, dbType, tables); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("db: migrations for %s completed in %s", dbType, time.Since(migStart))

	return &BunStore{db: bdb, dbType: dbType, tables: tables}, nil
}

// configurePool sets pool limits. CPCM_DB_* environment variables override
// the defaults for production tuning.
func configurePool(sqlDB *sql.DB, dbType, dsn string) {
	const (
		defaultMaxOpenConns    = 10
		defaultMaxIdleConns    = 10
		defaultConnMaxLifetime = 5 * time.Minute
	)
	maxOpen := envInt("CPCM_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("CPCM_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	connMax := time.Duration(envInt("CPCM_DB_CONN_MAX_LIFETIME_SECONDS", int(defaultConnMaxLifetime/time.Second))) * time.Second

	// a private in-memory SQLite database exists per connection
	if dbType == "sqlite" && dsn == ":memory:" {
		maxOpen, maxIdle = 1, 1
	}
	// shared-cache memory databases vanish once the last connection closes
	if dbType == "sqlite" && isMemoryDSN(dsn) {
		connMax = 0
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// quoteIdent quotes an already validated identifier for DDL templates.
func quoteIdent(dbType, name string) string {
	if dbType == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

type migrationNames struct {
	Servers     string
	Domains     string
	SyncRuns    string
	DomainIndex string
}

// RunMigrations applies the embedded migrations for dbType, rendered for the
// configured table names. The recorded version includes the table names so
// renaming tables in the config provisions the new tables.
func RunMigrations(ctx context.Context, bdb *bun.DB, dbType string, tables Tables) error {
	migrationsPath := "migrations/" + dbType
	entries, err := fs.ReadDir(embeddedMigrations, migrationsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no migrations embedded for %s", dbType)
		}
		return fmt.Errorf("failed to read embedded migrations (%s): %w", migrationsPath, err)
	}

	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	if err := ensureSchemaMigrationsTable(ctx, bdb, dbType); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	names := migrationNames{
		Servers:     quoteIdent(dbType, tables.Servers),
		Domains:     quoteIdent(dbType, tables.Domains),
		SyncRuns:    quoteIdent(dbType, tables.SyncRuns),
		DomainIndex: quoteIdent(dbType, tables.domainIndex()),
	}

	for _, fname := range ups {
		version := fmt.Sprintf("%s:%s:%s", strings.TrimSuffix(fname, ".up.sql"), tables.Servers, tables.Domains)

		n, err := bdb.NewSelect().
			TableExpr("schema_migrations").
			Where("version = ?", version).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to check migration version %s: %w", version, err)
		}
		if n > 0 {
			continue
		}

		p := path.Join(migrationsPath, fname)
		data, err := embeddedMigrations.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", p, err)
		}
		tmpl, err := template.New(fname).Parse(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse migration %s: %w", p, err)
		}
		var rendered bytes.Buffer
		if err := tmpl.Execute(&rendered, names); err != nil {
			return fmt.Errorf("failed to render migration %s: %w", p, err)
		}

		err = bdb.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range strings.Split(rendered.String(), statementSeparator) {
				if strings.TrimSpace(stmt) == "" {
					continue
				}
				// bun.Safe keeps '?' in DDL away from placeholder processing
				if _, err := ExecRaw(ctx, tx, "?", bun.Safe(stmt)); err != nil {
					return fmt.Errorf("failed to execute migration %s: %w", version, err)
				}
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ensureSchemaMigrationsTable creates schema_migrations if missing. MySQL
// cannot index TEXT without a length, so it gets a VARCHAR key.
func ensureSchemaMigrationsTable(ctx context.Context, bdb *bun.DB, dbType string) error {
	ddl := `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`
	if dbType == "mysql" {
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(191) PRIMARY KEY, applied_at TIMESTAMP NULL)`
	}
	_, err := ExecRaw(ctx, bdb, ddl)
	return err
}
