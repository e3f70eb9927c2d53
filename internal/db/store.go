// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/uptrace/bun"
)

// PurgeScope limits the stale-row collector. Global deletes every stale
// row; otherwise only rows owned by Servers are considered.
type PurgeScope struct {
	Global  bool
	Servers []model.ServerKey
}

// Session is the view of the store used by one sync pass. Every call goes
// through the same dedicated connection.
type Session interface {
	ListServers(ctx context.Context) ([]model.Server, error)
	MaxEpoch(ctx context.Context) (int64, error)
	// UpsertDomain inserts rec or overwrites the stored row when rec's epoch
	// is strictly newer. It reports whether a row was written.
	UpsertDomain(ctx context.Context, rec model.DomainRecord) (bool, error)
	PurgeStale(ctx context.Context, epoch int64, scope PurgeScope) (int64, error)
	RecordSyncRun(ctx context.Context, run model.SyncRun) error
	Close() error
}

// Store is the operator-facing data access layer.
type Store interface {
	DomainSearcher
	Session(ctx context.Context) (Session, error)
	UpsertServer(ctx context.Context, s model.Server) error
	ListServers(ctx context.Context) ([]model.Server, error)
	// DeleteServer removes the server and its cached domains in one
	// transaction and returns the number of domains removed.
	DeleteServer(ctx context.Context, key model.ServerKey) (int64, error)
	ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
	ExportData(ctx context.Context) (*model.BackupData, error)
	ImportData(ctx context.Context, data *model.BackupData, full bool) error
	Maintain(ctx context.Context) error
	Tables() Tables
	Close() error
}

// BunStore implements Store on top of a *bun.DB.
type BunStore struct {
	db     *bun.DB
	dbType string
	tables Tables
}

var _ Store = (*BunStore)(nil)

// BunDB exposes the underlying bun handle for tests and maintenance.
func (s *BunStore) BunDB() *bun.DB { return s.db }

// Tables returns the table names the store was opened with.
func (s *BunStore) Tables() Tables { return s.tables }

// Close releases the connection pool.
func (s *BunStore) Close() error { return s.db.Close() }

// Session reserves one connection for the duration of a pass.
func (s *BunStore) Session(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve connection: %w", err)
	}
	return &bunSession{conn: conn, tables: s.tables}, nil
}

// UpsertServer inserts the server or replaces its attributes when (name, ip)
// is already registered.
func (s *BunStore) UpsertServer(ctx context.Context, srv model.Server) error {
	row := serverFromModel(srv)
	q := s.db.NewInsert().Model(&row).ModelTableExpr("?", bun.Ident(s.tables.Servers))
	cols := []string{"user", "apikey", "hostname", "group"}
	if isMySQL(s.db) {
		q = q.On("DUPLICATE KEY UPDATE")
		for _, c := range cols {
			q = q.Set("? = VALUES(?)", bun.Ident(c), bun.Ident(c))
		}
	} else {
		q = q.On("CONFLICT (name, ip) DO UPDATE")
		for _, c := range cols {
			q = q.Set("? = EXCLUDED.?", bun.Ident(c), bun.Ident(c))
		}
	}
	if _, err := q.Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// ListServers returns all servers ordered by (name, ip).
func (s *BunStore) ListServers(ctx context.Context) ([]model.Server, error) {
	return listServers(ctx, s.db, s.tables)
}

// DeleteServer removes a server and every domain row that references it.
func (s *BunStore) DeleteServer(ctx context.Context, key model.ServerKey) (int64, error) {
	var removed int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			TableExpr("?", bun.Ident(s.tables.Domains)).
			Where("server_name = ? AND server_ip = ?", key.Name, key.IP).
			Exec(ctx)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()

		res, err = tx.NewDelete().
			TableExpr("?", bun.Ident(s.tables.Servers)).
			Where("name = ? AND ip = ?", key.Name, key.IP).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, MapDBError(err)
	}
	return removed, nil
}

// ListSyncRuns returns the most recent runs first. limit <= 0 means all.
func (s *BunStore) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	var rows []SyncRunModel
	q := s.db.NewSelect().Model(&rows).
		ModelTableExpr("? AS r", bun.Ident(s.tables.SyncRuns)).
		OrderExpr("r.started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.SyncRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, syncRunToModel(r))
	}
	return out, nil
}
