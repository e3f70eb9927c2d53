// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// bunSession pins all pass traffic to a single bun.Conn.
type bunSession struct {
	conn   bun.Conn
	tables Tables
}

var _ Session = (*bunSession)(nil)

func (s *bunSession) ListServers(ctx context.Context) ([]model.Server, error) {
	return listServers(ctx, s.conn, s.tables)
}

func (s *bunSession) MaxEpoch(ctx context.Context) (int64, error) {
	var latest sql.NullInt64
	if err := QueryRawInto(ctx, s.conn, &latest, "SELECT MAX(last_confirmed_epoch) FROM ?", bun.Ident(s.tables.Domains)); err != nil {
		return 0, err
	}
	return latest.Int64, nil
}

func (s *bunSession) UpsertDomain(ctx context.Context, rec model.DomainRecord) (bool, error) {
	return upsertDomain(ctx, s.conn, s.tables, rec)
}

func (s *bunSession) PurgeStale(ctx context.Context, epoch int64, scope PurgeScope) (int64, error) {
	return purgeStale(ctx, s.conn, s.tables, epoch, scope)
}

func (s *bunSession) RecordSyncRun(ctx context.Context, run model.SyncRun) error {
	row := syncRunFromModel(run)
	_, err := s.conn.NewInsert().Model(&row).ModelTableExpr("?", bun.Ident(s.tables.SyncRuns)).Exec(ctx)
	return MapDBError(err)
}

func (s *bunSession) Close() error { return s.conn.Close() }

func isMySQL(idb bun.IDB) bool {
	return idb.Dialect().Name() == dialect.MySQL
}

func listServers(ctx context.Context, idb bun.IDB, t Tables) ([]model.Server, error) {
	var rows []ServerModel
	err := idb.NewSelect().Model(&rows).
		ModelTableExpr("? AS s", bun.Ident(t.Servers)).
		OrderExpr("s.name ASC, s.ip ASC").
		Scan(ctx)
	if err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.Server, 0, len(rows))
	for _, r := range rows {
		out = append(out, serverToModel(r))
	}
	return out, nil
}

// upsertDomain writes rec only when its epoch is strictly newer than the
// stored one. PostgreSQL and SQLite express the guard as the WHERE clause of
// ON CONFLICT DO UPDATE; MySQL has no such clause, so every assignment is
// wrapped in IF() and an untouched row reports zero affected rows.
func upsertDomain(ctx context.Context, idb bun.IDB, t Tables, rec model.DomainRecord) (bool, error) {
	row := domainFromModel(rec)
	q := idb.NewInsert().Model(&row).ModelTableExpr("?", bun.Ident(t.Domains))
	if isMySQL(idb) {
		q = q.On("DUPLICATE KEY UPDATE")
		for _, c := range domainUpdateColumns {
			q = q.Set("? = IF(VALUES(last_confirmed_epoch) > last_confirmed_epoch, VALUES(?), ?)",
				bun.Ident(c), bun.Ident(c), bun.Ident(c))
		}
	} else {
		q = q.On("CONFLICT (server_name, domain) DO UPDATE")
		for _, c := range domainUpdateColumns {
			q = q.Set("? = EXCLUDED.?", bun.Ident(c), bun.Ident(c))
		}
		q = q.Where("?.last_confirmed_epoch < EXCLUDED.last_confirmed_epoch", bun.Ident(t.Domains))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, MapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func purgeStale(ctx context.Context, idb bun.IDB, t Tables, epoch int64, scope PurgeScope) (int64, error) {
	if !scope.Global && len(scope.Servers) == 0 {
		return 0, nil
	}
	q := idb.NewDelete().
		TableExpr("?", bun.Ident(t.Domains)).
		Where("last_confirmed_epoch < ?", epoch)
	if !scope.Global {
		q = q.WhereGroup(" AND ", func(q *bun.DeleteQuery) *bun.DeleteQuery {
			for _, k := range scope.Servers {
				q = q.WhereOr("(server_name = ? AND server_ip = ?)", k.Name, k.IP)
			}
			return q
		})
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, MapDBError(err)
	}
	return res.RowsAffected()
}
