// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/toeirei/cpcm/internal/security"
	"github.com/uptrace/bun"
)

// ExportData reads every table inside one transaction so the snapshot is
// consistent.
func (s *BunStore) ExportData(ctx context.Context) (*model.BackupData, error) {
	out := &model.BackupData{SchemaVersion: model.BackupSchemaVersion}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var servers []ServerModel
		if err := tx.NewSelect().Model(&servers).
			ModelTableExpr("? AS s", bun.Ident(s.tables.Servers)).
			OrderExpr("s.name, s.ip").Scan(ctx); err != nil {
			return fmt.Errorf("export servers: %w", err)
		}
		for _, r := range servers {
			out.Servers = append(out.Servers, model.BackupServer{
				Name:     r.Name,
				IP:       r.IP,
				User:     r.User,
				APIKey:   r.APIKey.Reveal(),
				Hostname: r.Hostname,
				Group:    r.Group,
			})
		}

		domains, err := searchDomains(ctx, tx, s.tables, DomainFilter{})
		if err != nil {
			return fmt.Errorf("export domains: %w", err)
		}
		out.Domains = domains

		var runs []SyncRunModel
		if err := tx.NewSelect().Model(&runs).
			ModelTableExpr("? AS r", bun.Ident(s.tables.SyncRuns)).
			OrderExpr("r.started_at").Scan(ctx); err != nil {
			return fmt.Errorf("export sync runs: %w", err)
		}
		for _, r := range runs {
			out.SyncRuns = append(out.SyncRuns, syncRunToModel(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ImportData loads a backup. With full set the current contents are wiped
// first; otherwise the backup is integrated: unknown servers and runs are
// added, and domains go through the same epoch-guarded upsert as a sync pass
// so a stale backup never overwrites fresher rows.
func (s *BunStore) ImportData(ctx context.Context, data *model.BackupData, full bool) error {
	if data == nil {
		return fmt.Errorf("no backup data")
	}
	if data.SchemaVersion > model.BackupSchemaVersion {
		return fmt.Errorf("backup schema version %d is newer than supported version %d", data.SchemaVersion, model.BackupSchemaVersion)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if full {
			// children first for the foreign key
			for _, table := range []string{s.tables.Domains, s.tables.Servers, s.tables.SyncRuns} {
				if _, err := ExecRaw(ctx, tx, "DELETE FROM ?", bun.Ident(table)); err != nil {
					return fmt.Errorf("clear %s: %w", table, err)
				}
			}
		}

		if len(data.Servers) > 0 {
			rows := make([]ServerModel, 0, len(data.Servers))
			for _, b := range data.Servers {
				rows = append(rows, serverFromModel(model.Server{
					Name:     b.Name,
					IP:       b.IP,
					User:     b.User,
					APIKey:   security.FromString(b.APIKey),
					Hostname: b.Hostname,
					Group:    b.Group,
				}))
			}
			if _, err := tx.NewInsert().Model(&rows).
				ModelTableExpr("?", bun.Ident(s.tables.Servers)).
				Ignore().Exec(ctx); err != nil {
				return fmt.Errorf("import servers: %w", MapDBError(err))
			}
		}

		for _, d := range data.Domains {
			if _, err := upsertDomain(ctx, tx, s.tables, d); err != nil {
				return fmt.Errorf("import domain %s: %w", d.Domain, err)
			}
		}

		if len(data.SyncRuns) > 0 {
			rows := make([]SyncRunModel, 0, len(data.SyncRuns))
			for _, r := range data.SyncRuns {
				rows = append(rows, syncRunFromModel(r))
			}
			if _, err := tx.NewInsert().Model(&rows).
				ModelTableExpr("?", bun.Ident(s.tables.SyncRuns)).
				Ignore().Exec(ctx); err != nil {
				return fmt.Errorf("import sync runs: %w", MapDBError(err))
			}
		}
		return nil
	})
}
