// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Maintain performs engine-specific housekeeping: PRAGMA optimize, VACUUM
// and an integrity check on SQLite, VACUUM ANALYZE on PostgreSQL and
// OPTIMIZE TABLE for cpcm's tables on MySQL.
func (s *BunStore) Maintain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	switch s.dbType {
	case "sqlite":
		// optimize is not useful on every filesystem; failures are not fatal
		if _, err := ExecRaw(ctx, s.db, "PRAGMA optimize"); err != nil {
			dbLogf("db: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := ExecRaw(ctx, s.db, "VACUUM"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		_, _ = ExecRaw(ctx, s.db, "PRAGMA wal_checkpoint(TRUNCATE)")
		var res string
		if err := QueryRawInto(ctx, s.db, &res, "PRAGMA integrity_check"); err != nil {
			return fmt.Errorf("sqlite integrity_check failed: %w", err)
		}
		if res != "ok" {
			return fmt.Errorf("sqlite integrity_check failed: %s", res)
		}
	case "postgres":
		if _, err := ExecRaw(ctx, s.db, "VACUUM ANALYZE"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case "mysql":
		var lastErr error
		for _, table := range []string{s.tables.Servers, s.tables.Domains, s.tables.SyncRuns} {
			if _, err := ExecRaw(ctx, s.db, "OPTIMIZE TABLE ?", bun.Ident(table)); err != nil {
				dbLogf("db: mysql optimize table %s failed: %v", table, err)
				lastErr = err
			}
		}
		if lastErr != nil {
			return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
		}
	default:
		return fmt.Errorf("unsupported db type for maintenance: %s", s.dbType)
	}
	return nil
}
