// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// execRawProvider accepts *bun.DB, bun.Conn or bun.Tx, which all expose
// NewRaw.
type execRawProvider interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

// ExecRaw executes a raw SQL statement. Table names must be passed as
// bun.Ident arguments, never concatenated into query.
func ExecRaw(ctx context.Context, exec execRawProvider, query string, args ...any) (sql.Result, error) {
	return exec.NewRaw(query, args...).Exec(ctx)
}

// QueryRawInto runs a raw query and scans the result into dest.
func QueryRawInto(ctx context.Context, exec execRawProvider, dest any, query string, args ...any) error {
	return exec.NewRaw(query, args...).Scan(ctx, dest)
}
