// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"database/sql"
	"errors"
	"strings"
)

var (
	// ErrDuplicate is returned when attempting to insert a record that already exists.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned when a lookup or delete matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrForeignKey is returned when a row references a server that does not exist.
	ErrForeignKey = errors.New("foreign key violation")
)

// MapDBError maps common driver errors to the package sentinels. The mapping
// is string based so no driver-specific error types leak into callers.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	le := strings.ToLower(err.Error())
	switch {
	// SQLite "FOREIGN KEY constraint failed", Postgres 23503, MySQL 1452
	case strings.Contains(le, "foreign key") || strings.Contains(le, "23503") || strings.Contains(le, "1452"):
		return errors.Join(ErrForeignKey, err)
	// MySQL duplicate entry, Postgres unique violation (23505), SQLite unique constraint
	case strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062"):
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
