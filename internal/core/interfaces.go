// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core holds the reconciliation engine and the operator-facing
// facades. The interfaces here are the side-effect boundaries that the
// store, the WHM client and the UIs implement.
package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/model"
)

// SyncStore hands out the dedicated session a pass runs on.
type SyncStore interface {
	Session(ctx context.Context) (db.Session, error)
}

// Fetcher retrieves one server's raw domain inventory.
type Fetcher interface {
	FetchDomains(ctx context.Context, srv model.Server) ([]json.RawMessage, error)
}

// ServerStore is the registry surface used by the server commands.
type ServerStore interface {
	UpsertServer(ctx context.Context, s model.Server) error
	ListServers(ctx context.Context) ([]model.Server, error)
	DeleteServer(ctx context.Context, key model.ServerKey) (int64, error)
}

// BackupStore exports and imports the whole store.
type BackupStore interface {
	ExportData(ctx context.Context) (*model.BackupData, error)
	ImportData(ctx context.Context, data *model.BackupData, full bool) error
}

// DBMaintainer runs engine-specific maintenance.
type DBMaintainer interface {
	Maintain(ctx context.Context) error
}

// Reporter is used by facades to emit progress or human-readable messages.
// Implementations may write to stdout, logs, or test buffers.
type Reporter interface {
	Reportf(format string, args ...any)
}

// Clock returns the current time; tests pin it to fixed epochs.
type Clock func() time.Time

type nopReporter struct{}

func (nopReporter) Reportf(string, ...any) {}
