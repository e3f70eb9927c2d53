// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/toeirei/cpcm/internal/logging"
	"github.com/uptrace/bun"
)

func dbLogf(format string, v ...any) {
	logging.Debugf(format, v...)
}

// queryLogHook reports every statement at debug level. INSERT and UPDATE
// text is withheld: bun inlines arguments and server rows carry API keys.
type queryLogHook struct{}

var _ bun.QueryHook = queryLogHook{}

func (queryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (queryLogHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if !logging.DebugEnabled() {
		return
	}
	op := event.Operation()
	dur := time.Since(event.StartTime).Round(time.Microsecond)
	switch op {
	case "INSERT", "UPDATE":
		dbLogf("db: %s (%s) err=%v", op, dur, event.Err)
	default:
		dbLogf("db: %s (%s) err=%v", event.Query, dur, event.Err)
	}
}
