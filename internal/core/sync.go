// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/toeirei/cpcm/internal/config"
	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/logging"
	"github.com/toeirei/cpcm/internal/model"
)

// SyncOptions tunes one pass.
type SyncOptions struct {
	// Concurrency bounds parallel fetches; values below 1 mean 1.
	Concurrency int
	// PurgeScope is config.PurgeScopeFetched (default) or config.PurgeScopeGlobal.
	PurgeScope string
	Clock      Clock
	Reporter   Reporter
}

// ServerFailure is a server whose inventory could not be used this pass.
type ServerFailure struct {
	Server model.ServerKey
	Err    error
}

// RecordFailure is one record that was rejected during a pass.
type RecordFailure struct {
	Server model.ServerKey
	// Index is the position in the server's data.domains array.
	Index  int
	Domain string
	Err    error
}

// SyncSummary is the outcome of a completed pass.
type SyncSummary struct {
	RunID     string
	Epoch     int64
	Servers   int
	Failures  []ServerFailure
	Written   int
	Unchanged int
	Invalid   int
	// InvalidRecords holds one entry per ValidationError.
	InvalidRecords []RecordFailure
	WriteErrors    int
	WriteFailures  []RecordFailure
	Purged         int64
	StartedAt      time.Time
	FinishedAt     time.Time
}

// PassEpoch returns the epoch for a pass starting at now. It is strictly
// greater than every stored epoch so a fast rerun or a clock step backwards
// still reconfirms rows.
func PassEpoch(now time.Time, storedMax int64) int64 {
	e := now.Unix()
	if e <= storedMax {
		e = storedMax + 1
	}
	return e
}

type fetchResult struct {
	server  model.Server
	records []json.RawMessage
	err     error
}

// RunSyncPass runs one reconciliation pass: list servers, fetch each one's
// inventory with bounded concurrency, normalize and upsert every record on
// a single writer, then purge rows that were not reconfirmed.
//
// Per-server and per-record problems are collected in the summary. Only a
// failure to use the store returns an error, always a *model.StoreAccessError.
func RunSyncPass(ctx context.Context, st SyncStore, f Fetcher, opts SyncOptions) (*SyncSummary, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	sess, err := st.Session(ctx)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "open session", Err: err}
	}
	defer func() { _ = sess.Close() }()

	started := opts.Clock()
	storedMax, err := sess.MaxEpoch(ctx)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "read max epoch", Err: err}
	}
	servers, err := sess.ListServers(ctx)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "list servers", Err: err}
	}

	sum := &SyncSummary{
		RunID:     uuid.NewString(),
		Epoch:     PassEpoch(started, storedMax),
		Servers:   len(servers),
		StartedAt: started,
	}
	logging.Infof("sync %s: epoch %d, %d server(s), concurrency %d", sum.RunID, sum.Epoch, len(servers), opts.Concurrency)

	// Records already fetched are still written after a cancellation.
	writeCtx := context.WithoutCancel(ctx)

	results := make(chan fetchResult)
	go func() {
		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for _, srv := range servers {
			srv := srv
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					results <- fetchResult{server: srv, err: &model.FetchError{Server: srv.Key(), Err: err}}
					return nil
				}
				recs, err := f.FetchDomains(ctx, srv)
				results <- fetchResult{server: srv, records: recs, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var fetched []model.ServerKey
	for res := range results {
		key := res.server.Key()
		if res.err != nil {
			err := asFetchFailure(key, res.err)
			logging.Warnf("sync: %v", err)
			opts.Reporter.Reportf("%s: %v", key, err)
			sum.Failures = append(sum.Failures, ServerFailure{Server: key, Err: err})
			continue
		}
		fetched = append(fetched, key)
		applyRecords(writeCtx, sess, sum, key, res.records)
		opts.Reporter.Reportf("%s: %d record(s)", key, len(res.records))
	}
	sort.Slice(sum.Failures, func(i, j int) bool {
		return sum.Failures[i].Server.String() < sum.Failures[j].Server.String()
	})

	scope := db.PurgeScope{Global: opts.PurgeScope == config.PurgeScopeGlobal, Servers: fetched}
	purged, err := sess.PurgeStale(writeCtx, sum.Epoch, scope)
	if err != nil {
		return sum, &model.StoreAccessError{Op: "purge stale rows", Err: err}
	}
	sum.Purged = purged
	sum.FinishedAt = opts.Clock()

	if err := sess.RecordSyncRun(writeCtx, sum.run()); err != nil {
		logging.Warnf("sync %s: could not record run: %v", sum.RunID, err)
	}
	logging.Infof("sync %s: written=%d unchanged=%d invalid=%d write_errors=%d failed_servers=%d purged=%d",
		sum.RunID, sum.Written, sum.Unchanged, sum.Invalid, sum.WriteErrors, len(sum.Failures), sum.Purged)
	return sum, nil
}

func applyRecords(ctx context.Context, sess db.Session, sum *SyncSummary, key model.ServerKey, records []json.RawMessage) {
	for i, raw := range records {
		rec, err := NormalizeDomain(raw)
		if err != nil {
			logging.Debugf("sync: %s record %d rejected: %v", key, i, err)
			sum.Invalid++
			sum.InvalidRecords = append(sum.InvalidRecords, RecordFailure{Server: key, Index: i, Err: err})
			continue
		}
		rec.ServerName = key.Name
		rec.ServerIP = key.IP
		rec.LastConfirmedEpoch = sum.Epoch

		written, err := sess.UpsertDomain(ctx, rec)
		if err != nil {
			werr := &model.WriteError{Server: key, Domain: rec.Domain, Err: err}
			logging.Warnf("sync: %v", werr)
			sum.WriteErrors++
			sum.WriteFailures = append(sum.WriteFailures, RecordFailure{Server: key, Index: i, Domain: rec.Domain, Err: werr})
			continue
		}
		if written {
			sum.Written++
		} else {
			sum.Unchanged++
		}
	}
}

// asFetchFailure keeps typed fetch errors and wraps anything else.
func asFetchFailure(key model.ServerKey, err error) error {
	var fe *model.FetchError
	var me *model.MalformedResponseError
	if errors.As(err, &fe) || errors.As(err, &me) {
		return err
	}
	return &model.FetchError{Server: key, Err: err}
}

func (s *SyncSummary) run() model.SyncRun {
	return model.SyncRun{
		ID:               s.RunID,
		Epoch:            s.Epoch,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		ServersTotal:     s.Servers,
		ServersFailed:    len(s.Failures),
		RecordsWritten:   s.Written,
		RecordsUnchanged: s.Unchanged,
		RecordsInvalid:   s.Invalid,
		WriteErrors:      s.WriteErrors,
		Purged:           s.Purged,
	}
}
