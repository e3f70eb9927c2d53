// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/toeirei/cpcm/internal/security"
)

func TestOpen_UnsupportedType(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x", DefaultTables()); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultTables())

	// a second Open against the same shared-cache database must not re-run 0001
	again, err := Open(ctx, "sqlite", memoryDSN(t), DefaultTables())
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer func() { _ = again.Close() }()

	var n int
	if err := QueryRawInto(ctx, s.BunDB(), &n, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 migration row, got %d", n)
	}
}

func TestNewTables_RejectsBadNames(t *testing.T) {
	if _, err := NewTables("domains; DROP TABLE servers", "servers"); err == nil {
		t.Fatalf("expected invalid domains table name to be rejected")
	}
	if _, err := NewTables("domains", "group"); err == nil {
		t.Fatalf("expected reserved servers table name to be rejected")
	}
	tbl, err := NewTables("cp_domains", "cp_servers")
	if err != nil {
		t.Fatalf("NewTables: %v", err)
	}
	if tbl.SyncRuns != DefaultSyncRunsTable {
		t.Fatalf("unexpected sync runs table %q", tbl.SyncRuns)
	}
}

func TestCustomTableNames(t *testing.T) {
	ctx := context.Background()
	tbl, err := NewTables("cp_domains", "cp_servers")
	if err != nil {
		t.Fatalf("NewTables: %v", err)
	}
	s := newTestStore(t, tbl)
	srv := testServer("web", "10.0.0.1")
	mustUpsertServer(t, s, srv)
	sess := mustSession(t, s)
	mustUpsertDomain(t, sess, testDomain(srv, "a.com", 100))

	got, err := s.SearchDomains(ctx, DomainFilter{})
	if err != nil {
		t.Fatalf("SearchDomains: %v", err)
	}
	if len(got) != 1 || got[0].Domain != "a.com" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestUpsertServer_InsertThenReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultTables())

	mustUpsertServer(t, s, testServer("web-b", "10.0.0.2"))
	mustUpsertServer(t, s, testServer("web-a", "10.0.0.1"))
	repl := testServer("web-b", "10.0.0.2")
	repl.APIKey = security.FromString("rotated")
	repl.Hostname = "b.example.net"
	mustUpsertServer(t, s, repl)

	servers, err := s.ListServers(ctx)
	if err != nil {
		t.Fatalf("ListServers: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0].Name != "web-a" || servers[1].Name != "web-b" {
		t.Fatalf("servers not ordered by name: %v", servers)
	}
	if servers[1].APIKey.Reveal() != "rotated" || servers[1].Hostname != "b.example.net" {
		t.Fatalf("server not replaced: %+v", servers[1])
	}
	if servers[0].Hostname != model.NullMarker || servers[0].Group != model.NullMarker {
		t.Fatalf("optional server fields should default to the null marker: %+v", servers[0])
	}
}

func TestUpsertDomain_MonotonicAcceptance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultTables())
	srv := testServer("web", "10.0.0.1")
	mustUpsertServer(t, s, srv)
	sess := mustSession(t, s)

	if !mustUpsertDomain(t, sess, testDomain(srv, "a.com", 1000)) {
		t.Fatalf("first insert must report written")
	}

	// same epoch: duplicate response, no-op
	dup := testDomain(srv, "a.com", 1000)
	dup.Docroot = "/dup"
	if mustUpsertDomain(t, sess, dup) {
		t.Fatalf("equal epoch must not be written")
	}

	// older epoch: late response, no-op
	old := testDomain(srv, "a.com", 900)
	old.Docroot = "/old"
	if mustUpsertDomain(t, sess, old) {
		t.Fatalf("older epoch must not be written")
	}

	rows, _ := s.SearchDomains(ctx, DomainFilter{Substring: "a.com"})
	if len(rows) != 1 || rows[0].Docroot != "/home/a.com/public_html" || rows[0].LastConfirmedEpoch != 1000 {
		t.Fatalf("stored row changed by stale write: %+v", rows)
	}

	newer := testDomain(srv, "a.com", 2000)
	newer.Docroot = "/new"
	if !mustUpsertDomain(t, sess, newer) {
		t.Fatalf("newer epoch must be written")
	}
	rows, _ = s.SearchDomains(ctx, DomainFilter{Substring: "a.com"})
	if rows[0].Docroot != "/new" || rows[0].LastConfirmedEpoch != 2000 {
		t.Fatalf("newer write not applied: %+v", rows[0])
	}

	maxEpoch, err := sess.MaxEpoch(ctx)
	if err != nil || maxEpoch != 2000 {
		t.Fatalf("MaxEpoch = %d, %v", maxEpoch, err)
	}
}

func TestMaxEpoch_EmptyTable(t *testing.T) {
	s := newTestStore(t, DefaultTables())
	sess := mustSession(t, s)
	got, err := sess.MaxEpoch(context.Background())
	if err != nil || got != 0 {
		t.Fatalf("MaxEpoch on empty table = %d, %v", got, err)
	}
}

func TestUpsertDomain_UnknownServerViolatesForeignKey(t *testing.T) {
	s := newTestStore(t, DefaultTables())
	sess := mustSession(t, s)
	_, err := sess.UpsertDomain(context.Background(), testDomain(testServer("ghost", "10.9.9.9"), "x.com", 1))
	if !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey, got %v", err)
	}
}

func TestPurgeStale_Scopes(t *testing.T) {
	tests := []struct {
		name       string
		scope      func(ok model.Server) PurgeScope
		wantPurged int64
		wantLeft   []string
	}{
		{
			name:       "fetched keeps failed server rows",
			scope:      func(ok model.Server) PurgeScope { return PurgeScope{Servers: []model.ServerKey{ok.Key()}} },
			wantPurged: 1,
			wantLeft:   []string{"a.com", "c.com"},
		},
		{
			name:       "global removes every stale row",
			scope:      func(model.Server) PurgeScope { return PurgeScope{Global: true} },
			wantPurged: 2,
			wantLeft:   []string{"a.com"},
		},
		{
			name:       "empty fetched scope removes nothing",
			scope:      func(model.Server) PurgeScope { return PurgeScope{} },
			wantPurged: 0,
			wantLeft:   []string{"a.com", "b.com", "c.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t, DefaultTables())
			ok, bad := testServer("ok", "10.0.0.1"), testServer("bad", "10.0.0.2")
			mustUpsertServer(t, s, ok)
			mustUpsertServer(t, s, bad)
			sess := mustSession(t, s)
			mustUpsertDomain(t, sess, testDomain(ok, "a.com", 2000))
			mustUpsertDomain(t, sess, testDomain(ok, "b.com", 1000))
			mustUpsertDomain(t, sess, testDomain(bad, "c.com", 1000))

			n, err := sess.PurgeStale(ctx, 2000, tt.scope(ok))
			if err != nil {
				t.Fatalf("PurgeStale: %v", err)
			}
			if n != tt.wantPurged {
				t.Fatalf("purged %d, want %d", n, tt.wantPurged)
			}
			rows, _ := s.SearchDomains(ctx, DomainFilter{})
			var left []string
			for _, r := range rows {
				left = append(left, r.Domain)
			}
			if len(left) != len(tt.wantLeft) {
				t.Fatalf("left %v, want %v", left, tt.wantLeft)
			}
			for i := range left {
				if left[i] != tt.wantLeft[i] {
					t.Fatalf("left %v, want %v", left, tt.wantLeft)
				}
			}
		})
	}
}

func TestSearchDomains_EscapesAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultTables())
	one, two := testServer("one", "10.0.0.1"), testServer("two", "10.0.0.2")
	mustUpsertServer(t, s, one)
	mustUpsertServer(t, s, two)
	sess := mustSession(t, s)
	for _, d := range []string{"a_b.com", "axb.com", "Shop.Example.com", "a.com", "b.com", "50%off.net", "bang!.org"} {
		mustUpsertDomain(t, sess, testDomain(one, d, 1))
	}
	mustUpsertDomain(t, sess, testDomain(two, "a.com", 1))

	tests := []struct {
		filter DomainFilter
		want   []string
	}{
		{DomainFilter{Substring: "a_b"}, []string{"a_b.com@one"}},
		{DomainFilter{Substring: "%"}, []string{"50%off.net@one"}},
		{DomainFilter{Substring: "!"}, []string{"bang!.org@one"}},
		{DomainFilter{Substring: "a.c"}, []string{"a.com@one", "a.com@two"}},
		{DomainFilter{Substring: "SHOP"}, []string{"Shop.Example.com@one"}},
		{DomainFilter{Substring: "a.c", Server: "two"}, []string{"a.com@two"}},
		{DomainFilter{Substring: "' OR 1=1 --"}, nil},
	}
	for _, tt := range tests {
		rows, err := s.SearchDomains(ctx, tt.filter)
		if err != nil {
			t.Fatalf("SearchDomains(%+v): %v", tt.filter, err)
		}
		var got []string
		for _, r := range rows {
			got = append(got, r.Domain+"@"+r.ServerName)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("SearchDomains(%+v) = %v, want %v", tt.filter, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("SearchDomains(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike("a_b%c!d"); got != "a!_b!%c!!d" {
		t.Fatalf("EscapeLike = %q", got)
	}
}

func TestDeleteServer_RemovesDomains(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultTables())
	srv := testServer("web", "10.0.0.1")
	mustUpsertServer(t, s, srv)
	sess := mustSession(t, s)
	mustUpsertDomain(t, sess, testDomain(srv, "a.com", 1))
	mustUpsertDomain(t, sess, testDomain(srv, "b.com", 1))

	n, err := s.DeleteServer(ctx, srv.Key())
	if err != nil {
		t.Fatalf("DeleteServer: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 domains removed, got %d", n)
	}
	if servers, _ := s.ListServers(ctx); len(servers) != 0 {
		t.Fatalf("server still present: %v", servers)
	}
	if _, err := s.DeleteServer(ctx, srv.Key()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSyncRuns_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, DefaultTables())
	sess := mustSession(t, s)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2"} {
		run := model.SyncRun{
			ID:             id,
			Epoch:          int64(1000 * (i + 1)),
			StartedAt:      base.Add(time.Duration(i) * time.Hour),
			FinishedAt:     base.Add(time.Duration(i)*time.Hour + time.Second),
			ServersTotal:   2,
			RecordsWritten: 3,
			Purged:         1,
		}
		if err := sess.RecordSyncRun(ctx, run); err != nil {
			t.Fatalf("RecordSyncRun: %v", err)
		}
	}
	runs, err := s.ListSyncRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListSyncRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-2" || runs[0].Epoch != 2000 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t, DefaultTables())
	srv := testServer("web", "10.0.0.1")
	mustUpsertServer(t, src, srv)
	sess := mustSession(t, src)
	mustUpsertDomain(t, sess, testDomain(srv, "a.com", 500))

	data, err := src.ExportData(ctx)
	if err != nil {
		t.Fatalf("ExportData: %v", err)
	}
	if len(data.Servers) != 1 || data.Servers[0].APIKey != "key-web" {
		t.Fatalf("servers not exported with keys: %+v", data.Servers)
	}

	t.Run("integrate keeps fresher rows", func(t *testing.T) {
		dst := newTestStore(t, DefaultTables())
		mustUpsertServer(t, dst, srv)
		dsess := mustSession(t, dst)
		fresh := testDomain(srv, "a.com", 900)
		fresh.Docroot = "/fresh"
		mustUpsertDomain(t, dsess, fresh)

		if err := dst.ImportData(ctx, data, false); err != nil {
			t.Fatalf("ImportData: %v", err)
		}
		rows, _ := dst.SearchDomains(ctx, DomainFilter{})
		if len(rows) != 1 || rows[0].Docroot != "/fresh" {
			t.Fatalf("stale backup overwrote fresher row: %+v", rows)
		}
	})

	t.Run("full replaces everything", func(t *testing.T) {
		dst := newTestStore(t, DefaultTables())
		other := testServer("other", "10.0.0.9")
		mustUpsertServer(t, dst, other)

		if err := dst.ImportData(ctx, data, true); err != nil {
			t.Fatalf("ImportData: %v", err)
		}
		servers, _ := dst.ListServers(ctx)
		if len(servers) != 1 || servers[0].Name != "web" || servers[0].APIKey.Reveal() != "key-web" {
			t.Fatalf("unexpected servers after full restore: %+v", servers)
		}
		rows, _ := dst.SearchDomains(ctx, DomainFilter{})
		if len(rows) != 1 || rows[0].LastConfirmedEpoch != 500 {
			t.Fatalf("unexpected domains after full restore: %+v", rows)
		}
	})

	t.Run("newer schema rejected", func(t *testing.T) {
		dst := newTestStore(t, DefaultTables())
		if err := dst.ImportData(ctx, &model.BackupData{SchemaVersion: model.BackupSchemaVersion + 1}, true); err == nil {
			t.Fatalf("expected error for newer schema version")
		}
	})
}

func TestMaintain_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "cpcm.db"), DefaultTables())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()
	mustUpsertServer(t, s, testServer("web", "10.0.0.1"))
	if err := s.Maintain(ctx); err != nil {
		t.Fatalf("Maintain: %v", err)
	}
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN("sqlite", "/tmp/x.db")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	if got != "/tmp/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected sqlite dsn %q", got)
	}
	got, err = normalizeDSN("mysql", "user:pw@tcp(db:3306)/cpcm")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	for _, want := range []string{"parseTime=true", "tcp(db:3306)", "/cpcm"} {
		if !strings.Contains(got, want) {
			t.Fatalf("mysql dsn %q lacks %q", got, want)
		}
	}
}
