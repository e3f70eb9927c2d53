// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/toeirei/cpcm/internal/model"
)

func TestWriteReadBackup_RoundTrip(t *testing.T) {
	in := &model.BackupData{
		SchemaVersion: model.BackupSchemaVersion,
		Servers:       []model.BackupServer{{Name: "web1", IP: "10.0.0.1", User: "root", APIKey: "secret"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBackup(&buf, in))
	require.NotContains(t, buf.String(), "web1", "backup must be compressed")

	out, err := ReadBackup(&buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestReadBackup_RejectsGarbage(t *testing.T) {
	_, err := ReadBackup(bytes.NewReader([]byte("plain text")))
	require.Error(t, err)
}

func TestBackupFileName(t *testing.T) {
	require.Equal(t, "x.json.zst", BackupFileName("x.json"))
	require.Equal(t, "x.zst", BackupFileName("x.zst"))
	require.Equal(t, "cpcm-backup-2026-03-01.json.zst", DefaultBackupFile(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestBackupRestore_Files(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	addServer(t, src, "web1", "10.0.0.1")
	f := &fakeFetcher{records: map[string][]json.RawMessage{"web1": {rawRec("a.com", "/a")}}}
	mustPass(t, src, f, SyncOptions{Clock: at(1000)})

	path := filepath.Join(t.TempDir(), "b.json.zst")
	data, err := RunBackupCmd(ctx, src, path)
	require.NoError(t, err)
	require.Len(t, data.Servers, 1)
	require.Equal(t, "key", data.Servers[0].APIKey)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dst := newStoreNamed(t, "restore_dst")
	_, err = RunRestoreCmd(ctx, dst, path, true)
	require.NoError(t, err)
	got := storedDomains(t, dst)
	require.Contains(t, got, "a.com")
	require.Equal(t, int64(1000), got["a.com"].LastConfirmedEpoch)

	servers, err := dst.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "key", servers[0].APIKey.Reveal())
}

func TestRunMigrateCmd(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	addServer(t, src, "web1", "10.0.0.1")
	f := &fakeFetcher{records: map[string][]json.RawMessage{"web1": {rawRec("a.com", "/a"), rawRec("b.com", "/b")}}}
	mustPass(t, src, f, SyncOptions{Clock: at(1000)})

	dst := newStoreNamed(t, "migrate_dst")
	addServer(t, dst, "stale", "10.9.9.9")

	data, err := RunMigrateCmd(ctx, src, dst)
	require.NoError(t, err)
	require.Len(t, data.Domains, 2)

	servers, err := dst.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "web1", servers[0].Name)
	require.Len(t, storedDomains(t, dst), 2)

	runs, err := dst.ListSyncRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

type maintainFunc func(context.Context) error

func (f maintainFunc) Maintain(ctx context.Context) error { return f(ctx) }

func TestRunDBMaintenance(t *testing.T) {
	called := false
	require.NoError(t, RunDBMaintenance(context.Background(), maintainFunc(func(context.Context) error {
		called = true
		return nil
	})))
	require.True(t, called)

	err := RunDBMaintenance(context.Background(), maintainFunc(func(context.Context) error { return os.ErrPermission }))
	var se *model.StoreAccessError
	require.ErrorAs(t, err, &se)
	require.ErrorIs(t, err, os.ErrPermission)
}
