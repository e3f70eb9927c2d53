// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/cpcm/internal/logging"
	"github.com/toeirei/cpcm/internal/model"
)

// BackupSuffix is appended to backup file names that lack it.
const BackupSuffix = ".zst"

// DefaultBackupFile is the file name used when none is given.
func DefaultBackupFile(now time.Time) string {
	return fmt.Sprintf("cpcm-backup-%s.json%s", now.Format("2006-01-02"), BackupSuffix)
}

// BackupFileName returns name with the compression suffix enforced.
func BackupFileName(name string) string {
	if strings.HasSuffix(name, BackupSuffix) {
		return name
	}
	return name + BackupSuffix
}

// WriteBackup streams data as indented JSON through a zstd encoder.
func WriteBackup(w io.Writer, data *model.BackupData) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// ReadBackup decodes a backup written by WriteBackup.
func ReadBackup(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}

// RunBackupCmd exports the store into path. The file is created with mode
// 0600 since it carries API keys.
func RunBackupCmd(ctx context.Context, st BackupStore, path string) (*model.BackupData, error) {
	data, err := st.ExportData(ctx)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "export", Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not create file: %w", err)
	}
	if err := WriteBackup(f, data); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	logging.Infof("backup: %d server(s), %d domain(s) written to %s", len(data.Servers), len(data.Domains), path)
	return data, nil
}

// RunRestoreCmd reads path and imports it. full replaces the store
// contents; otherwise the backup is merged under the epoch guard.
func RunRestoreCmd(ctx context.Context, st BackupStore, path string, full bool) (*model.BackupData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := ReadBackup(f)
	if err != nil {
		return nil, err
	}
	if err := st.ImportData(ctx, data, full); err != nil {
		return nil, &model.StoreAccessError{Op: "import", Err: err}
	}
	logging.Infof("restore: %d server(s), %d domain(s) imported (full=%t)", len(data.Servers), len(data.Domains), full)
	return data, nil
}

// RunMigrateCmd copies everything from src into dst, replacing what dst held.
func RunMigrateCmd(ctx context.Context, src, dst BackupStore) (*model.BackupData, error) {
	data, err := src.ExportData(ctx)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "export source", Err: err}
	}
	if err := dst.ImportData(ctx, data, true); err != nil {
		return nil, &model.StoreAccessError{Op: "import target", Err: err}
	}
	return data, nil
}

// RunDBMaintenance runs the store's engine-specific maintenance.
func RunDBMaintenance(ctx context.Context, m DBMaintainer) error {
	start := time.Now()
	if err := m.Maintain(ctx); err != nil {
		return &model.StoreAccessError{Op: "maintenance", Err: err}
	}
	logging.Infof("db maintenance finished in %s", time.Since(start))
	return nil
}
