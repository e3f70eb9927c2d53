// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/toeirei/cpcm/internal/config"
	"github.com/toeirei/cpcm/internal/core"
	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/i18n"
	"github.com/toeirei/cpcm/internal/logging"
)

// ErrSyncRunning is returned when another process holds the pass lock.
var ErrSyncRunning = errors.New("another sync pass is running")

func newDomainCmd() *cobra.Command {
	var doSync bool
	var filter db.DomainFilter
	cmd := &cobra.Command{
		Use:   "domain (--sync | --name <substring>)",
		Short: "Refresh the domain cache or search it",
		Long: `--sync runs one reconciliation pass over every registered server: fetch the
inventory, upsert each valid record with the pass epoch and purge rows that
were not reconfirmed.

--name lists cached domains whose name contains the given text
(case-insensitive). Both flags may be combined; the sync runs first.`,
		Example: `  cpcm domain --sync
  cpcm domain --name example.com
  cpcm domain --name shop --server web1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nameSet := cmd.Flags().Changed("name")
			if !doSync && !nameSet {
				return errors.New(i18n.T("domain.error_no_action"))
			}
			return withStore(cmd, func(st *db.BunStore) error {
				if doSync {
					if err := runSync(cmd, st); err != nil {
						return err
					}
				}
				if nameSet {
					recs, err := core.RunFindCmd(cmd.Context(), st, filter)
					if err != nil {
						return err
					}
					if len(recs) == 0 {
						_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("domain.none_found", filter.Substring))
						return nil
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderDomains(recs))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&doSync, "sync", false, "Run one sync pass against all servers")
	cmd.Flags().StringVar(&filter.Substring, "name", "", "Substring to search for in domain names")
	cmd.Flags().StringVar(&filter.Server, "server", "", "Only show domains of this server name")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of results (0 = all)")
	return cmd
}

// acquirePassLock takes the exclusive pass lock without waiting.
func acquirePassLock() (*flock.Flock, error) {
	path, err := config.LockPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	lk := flock.New(path)
	ok, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrSyncRunning, path)
	}
	return lk, nil
}

func runSync(cmd *cobra.Command, st *db.BunStore) error {
	lk, err := acquirePassLock()
	if err != nil {
		return err
	}
	defer func() { _ = lk.Unlock() }()

	out := cmd.OutOrStdout()
	sum, err := core.RunSyncPass(cmd.Context(), st, newFetcher(appConfig), core.SyncOptions{
		Concurrency: appConfig.Sync.Concurrency,
		PurgeScope:  appConfig.Sync.PurgeScope,
		Reporter:    &cliReporter{w: cmd.ErrOrStderr()},
	})
	if err != nil {
		return errors.New(i18n.T("sync.error_store", err))
	}
	printSyncSummary(out, sum)
	return nil
}

func printSyncSummary(out io.Writer, sum *core.SyncSummary) {
	_, _ = fmt.Fprintln(out, i18n.T("sync.summary", map[string]any{
		"Servers":   sum.Servers,
		"Epoch":     sum.Epoch,
		"Written":   sum.Written,
		"Unchanged": sum.Unchanged,
		"Purged":    sum.Purged,
	}))
	if sum.Invalid > 0 {
		_, _ = fmt.Fprintln(out, i18n.T("sync.invalid_records", sum.Invalid))
		for _, r := range sum.InvalidRecords {
			logging.Debugf("invalid record %d on %s: %v", r.Index, r.Server, r.Err)
		}
	}
	if sum.WriteErrors > 0 {
		_, _ = fmt.Fprintln(out, i18n.T("sync.write_errors", sum.WriteErrors))
	}
	if len(sum.Failures) > 0 {
		_, _ = fmt.Fprintln(out, i18n.T("sync.failed_servers", len(sum.Failures)))
		for _, f := range sum.Failures {
			_, _ = fmt.Fprintf(out, "  %s: %v\n", f.Server, f.Err)
		}
	}
}

// cliReporter prints pass progress to stderr.
type cliReporter struct {
	w io.Writer
}

func (r *cliReporter) Reportf(format string, args ...any) {
	if !logging.DebugEnabled() {
		return
	}
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}
