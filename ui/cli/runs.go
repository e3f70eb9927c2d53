// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/i18n"
)

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the most recent sync passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *db.BunStore) error {
				runs, err := st.ListSyncRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("runs.none"))
					return nil
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 = all)")
	return cmd
}
