// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/tui"
)

// runTUI starts the browser. Tests replace it.
var runTUI = tui.Run

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [filter]",
		Short: "Browse cached domains interactively",
		Long: `Opens a table of cached domains. Press / to filter by name, c to copy the
selected docroot to the clipboard and q to quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return runBrowse(cmd, filter)
		},
	}
}

func runBrowse(cmd *cobra.Command, filter string) error {
	return withStore(cmd, func(st *db.BunStore) error {
		return runTUI(cmd.Context(), st, filter)
	})
}
