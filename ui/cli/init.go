// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toeirei/cpcm/internal/config"
	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/i18n"
)

func newInitCmd() *cobra.Command {
	var force, yes bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory, config file and database schema",
		Long: `Creates the data directory ($CPCM_DATA_DIR, default ~/.cpcm), writes a
default config.yaml and migrates the database schema.

Running init again is safe: an existing config is kept and only missing
schema objects are created. --force wipes the data directory first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir, err := config.DataDir()
			if err != nil {
				return err
			}
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}

			if force {
				if !yes && !promptForConfirmation(cmd, i18n.T("init.confirm_force", dir)) {
					_, _ = fmt.Fprintln(out, i18n.T("init.aborted"))
					return nil
				}
				if err := os.RemoveAll(dir); err != nil {
					return fmt.Errorf("could not wipe %s: %w", dir, err)
				}
			}
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("could not create %s: %w", dir, err)
			}

			if _, err := os.Stat(path); err == nil {
				_, _ = fmt.Fprintln(out, i18n.T("init.config_exists", path))
			} else {
				if err := config.WriteConfigFile(&appConfig); err != nil {
					return fmt.Errorf("could not write config: %w", err)
				}
				_, _ = fmt.Fprintln(out, i18n.T("init.config_written", path))
			}

			// opening the store applies the migrations
			if err := withStore(cmd, func(*db.BunStore) error { return nil }); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, i18n.T("init.success", appConfig.Database.Type))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Wipe the data directory before initializing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// promptForConfirmation displays a prompt and reads one line from the
// command's input. Only y or yes confirm.
func promptForConfirmation(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt+" [y/N]: ")
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.TrimSpace(strings.ToLower(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
