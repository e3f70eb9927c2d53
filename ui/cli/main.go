// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/cpcm/buildvars"
	"github.com/toeirei/cpcm/internal/config"
	"github.com/toeirei/cpcm/internal/core"
	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/i18n"
	"github.com/toeirei/cpcm/internal/logging"
	"github.com/toeirei/cpcm/internal/whm"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

// appConfig is resolved by setupDefaultServices before every command runs.
var appConfig config.Config

// openStore opens the configured store. Tests replace it.
var openStore = func(ctx context.Context, c config.Config) (*db.BunStore, error) {
	tables, err := db.NewTables(c.Tables.Domains, c.Tables.Servers)
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, c.Database.Type, c.Database.Dsn, tables)
}

// newFetcher builds the WHM client for a pass. Tests replace it.
var newFetcher = func(c config.Config) core.Fetcher {
	return whm.NewClient(whm.Options{
		Port:               c.Sync.Port,
		Timeout:            c.Sync.TimeoutDuration(),
		InsecureSkipVerify: c.Sync.InsecureSkipVerify,
	})
}

// setupDefaultServices loads the configuration, initializes i18n and applies
// the log level. Only the root's persistent flags are bound so subcommand
// flags never shadow config keys.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	bind := &cobra.Command{}
	bind.Flags().AddFlagSet(cmd.Root().PersistentFlags())
	appConfig, err = config.LoadConfig[config.Config](bind, config.Defaults(), optionalConfigPath)
	// A missing file is expected before `init`; the defaults are complete.
	if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	i18n.Init(appConfig.Language)
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		logging.SetDebug(true)
	}
	logging.Debugf("config: database=%s tables=%s/%s purge_scope=%s", appConfig.Database.Type,
		appConfig.Tables.Servers, appConfig.Tables.Domains, appConfig.Sync.PurgeScope)
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// withStore opens the store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(st *db.BunStore) error) error {
	st, err := openStore(cmd.Context(), appConfig)
	if err != nil {
		return errors.New(i18n.T("config.error_init_db", err))
	}
	defer func() { _ = st.Close() }()
	return fn(st)
}

// Execute runs the CLI entrypoint. SIGINT and SIGTERM cancel the command
// context, which stops a running sync from starting new fetches.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd creates and configures a new root cobra command. Every call
// returns an independent command tree so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cpcm",
		Short: "cpcm caches the domain inventory of a WHM/cPanel fleet.",
		Long: `cpcm pulls every registered server's domain list from the WHM JSON API
into a local database and answers lookups from that cache.

Running without a subcommand opens the interactive domain browser.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupDefaultServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, "")
		},
	}
	cmd.Version = compositeVersion(resolveBuildVersion(nil))

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (includes SQL statements)")
	cmd.PersistentFlags().String("config", "", "config file (default is $CPCM_DATA_DIR/config.yaml)")
	cmd.PersistentFlags().String("language", "", `Output language ("en", "de")`)
	cmd.PersistentFlags().String("database.type", "", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "", "Database connection string (DSN)")

	cmd.AddCommand(
		newInitCmd(),
		newServerCmd(),
		newDomainCmd(),
		newBrowseCmd(),
		newRunsCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newMigrateCmd(),
		newDBMaintainCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
			return nil
		},
	}
}

func compositeVersion(v, c, d string) string {
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, it reads build info from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" && resolvedCommit == "dev" {
					resolvedCommit = s.Value
					if len(resolvedCommit) > 12 {
						resolvedCommit = resolvedCommit[:12]
					}
				}
			case "vcs.time":
				if s.Value != "" && resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}
	return strings.TrimSpace(resolvedVersion), resolvedCommit, resolvedDate
}
