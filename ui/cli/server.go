// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/cpcm/internal/core"
	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/i18n"
	"github.com/toeirei/cpcm/internal/model"
	"github.com/toeirei/cpcm/internal/security"
)

// stdinIsTerminal reports whether the API key prompt can disable echo.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the registered WHM servers",
	}
	cmd.AddCommand(newServerAddCmd(), newServerListCmd(), newServerRemoveCmd())
	return cmd
}

func newServerAddCmd() *cobra.Command {
	var srv model.Server
	var keyFromStdin bool
	cmd := &cobra.Command{
		Use:   "add --name <name> --ip <ip> --user <user>",
		Short: "Register a server or replace its credentials",
		Long: `Registers a WHM server. An existing (name, ip) entry is updated in place.

The API token is read from the terminal without echo, or from the first line
of standard input with --apikey-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readAPIKey(cmd, keyFromStdin)
			if err != nil {
				return err
			}
			srv.APIKey = key
			defer srv.APIKey.Zero()

			return withStore(cmd, func(st *db.BunStore) error {
				if err := core.AddServer(cmd.Context(), st, srv); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("server.added", srv.Key().String()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&srv.Name, "name", "", "Server name")
	cmd.Flags().StringVar(&srv.IP, "ip", "", "Server IP address")
	cmd.Flags().StringVar(&srv.User, "user", "root", "WHM user the token belongs to")
	cmd.Flags().StringVar(&srv.Hostname, "hostname", "", "Optional hostname")
	cmd.Flags().StringVar(&srv.Group, "group", "", "Optional group label")
	cmd.Flags().BoolVar(&keyFromStdin, "apikey-stdin", false, "Read the API token from standard input")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}

// readAPIKey prompts without echo on a terminal and otherwise reads the
// first line of the command's input.
func readAPIKey(cmd *cobra.Command, fromStdin bool) (security.Secret, error) {
	if !fromStdin && stdinIsTerminal() {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), i18n.T("server.apikey_prompt"))
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, errors.New(i18n.T("server.error_read_apikey", err))
		}
		return security.Secret(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.New(i18n.T("server.error_read_apikey", err))
	}
	return security.FromString(strings.TrimSpace(line)), nil
}

func newServerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered servers (API keys are never shown)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *db.BunStore) error {
				servers, err := core.ListServers(cmd.Context(), st)
				if err != nil {
					return err
				}
				if len(servers) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("server.none"))
					return nil
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderServers(servers))
				return nil
			})
		},
	}
}

func newServerRemoveCmd() *cobra.Command {
	var key model.ServerKey
	cmd := &cobra.Command{
		Use:   "remove --name <name> --ip <ip>",
		Short: "Remove a server together with its cached domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *db.BunStore) error {
				n, err := core.RemoveServer(cmd.Context(), st, key)
				if err != nil {
					if errors.Is(err, core.ErrServerNotFound) {
						return errors.New(i18n.T("server.not_found", key.String()))
					}
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("server.removed", key.String(), n))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&key.Name, "name", "", "Server name")
	cmd.Flags().StringVar(&key.IP, "ip", "", "Server IP address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}
