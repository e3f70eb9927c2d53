// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui is the interactive domain browser.
package tui // import "github.com/toeirei/cpcm/internal/tui"

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/toeirei/cpcm/internal/db"
)

// Run opens the browser on s with an optional initial filter and blocks
// until the user quits.
func Run(ctx context.Context, s db.DomainSearcher, filter string) error {
	_, err := tea.NewProgram(
		newBrowseModel(ctx, s, filter),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	).Run()
	return err
}
