// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/i18n"
	"github.com/toeirei/cpcm/internal/model"
)

// resultsMsg carries the records for one filter value.
type resultsMsg struct {
	filter  string
	records []model.DomainRecord
	err     error
}

type browseModel struct {
	ctx      context.Context
	searcher db.DomainSearcher
	copyFn   func(string) error

	input     textinput.Model
	table     table.Model
	records   []model.DomainRecord
	filtering bool

	status string
	err    error
	width  int
	height int
}

func newBrowseModel(ctx context.Context, s db.DomainSearcher, filter string) browseModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = i18n.T("browse.filter_placeholder")
	ti.CharLimit = 253
	ti.SetValue(filter)

	t := table.New(
		table.WithColumns(columnsFor(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	return browseModel{
		ctx:      ctx,
		searcher: s,
		copyFn:   clipboard.WriteAll,
		input:    ti,
		table:    t,
	}
}

func columnsFor(width int) []table.Column {
	// domain and docroot share whatever the fixed columns leave over
	fixed := 12 + 14 + 10 + 10
	rest := width - fixed - 12
	if rest < 30 {
		rest = 30
	}
	return []table.Column{
		{Title: i18n.T("browse.col_domain"), Width: rest / 2},
		{Title: i18n.T("browse.col_server"), Width: 12},
		{Title: i18n.T("browse.col_type"), Width: 14},
		{Title: i18n.T("browse.col_user"), Width: 10},
		{Title: i18n.T("browse.col_php"), Width: 10},
		{Title: i18n.T("browse.col_docroot"), Width: rest - rest/2},
	}
}

func (m browseModel) search(filter string) tea.Cmd {
	return func() tea.Msg {
		recs, err := m.searcher.SearchDomains(m.ctx, db.DomainFilter{Substring: strings.TrimSpace(filter)})
		return resultsMsg{filter: filter, records: recs, err: err}
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.search(m.input.Value())
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columnsFor(msg.Width - 4))
		if h := msg.Height - 10; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case resultsMsg:
		// a slower query for an older filter value must not win
		if msg.filter != m.input.Value() {
			return m, nil
		}
		m.err = msg.err
		m.records = msg.records
		m.table.SetRows(rowsFor(msg.records))
		m.table.SetCursor(0)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "/":
			m.filtering = true
			m.table.Blur()
			cmd := m.input.Focus()
			return m, cmd
		case "c", "y":
			return m.copySelected(), nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m browseModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.input.Blur()
		m.table.Focus()
		return m, nil
	case "esc":
		m.filtering = false
		m.input.Blur()
		m.table.Focus()
		if m.input.Value() == "" {
			return m, nil
		}
		m.input.SetValue("")
		return m, m.search("")
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		return m, tea.Batch(cmd, m.search(m.input.Value()))
	}
	return m, cmd
}

func (m browseModel) copySelected() browseModel {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return m
	}
	docroot := m.records[i].Docroot
	if err := m.copyFn(docroot); err != nil {
		m.status = errorStyle.Render(i18n.T("browse.copy_failed", err))
		return m
	}
	m.status = successStyle.Render(i18n.T("browse.copied", docroot))
	return m
}

func rowsFor(recs []model.DomainRecord) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, table.Row{r.Domain, r.ServerName, r.DomainType, r.User, r.PHPVersion, r.Docroot})
	}
	return rows
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("browse.title")))
	b.WriteString("\n")
	if m.filtering || m.input.Value() != "" {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(tableBorder.Render(m.table.View()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(i18n.T("browse.error", m.err)))
		b.WriteString("\n")
	}
	footer := []string{i18n.T("browse.count", len(m.records))}
	if m.status != "" {
		footer = append(footer, m.status)
	}
	b.WriteString(strings.Join(footer, "  "))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(i18n.T("browse.help")))
	return docStyle.Render(b.String())
}
