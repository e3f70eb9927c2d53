// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/toeirei/cpcm/internal/i18n"
	"github.com/toeirei/cpcm/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func renderDomains(recs []model.DomainRecord) string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{r.Domain, r.ServerName, r.DomainType, r.User, r.Docroot, r.PHPVersion})
	}
	return renderTable([]string{
		i18n.T("table.domain"), i18n.T("table.server"), i18n.T("table.type"),
		i18n.T("table.user"), i18n.T("table.docroot"), i18n.T("table.php"),
	}, rows)
}

func renderServers(servers []model.Server) string {
	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		rows = append(rows, []string{s.Name, s.IP, s.User, s.Hostname, s.Group})
	}
	return renderTable([]string{
		i18n.T("table.name"), i18n.T("table.ip"), i18n.T("table.user"),
		i18n.T("table.hostname"), i18n.T("table.group"),
	}, rows)
}

func renderRuns(runs []model.SyncRun) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			strconv.FormatInt(r.Epoch, 10),
			strconv.Itoa(r.ServersTotal),
			strconv.Itoa(r.ServersFailed),
			strconv.Itoa(r.RecordsWritten),
			strconv.Itoa(r.RecordsInvalid),
			strconv.FormatInt(r.Purged, 10),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		})
	}
	return renderTable([]string{
		i18n.T("table.started"), i18n.T("table.epoch"), i18n.T("table.servers"), i18n.T("table.failed"),
		i18n.T("table.written"), i18n.T("table.invalid"), i18n.T("table.purged"), i18n.T("table.duration"),
	}, rows)
}
