// Package report formats dashboard summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/olekukonko/tablewriter"

	"folio/internal/core"
	"folio/internal/dashboard"
)

// Markdown renders the summary as a markdown document.
func Markdown(s dashboard.Summary, currency string) string {
	var b strings.Builder
	b.WriteString("# Portfolio\n\n")
	fmt.Fprintf(&b, "- **Total wealth:** %s\n", core.FormatMoney(s.TotalWealth, currency))
	fmt.Fprintf(&b, "- **Invested:** %s\n", core.FormatMoney(s.TotalInvestedPortfolio, currency))
	fmt.Fprintf(&b, "- **Gain:** %s (%s %%)\n", core.FormatMoney(s.TotalGain, currency), s.GlobalPerformance.StringFixed(2))
	fmt.Fprintf(&b, "- **Deposits this month:** %s\n\n", core.FormatMoney(s.DepositsThisMonth, currency))

	b.WriteString("## Accounts\n\n")
	if len(s.Accounts) == 0 {
		b.WriteString("No accounts yet.\n\n")
	} else {
		rows := make([][]string, 0, len(s.Accounts))
		for _, a := range s.Accounts {
			rows = append(rows, []string{
				a.Name,
				a.Type.Label(),
				core.PlatformLabel(a.Platform),
				core.FormatMoney(a.CurrentValue, currency),
				core.FormatMoney(a.TotalInvested, currency),
				core.FormatMoney(a.Gain, currency),
				a.Performance.StringFixed(2) + " %",
			})
		}
		markdownTable(&b, []string{"Name", "Type", "Platform", "Value", "Invested", "Gain", "Performance"}, rows)
	}

	if len(s.Allocation) > 0 {
		b.WriteString("## Allocation\n\n")
		rows := make([][]string, 0, len(s.Allocation))
		for _, a := range s.Allocation {
			rows = append(rows, []string{a.Name, core.FormatMoney(a.Value, currency), a.Percentage.StringFixed(1) + " %"})
		}
		markdownTable(&b, []string{"Type", "Value", "Share"}, rows)
	}

	b.WriteString("## History\n\n")
	rows := make([][]string, 0, len(s.History))
	for _, p := range s.History {
		rows = append(rows, []string{p.Label, core.FormatMoney(p.Value, currency)})
	}
	markdownTable(&b, []string{"Month", "Wealth"}, rows)
	return b.String()
}

func markdownTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.AppendBulk(rows)
	table.Render()
	_, _ = io.WriteString(w, "\n")
}

// Render turns markdown into styled terminal output.
func Render(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return r.Render(md)
}

// AccountsTable writes accounts as a plain terminal table.
func AccountsTable(w io.Writer, accounts []core.Account) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Type", "Platform", "Opened"})
	for _, a := range accounts {
		table.Append([]string{a.ID, a.Name, a.Type.Label(), core.PlatformLabel(a.Platform), a.OpenedDate.String()})
	}
	table.Render()
}

// TransactionsTable writes transactions as a plain terminal table.
func TransactionsTable(w io.Writer, txs []core.Transaction, currency string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Account", "Date", "Kind", "Amount", "Recurrence", "Description"})
	table.SetAutoWrapText(false)
	for _, t := range txs {
		table.Append([]string{
			t.ID, t.AccountID, t.Date.String(), string(t.Kind),
			core.FormatMoney(t.Amount, currency), string(t.Recurrence), t.Description,
		})
	}
	table.Render()
}
