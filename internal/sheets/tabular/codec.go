// Package tabular maps records to spreadsheet rows and back. It is shared by
// the xlsx and Google Sheets stores, which use the same four-sheet layout.
package tabular

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"folio/internal/core"
)

const (
	SheetAccounts     = "Accounts"
	SheetTransactions = "Transactions"
	SheetValuations   = "Valuations"
	SheetConfig       = "Configuration"
)

// Table describes one sheet: its canonical header and the legacy header
// names accepted on read.
type Table struct {
	Name    string
	Legacy  string
	Header  []string
	aliases map[string]string
}

var (
	Accounts = Table{
		Name:    SheetAccounts,
		Legacy:  "Comptes",
		Header:  []string{"id", "type", "name", "platform", "openedDate", "notes"},
		aliases: map[string]string{"nom": "name", "plateforme": "platform", "dateouverture": "openedDate"},
	}
	Transactions = Table{
		Name:    SheetTransactions,
		Header:  []string{"id", "accountId", "date", "kind", "amount", "recurrence", "description"},
		aliases: map[string]string{"compteid": "accountId", "type": "kind", "montant": "amount", "frequence": "recurrence"},
	}
	Valuations = Table{
		Name:    SheetValuations,
		Legacy:  "Valorisations",
		Header:  []string{"id", "accountId", "date", "value", "notes"},
		aliases: map[string]string{"compteid": "accountId", "valeur": "value"},
	}
	Config = Table{
		Name:    SheetConfig,
		Header:  []string{"key", "value"},
		aliases: map[string]string{"cle": "key", "clé": "key", "valeur": "value"},
	}

	// Tables lists the sheets in workbook order.
	Tables = []Table{Accounts, Transactions, Valuations, Config}
)

var legacyConfigKeys = map[string]string{"devise": core.ConfigCurrency}

// Workbook holds raw cell text per sheet name, header row first.
type Workbook map[string][][]string

// Rows returns the rows of t, looking up the legacy sheet name when the
// canonical one is absent.
func (w Workbook) Rows(t Table) [][]string {
	if rows, ok := w[t.Name]; ok {
		return rows
	}
	if t.Legacy != "" {
		return w[t.Legacy]
	}
	return nil
}

// columns maps canonical column names to their index in header.
func (t Table) columns(header []string) map[string]int {
	cols := make(map[string]int, len(t.Header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		name := ""
		for _, c := range t.Header {
			if strings.EqualFold(c, h) {
				name = c
				break
			}
		}
		if name == "" {
			name = t.aliases[strings.ToLower(h)]
		}
		if name == "" {
			continue
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

type record map[string]string

// records decodes the data rows of t, skipping blank ones.
func (t Table) records(rows [][]string) []record {
	if len(rows) == 0 {
		return nil
	}
	cols := t.columns(rows[0])
	var out []record
	for _, row := range rows[1:] {
		rec := make(record, len(cols))
		blank := true
		for name, idx := range cols {
			v := strings.TrimSpace(safeGet(row, idx))
			if v != "" {
				blank = false
			}
			rec[name] = v
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// Decode converts a workbook into records. Unparseable amounts become zero
// and unparseable dates stay empty.
func Decode(w Workbook) core.Snapshot {
	snap := core.Snapshot{Config: map[string]string{}}
	for _, r := range Accounts.records(w.Rows(Accounts)) {
		snap.Accounts = append(snap.Accounts, core.Account{
			ID:         r["id"],
			Type:       core.NormalizeAccountType(r["type"]),
			Name:       r["name"],
			Platform:   r["platform"],
			OpenedDate: parseDate(r["openedDate"]),
			Notes:      r["notes"],
		})
	}
	for _, r := range Transactions.records(w.Rows(Transactions)) {
		snap.Transactions = append(snap.Transactions, core.Transaction{
			ID:          r["id"],
			AccountID:   r["accountId"],
			Date:        parseDate(r["date"]),
			Kind:        core.NormalizeKind(r["kind"]),
			Amount:      core.CoerceAmount(r["amount"]),
			Recurrence:  core.NormalizeRecurrence(r["recurrence"]),
			Description: r["description"],
		})
	}
	for _, r := range Valuations.records(w.Rows(Valuations)) {
		snap.Valuations = append(snap.Valuations, core.Valuation{
			ID:        r["id"],
			AccountID: r["accountId"],
			Date:      parseDate(r["date"]),
			Value:     core.CoerceAmount(r["value"]),
			Notes:     r["notes"],
		})
	}
	for _, r := range Config.records(w.Rows(Config)) {
		key := r["key"]
		if legacy, ok := legacyConfigKeys[key]; ok {
			key = legacy
		}
		if key != "" {
			snap.Config[key] = r["value"]
		}
	}
	return snap
}

// parseDate accepts text dates and spreadsheet serial numbers.
func parseDate(s string) core.Date {
	if d, err := core.ParseDate(s); err == nil {
		return d
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return core.DateOf(t)
		}
	}
	return core.Date{}
}

// Sheet is an encoded sheet ready to be written.
type Sheet struct {
	Table Table
	Rows  [][]any
}

// Encode converts a snapshot into sheets in workbook order, header first.
// Amounts are written as numbers so spreadsheet formulas work on them,
// unless a float64 cannot hold them exactly.
func Encode(snap core.Snapshot) []Sheet {
	accounts := Sheet{Table: Accounts, Rows: [][]any{header(Accounts)}}
	for _, a := range snap.Accounts {
		accounts.Rows = append(accounts.Rows, []any{a.ID, string(a.Type), a.Name, a.Platform, a.OpenedDate.String(), a.Notes})
	}
	txs := Sheet{Table: Transactions, Rows: [][]any{header(Transactions)}}
	for _, t := range snap.Transactions {
		txs.Rows = append(txs.Rows, []any{t.ID, t.AccountID, t.Date.String(), string(t.Kind), number(t.Amount), string(t.Recurrence), t.Description})
	}
	vals := Sheet{Table: Valuations, Rows: [][]any{header(Valuations)}}
	for _, v := range snap.Valuations {
		vals.Rows = append(vals.Rows, []any{v.ID, v.AccountID, v.Date.String(), number(v.Value), v.Notes})
	}
	cfg := Sheet{Table: Config, Rows: [][]any{header(Config)}}
	for _, k := range configKeys(snap.Config) {
		cfg.Rows = append(cfg.Rows, []any{k, snap.Config[k]})
	}
	return []Sheet{accounts, txs, vals, cfg}
}

func header(t Table) []any {
	out := make([]any, len(t.Header))
	for i, h := range t.Header {
		out[i] = h
	}
	return out
}

// number returns d as a float64 when that is exact, else as its decimal
// text, which Decode parses back without loss.
func number(d decimal.Decimal) any {
	f := d.InexactFloat64()
	if decimal.NewFromFloat(f).Equal(d) {
		return f
	}
	return d.String()
}

// configKeys orders the default keys first, then any others alphabetically.
func configKeys(cfg map[string]string) []string {
	keys := make([]string, 0, len(cfg))
	seen := make(map[string]bool, len(cfg))
	for _, e := range core.DefaultConfig(time.Time{}) {
		if _, ok := cfg[e.Key]; ok {
			keys = append(keys, e.Key)
			seen[e.Key] = true
		}
	}
	var rest []string
	for k := range cfg {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// Range returns an A1 range covering a sheet of n columns.
func Range(sheet string, columns int) string {
	col, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		col = "Z"
	}
	return fmt.Sprintf("%s!A:%s", sheet, col)
}
