// Package dashboard derives the portfolio summary from raw records.
//
// The computation is pure: it reads the three record collections and a
// reference time and returns a fresh Summary. It never fails; malformed
// amounts must already have been coerced to zero by the caller.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/core"
)

// HistoryMonths is the number of monthly points in Summary.History.
const HistoryMonths = 12

var hundred = decimal.NewFromInt(100)

type (
	Summary struct {
		TotalWealth            decimal.Decimal   `json:"totalWealth"`
		TotalInvestedPortfolio decimal.Decimal   `json:"totalInvestedPortfolio"`
		TotalGain              decimal.Decimal   `json:"totalGain"`
		GlobalPerformance      decimal.Decimal   `json:"globalPerformance"`
		DepositsThisMonth      decimal.Decimal   `json:"depositsThisMonth"`
		Accounts               []AccountSummary  `json:"accounts"`
		History                []HistoryPoint    `json:"history"`
		Allocation             []AllocationSlice `json:"allocation"`
	}

	// AccountSummary is an account merged with its derived metrics.
	AccountSummary struct {
		core.Account
		CurrentValue     decimal.Decimal   `json:"currentValue"`
		TotalInvested    decimal.Decimal   `json:"totalInvested"`
		Performance      decimal.Decimal   `json:"performance"`
		Gain             decimal.Decimal   `json:"gain"`
		RecurringDeposit *RecurringDeposit `json:"recurringDeposit,omitempty"`
	}

	RecurringDeposit struct {
		Amount     decimal.Decimal `json:"amount"`
		Recurrence core.Recurrence `json:"recurrence"`
	}

	HistoryPoint struct {
		MonthKey string          `json:"monthKey"`
		Label    string          `json:"label"`
		Value    decimal.Decimal `json:"value"`
	}

	AllocationSlice struct {
		Name       string          `json:"name"`
		Value      decimal.Decimal `json:"value"`
		Percentage decimal.Decimal `json:"percentage"`
	}
)

// Engine computes summaries with month labels in a given locale.
type Engine struct {
	months monthNames
}

func NewEngine(locale string) *Engine {
	return &Engine{months: namesFor(locale)}
}

var defaultEngine = NewEngine(DefaultLocale)

// Compute builds the summary with French month labels.
func Compute(accounts []core.Account, txs []core.Transaction, vals []core.Valuation, now time.Time) Summary {
	return defaultEngine.Compute(accounts, txs, vals, now)
}

// Compute builds the dashboard summary. Records whose account id matches no
// account are ignored.
func (e *Engine) Compute(accounts []core.Account, txs []core.Transaction, vals []core.Valuation, now time.Time) Summary {
	known := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		known[a.ID] = true
	}
	txByAccount := make(map[string][]core.Transaction)
	for _, t := range txs {
		if known[t.AccountID] {
			txByAccount[t.AccountID] = append(txByAccount[t.AccountID], t)
		}
	}
	valsByAccount := make(map[string][]core.Valuation)
	for _, v := range vals {
		if known[v.AccountID] {
			valsByAccount[v.AccountID] = append(valsByAccount[v.AccountID], v)
		}
	}

	s := Summary{
		TotalWealth:            decimal.Zero,
		TotalInvestedPortfolio: decimal.Zero,
		DepositsThisMonth:      decimal.Zero,
		Accounts:               make([]AccountSummary, 0, len(accounts)),
		Allocation:             []AllocationSlice{},
	}

	for _, a := range accounts {
		detail := summarizeAccount(a, txByAccount[a.ID], valsByAccount[a.ID])
		s.Accounts = append(s.Accounts, detail)
		s.TotalWealth = s.TotalWealth.Add(detail.CurrentValue)
		s.TotalInvestedPortfolio = s.TotalInvestedPortfolio.Add(detail.TotalInvested)

		for _, t := range txByAccount[a.ID] {
			if t.Kind == core.Deposit && t.Date.SameMonth(now) {
				s.DepositsThisMonth = s.DepositsThisMonth.Add(t.Amount)
			}
		}
	}
	s.TotalGain = s.TotalWealth.Sub(s.TotalInvestedPortfolio)
	s.GlobalPerformance = performance(s.TotalWealth, s.TotalInvestedPortfolio)
	s.History = e.history(accounts, valsByAccount, now)
	s.Allocation = allocation(s.Accounts, s.TotalWealth)
	return s
}

func summarizeAccount(a core.Account, txs []core.Transaction, vals []core.Valuation) AccountSummary {
	invested, withdrawn := decimal.Zero, decimal.Zero
	var recurring *RecurringDeposit
	for _, t := range txs {
		switch t.Kind {
		case core.Deposit:
			invested = invested.Add(t.Amount)
			if recurring == nil && t.Recurrence.IsRecurring() {
				recurring = &RecurringDeposit{Amount: t.Amount, Recurrence: t.Recurrence}
			}
		case core.Withdrawal:
			withdrawn = withdrawn.Add(t.Amount)
		}
	}
	net := invested.Sub(withdrawn)

	current := decimal.Zero
	if v, ok := latestAtOrBefore(vals, core.Date{}); ok {
		current = v.Value
	}

	return AccountSummary{
		Account:          a,
		CurrentValue:     current,
		TotalInvested:    net,
		Performance:      performance(current, net),
		Gain:             current.Sub(net),
		RecurringDeposit: recurring,
	}
}

// latestAtOrBefore returns the valuation with the greatest date not after
// limit; a zero limit means no bound. On equal dates the later element wins.
func latestAtOrBefore(vals []core.Valuation, limit core.Date) (core.Valuation, bool) {
	var (
		best  core.Valuation
		found bool
	)
	for _, v := range vals {
		if !limit.IsZero() && v.Date.After(limit) {
			continue
		}
		if !found || !v.Date.Before(best.Date) {
			best, found = v, true
		}
	}
	return best, found
}

// performance is (value-invested)/invested*100, or zero when nothing is
// invested net.
func performance(value, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return value.Sub(invested).Div(invested).Mul(hundred)
}

func (e *Engine) history(accounts []core.Account, valsByAccount map[string][]core.Valuation, now time.Time) []HistoryPoint {
	points := make([]HistoryPoint, 0, HistoryMonths)
	for i := HistoryMonths - 1; i >= 0; i-- {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		end := core.EndOfMonth(first.Year(), first.Month())

		total := decimal.Zero
		for _, a := range accounts {
			if v, ok := latestAtOrBefore(valsByAccount[a.ID], end); ok {
				total = total.Add(v.Value)
			}
		}
		points = append(points, HistoryPoint{
			MonthKey: first.Format("2006-01"),
			Label:    e.months.label(first.Year(), first.Month()),
			Value:    total,
		})
	}
	return points
}

func allocation(accounts []AccountSummary, totalWealth decimal.Decimal) []AllocationSlice {
	slices := []AllocationSlice{}
	index := make(map[string]int)
	for _, a := range accounts {
		name := a.Type.Label()
		i, ok := index[name]
		if !ok {
			i = len(slices)
			index[name] = i
			slices = append(slices, AllocationSlice{Name: name, Value: decimal.Zero})
		}
		slices[i].Value = slices[i].Value.Add(a.CurrentValue)
	}
	for i := range slices {
		slices[i].Percentage = decimal.Zero
		if !totalWealth.IsZero() {
			slices[i].Percentage = slices[i].Value.Div(totalWealth).Mul(hundred)
		}
	}
	return slices
}
