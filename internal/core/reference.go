package core

import "strings"

const (
	LifeInsurance    AccountType = "life-insurance"
	Brokerage        AccountType = "brokerage"
	RegulatedSavings AccountType = "regulated-savings"
	Retirement       AccountType = "retirement"
	RealEstateFund   AccountType = "real-estate-fund"
	Crypto           AccountType = "crypto"
	OtherAccount     AccountType = "other"
)

// Option is an id/label pair offered to clients for select inputs.
type Option struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
}

var AccountTypes = []Option{
	{ID: string(LifeInsurance), Label: "Life insurance"},
	{ID: string(Brokerage), Label: "Brokerage account"},
	{ID: string(RegulatedSavings), Label: "Regulated savings"},
	{ID: string(Retirement), Label: "Retirement plan"},
	{ID: string(RealEstateFund), Label: "Real estate fund"},
	{ID: string(Crypto), Label: "Crypto"},
	{ID: string(OtherAccount), Label: "Other"},
}

var Platforms = []Option{
	{ID: "boursorama", Label: "Boursorama", Category: "online-bank"},
	{ID: "fortuneo", Label: "Fortuneo", Category: "online-bank"},
	{ID: "bourse-direct", Label: "Bourse Direct", Category: "broker"},
	{ID: "degiro", Label: "Degiro", Category: "broker"},
	{ID: "trade-republic", Label: "Trade Republic", Category: "broker"},
	{ID: "linxea", Label: "Linxea", Category: "insurer"},
	{ID: "yomoni", Label: "Yomoni", Category: "insurer"},
	{ID: "nalo", Label: "Nalo", Category: "insurer"},
	{ID: "swisslife", Label: "Swisslife", Category: "insurer"},
	{ID: "axa", Label: "AXA", Category: "insurer"},
	{ID: "generali", Label: "Generali", Category: "insurer"},
	{ID: "credit-agricole", Label: "Credit Agricole", Category: "traditional-bank"},
	{ID: "bnp-paribas", Label: "BNP Paribas", Category: "traditional-bank"},
	{ID: "societe-generale", Label: "Societe Generale", Category: "traditional-bank"},
	{ID: "binance", Label: "Binance", Category: "crypto"},
	{ID: "coinbase", Label: "Coinbase", Category: "crypto"},
	{ID: "other", Label: "Other", Category: "other"},
}

var legacyAccountTypes = map[string]AccountType{
	"assurance-vie": LifeInsurance,
	"pea":           Brokerage,
	"cto":           Brokerage,
	"livret":        RegulatedSavings,
	"per":           Retirement,
	"scpi":          RealEstateFund,
	"autre":         OtherAccount,
}

var legacyKinds = map[string]TransactionKind{
	"depot":   Deposit,
	"dépôt":   Deposit,
	"retrait": Withdrawal,
}

var legacyRecurrences = map[string]Recurrence{
	"ponctuel":     OneTime,
	"unique":       OneTime,
	"hebdomadaire": Weekly,
	"mensuel":      Monthly,
	"trimestriel":  Quarterly,
	"annuel":       Yearly,
}

func lookup(options []Option, id string) (Option, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Label returns the human-readable label of the type, or the raw tag when unmapped.
func (t AccountType) Label() string {
	if o, ok := lookup(AccountTypes, string(t)); ok {
		return o.Label
	}
	return string(t)
}

// PlatformLabel returns the label of a known platform; free text is returned as is.
func PlatformLabel(platform string) string {
	if o, ok := lookup(Platforms, platform); ok {
		return o.Label
	}
	return platform
}

// DefaultAccountName is used when an account is created without a name.
func DefaultAccountName(t AccountType, platform string) string {
	return t.Label() + " - " + PlatformLabel(platform)
}

// NormalizeAccountType lower-cases the tag and maps legacy tags. Unknown
// tags are kept.
func NormalizeAccountType(s string) AccountType {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := legacyAccountTypes[s]; ok {
		return t
	}
	return AccountType(s)
}

// NormalizeKind maps legacy kinds. Unknown kinds are stored but ignored
// by aggregation.
func NormalizeKind(s string) TransactionKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := legacyKinds[s]; ok {
		return k
	}
	return TransactionKind(s)
}

// NormalizeRecurrence maps legacy tags; anything unknown is one-time.
func NormalizeRecurrence(s string) Recurrence {
	s = strings.ToLower(strings.TrimSpace(s))
	if r, ok := legacyRecurrences[s]; ok {
		return r
	}
	switch r := Recurrence(s); r {
	case Weekly, Monthly, Quarterly, Yearly:
		return r
	}
	return OneTime
}

// IsRecurring reports whether r describes a repeating transaction.
func (r Recurrence) IsRecurring() bool {
	return r != "" && r != OneTime
}
