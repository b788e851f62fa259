package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Deposit    TransactionKind = "deposit"
	Withdrawal TransactionKind = "withdrawal"
)

const (
	OneTime   Recurrence = "one-time"
	Weekly    Recurrence = "weekly"
	Monthly   Recurrence = "monthly"
	Quarterly Recurrence = "quarterly"
	Yearly    Recurrence = "yearly"
)

type (
	AccountType     string
	TransactionKind string
	Recurrence      string

	// Account is a tracked investment holding.
	Account struct {
		ID         string      `json:"id"`
		Type       AccountType `json:"type"`
		Name       string      `json:"name"`
		Platform   string      `json:"platform"`
		OpenedDate Date        `json:"openedDate"`
		Notes      string      `json:"notes"`
	}

	// Transaction is a deposit or withdrawal on an account.
	Transaction struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"accountId"`
		Date        Date            `json:"date"`
		Kind        TransactionKind `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Recurrence  Recurrence      `json:"recurrence"`
		Description string          `json:"description"`
	}

	// Valuation is a point-in-time mark of an account's total worth.
	Valuation struct {
		ID        string          `json:"id"`
		AccountID string          `json:"accountId"`
		Date      Date            `json:"date"`
		Value     decimal.Decimal `json:"value"`
		Notes     string          `json:"notes"`
	}

	ConfigEntry struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	// AccountPatch carries the fields of an account update. Nil fields are
	// left untouched.
	AccountPatch struct {
		Type       *AccountType
		Name       *string
		Platform   *string
		OpenedDate *Date
		Notes      *string
	}

	ValuationPatch struct {
		Value *decimal.Decimal
		Notes *string
	}

	// Filter restricts list operations to a single account when AccountID is set.
	Filter struct {
		AccountID string
	}

	// Snapshot is the complete content of a record store.
	Snapshot struct {
		Accounts     []Account
		Transactions []Transaction
		Valuations   []Valuation
		Config       map[string]string
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrEmptyType      = fmt.Errorf("%w: account type is required", ErrInvalidInput)
	ErrEmptyName      = fmt.Errorf("%w: account name cannot be empty", ErrInvalidInput)
	ErrEmptyPlatform  = fmt.Errorf("%w: platform is required", ErrInvalidInput)
	ErrEmptyAccountID = fmt.Errorf("%w: account id is required", ErrInvalidInput)
	ErrNegativeAmount = fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	ErrEmptyKey       = fmt.Errorf("%w: config key is required", ErrInvalidInput)
)

// NotFoundError reports a missing record of the given kind.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Unavailable wraps an I/O failure of a backing store.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.Type)) == "" {
		return ErrEmptyType
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(a.Platform) == "" {
		return ErrEmptyPlatform
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccountID
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (v Valuation) Validate() error {
	if strings.TrimSpace(v.AccountID) == "" {
		return ErrEmptyAccountID
	}
	return nil
}

// Apply returns a copy of a with the patch applied. Type, name and platform
// cannot be cleared; notes can.
func (p AccountPatch) Apply(a Account) (Account, error) {
	if p.Type != nil {
		if strings.TrimSpace(string(*p.Type)) == "" {
			return a, ErrEmptyType
		}
		a.Type = NormalizeAccountType(string(*p.Type))
	}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return a, ErrEmptyName
		}
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Platform != nil {
		if strings.TrimSpace(*p.Platform) == "" {
			return a, ErrEmptyPlatform
		}
		a.Platform = strings.TrimSpace(*p.Platform)
	}
	if p.OpenedDate != nil && !p.OpenedDate.IsZero() {
		a.OpenedDate = *p.OpenedDate
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	return a, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.Type == nil && p.Name == nil && p.Platform == nil && p.OpenedDate == nil && p.Notes == nil
}

func (p ValuationPatch) Apply(v Valuation) Valuation {
	if p.Value != nil {
		v.Value = *p.Value
	}
	if p.Notes != nil {
		v.Notes = *p.Notes
	}
	return v
}

// Matches reports whether a record owned by accountID passes the filter.
func (f Filter) Matches(accountID string) bool {
	return f.AccountID == "" || f.AccountID == accountID
}

// PrepareAccount fills creation defaults: generated id, opening date, derived name.
func PrepareAccount(a Account, now time.Time, newID func() string) (Account, error) {
	a.Type = NormalizeAccountType(string(a.Type))
	a.Platform = strings.TrimSpace(a.Platform)
	a.Name = strings.TrimSpace(a.Name)
	if a.Type == "" {
		return a, ErrEmptyType
	}
	if a.Platform == "" {
		return a, ErrEmptyPlatform
	}
	if a.ID == "" {
		a.ID = newID()
	}
	if a.OpenedDate.IsZero() {
		a.OpenedDate = DateOf(now)
	}
	if a.Name == "" {
		a.Name = DefaultAccountName(a.Type, a.Platform)
	}
	return a, a.Validate()
}

func PrepareTransaction(t Transaction, now time.Time, newID func() string) (Transaction, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Date.IsZero() {
		t.Date = DateOf(now)
	}
	t.Kind = NormalizeKind(string(t.Kind))
	if t.Kind == "" {
		t.Kind = Deposit
	}
	t.Recurrence = NormalizeRecurrence(string(t.Recurrence))
	return t, t.Validate()
}

func PrepareValuation(v Valuation, now time.Time, newID func() string) (Valuation, error) {
	if v.ID == "" {
		v.ID = newID()
	}
	if v.Date.IsZero() {
		v.Date = DateOf(now)
	}
	return v, v.Validate()
}
