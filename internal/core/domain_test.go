package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedID() string { return "id-1" }

func ptr[T any](v T) *T { return &v }

func TestPrepareAccountDefaults(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	a, err := PrepareAccount(Account{Type: "brokerage", Platform: "degiro"}, now, fixedID)
	require.NoError(t, err)
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, "Brokerage account - Degiro", a.Name)
	assert.Equal(t, NewDate(2024, time.March, 15), a.OpenedDate)
	assert.Equal(t, "", a.Notes)

	a, err = PrepareAccount(Account{Type: "pea", Platform: "My bank", Name: "Main"}, now, fixedID)
	require.NoError(t, err)
	assert.Equal(t, Brokerage, a.Type)
	assert.Equal(t, "Main", a.Name)

	_, err = PrepareAccount(Account{Platform: "degiro"}, now, fixedID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = PrepareAccount(Account{Type: "crypto"}, now, fixedID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPrepareTransaction(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tx, err := PrepareTransaction(Transaction{AccountID: "a", Kind: "depot", Amount: decimal.NewFromInt(5), Recurrence: "mensuel"}, now, fixedID)
	require.NoError(t, err)
	assert.Equal(t, Deposit, tx.Kind)
	assert.Equal(t, Monthly, tx.Recurrence)
	assert.Equal(t, NewDate(2024, time.March, 15), tx.Date)

	tx, err = PrepareTransaction(Transaction{AccountID: "a"}, now, fixedID)
	require.NoError(t, err)
	assert.Equal(t, Deposit, tx.Kind)
	assert.Equal(t, OneTime, tx.Recurrence)

	_, err = PrepareTransaction(Transaction{AccountID: "a", Amount: decimal.NewFromInt(-1)}, now, fixedID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = PrepareTransaction(Transaction{Amount: decimal.NewFromInt(1)}, now, fixedID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAccountPatchApply(t *testing.T) {
	base := Account{ID: "x", Type: Crypto, Name: "Wallet", Platform: "binance", Notes: "cold"}

	t.Run("nil fields untouched", func(t *testing.T) {
		got, err := AccountPatch{}.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("notes can be cleared", func(t *testing.T) {
		got, err := AccountPatch{Notes: ptr("")}.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, "", got.Notes)
		assert.Equal(t, "Wallet", got.Name)
	})

	t.Run("name cannot be cleared", func(t *testing.T) {
		_, err := AccountPatch{Name: ptr("  ")}.Apply(base)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("type is normalised", func(t *testing.T) {
		typ := AccountType("SCPI")
		got, err := AccountPatch{Type: &typ}.Apply(base)
		require.NoError(t, err)
		assert.Equal(t, RealEstateFund, got.Type)
	})
}

func TestValuationPatchApply(t *testing.T) {
	v := Valuation{ID: "v", Value: decimal.NewFromInt(10), Notes: "n"}
	got := ValuationPatch{Value: ptr(decimal.NewFromInt(20))}.Apply(v)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "n", got.Notes)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Life insurance", LifeInsurance.Label())
	assert.Equal(t, "gold-bars", AccountType("gold-bars").Label())
	assert.Equal(t, "Trade Republic", PlatformLabel("trade-republic"))
	assert.Equal(t, "Local bank", PlatformLabel("Local bank"))
	assert.Equal(t, OneTime, NormalizeRecurrence("whenever"))
	assert.Equal(t, Withdrawal, NormalizeKind("Retrait"))
	assert.Equal(t, TransactionKind("dividend"), NormalizeKind("dividend"))
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-31"`), &d))
	assert.Equal(t, NewDate(2024, time.January, 31), d)

	require.NoError(t, json.Unmarshal([]byte(`"2024-02-01T23:00:00Z"`), &d))
	assert.Equal(t, NewDate(2024, time.February, 1), d)

	require.NoError(t, json.Unmarshal([]byte(`"15/03/2024"`), &d))
	assert.Equal(t, NewDate(2024, time.March, 15), d)

	err := json.Unmarshal([]byte(`"yesterday"`), &d)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	b, err := json.Marshal(NewDate(2024, time.May, 2))
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-02"`, string(b))
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, NewDate(2024, time.February, 29), EndOfMonth(2024, time.February))
	assert.Equal(t, NewDate(2023, time.December, 31), EndOfMonth(2023, time.December))
	assert.True(t, NewDate(2024, time.March, 3).SameMonth(time.Date(2024, 3, 30, 22, 0, 0, 0, time.UTC)))
}
