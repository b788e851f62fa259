// Package storetest holds the behaviour every record store must share.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/core"
	"folio/internal/sheets"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) sheets.RecordStore

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func account(id, name string) core.Account {
	return core.Account{ID: id, Type: core.Brokerage, Name: name, Platform: "degiro", OpenedDate: core.NewDate(2023, 4, 1), Notes: "n-" + id}
}

// Run exercises the record store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("empty store", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		accounts, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accounts)
		txs, err := s.ListTransactions(ctx, core.Filter{})
		require.NoError(t, err)
		assert.Empty(t, txs)

		cfg, err := s.Config(ctx)
		require.NoError(t, err)
		assert.Equal(t, "EUR", cfg[core.ConfigCurrency])
		assert.Equal(t, "false", cfg[core.ConfigOnboardingComplete])
		assert.Equal(t, core.SchemaVersion, cfg[core.ConfigVersion])
	})

	t.Run("accounts keep insertion order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for _, id := range []string{"c", "a", "b"} {
			_, err := s.AddAccount(ctx, account(id, "acc "+id))
			require.NoError(t, err)
		}
		generated, err := s.AddAccount(ctx, core.Account{Type: core.Crypto, Name: "wallet", Platform: "binance", OpenedDate: core.NewDate(2024, 1, 2)})
		require.NoError(t, err)
		assert.NotEmpty(t, generated.ID)

		got, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, []string{"c", "a", "b", generated.ID}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
		assert.Equal(t, account("a", "acc a"), got[1])
		assert.Equal(t, core.NewDate(2024, 1, 2), got[3].OpenedDate)
	})

	t.Run("update account", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.AddAccount(ctx, account("a", "before"))
		require.NoError(t, err)

		updated, err := s.UpdateAccount(ctx, "a", core.AccountPatch{Name: ptr("after"), Notes: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, "after", updated.Name)
		assert.Equal(t, "", updated.Notes)
		assert.Equal(t, "degiro", updated.Platform)

		got, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, updated, got[0])

		_, err = s.UpdateAccount(ctx, "a", core.AccountPatch{Platform: ptr("")})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		_, err = s.UpdateAccount(ctx, "missing", core.AccountPatch{Name: ptr("x")})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("delete account cascades", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, id := range []string{"keep", "drop"} {
			_, err := s.AddAccount(ctx, account(id, id))
			require.NoError(t, err)
			_, err = s.AddTransaction(ctx, core.Transaction{ID: "t-" + id, AccountID: id, Date: core.NewDate(2024, 1, 1), Kind: core.Deposit, Amount: dec("10"), Recurrence: core.OneTime})
			require.NoError(t, err)
			_, err = s.AddValuation(ctx, core.Valuation{ID: "v-" + id, AccountID: id, Date: core.NewDate(2024, 1, 1), Value: dec("11")})
			require.NoError(t, err)
		}

		require.NoError(t, s.DeleteAccount(ctx, "drop"))

		accounts, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, "keep", accounts[0].ID)

		txs, err := s.ListTransactions(ctx, core.Filter{})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "t-keep", txs[0].ID)

		vals, err := s.ListValuations(ctx, core.Filter{})
		require.NoError(t, err)
		require.Len(t, vals, 1)
		assert.Equal(t, "v-keep", vals[0].ID)

		assert.ErrorIs(t, s.DeleteAccount(ctx, "drop"), core.ErrNotFound)
	})

	t.Run("transactions", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		first, err := s.AddTransaction(ctx, core.Transaction{AccountID: "a", Date: core.NewDate(2024, 2, 29), Kind: core.Deposit, Amount: dec("1234.56"), Recurrence: core.Monthly, Description: "plan"})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		_, err = s.AddTransaction(ctx, core.Transaction{ID: "w", AccountID: "b", Date: core.NewDate(2024, 3, 1), Kind: core.Withdrawal, Amount: dec("20"), Recurrence: core.OneTime})
		require.NoError(t, err)

		onlyA, err := s.ListTransactions(ctx, core.Filter{AccountID: "a"})
		require.NoError(t, err)
		require.Len(t, onlyA, 1)
		got := onlyA[0]
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, core.NewDate(2024, 2, 29), got.Date)
		assert.Equal(t, core.Deposit, got.Kind)
		assert.True(t, dec("1234.56").Equal(got.Amount), got.Amount.String())
		assert.Equal(t, core.Monthly, got.Recurrence)
		assert.Equal(t, "plan", got.Description)

		require.NoError(t, s.DeleteTransaction(ctx, first.ID))
		all, err := s.ListTransactions(ctx, core.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "w", all[0].ID)

		assert.ErrorIs(t, s.DeleteTransaction(ctx, first.ID), core.ErrNotFound)
	})

	t.Run("valuations", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		v, err := s.AddValuation(ctx, core.Valuation{AccountID: "a", Date: core.NewDate(2024, 5, 1), Value: dec("999.5"), Notes: "q1"})
		require.NoError(t, err)
		_, err = s.AddValuation(ctx, core.Valuation{AccountID: "b", Date: core.NewDate(2024, 5, 1), Value: dec("1")})
		require.NoError(t, err)

		updated, err := s.UpdateValuation(ctx, v.ID, core.ValuationPatch{Value: ptr(dec("1000.25"))})
		require.NoError(t, err)
		assert.True(t, dec("1000.25").Equal(updated.Value))
		assert.Equal(t, "q1", updated.Notes)

		updated, err = s.UpdateValuation(ctx, v.ID, core.ValuationPatch{Notes: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, "", updated.Notes)

		onlyA, err := s.ListValuations(ctx, core.Filter{AccountID: "a"})
		require.NoError(t, err)
		require.Len(t, onlyA, 1)
		assert.True(t, dec("1000.25").Equal(onlyA[0].Value))
		assert.Equal(t, core.NewDate(2024, 5, 1), onlyA[0].Date)

		_, err = s.UpdateValuation(ctx, "missing", core.ValuationPatch{Notes: ptr("x")})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("config", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.SetConfig(ctx, core.ConfigOnboardingComplete, "true"))
		require.NoError(t, s.SetConfig(ctx, "theme", "dark"))
		assert.ErrorIs(t, s.SetConfig(ctx, " ", "x"), core.ErrInvalidInput)

		cfg, err := s.Config(ctx)
		require.NoError(t, err)
		assert.Equal(t, "true", cfg[core.ConfigOnboardingComplete])
		assert.Equal(t, "dark", cfg["theme"])
		assert.Equal(t, "EUR", cfg[core.ConfigCurrency])
		assert.NotEmpty(t, cfg[core.ConfigLastUpdate])
	})

	t.Run("snapshot, replace and reset", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		snap := core.Snapshot{
			Accounts:     []core.Account{account("x", "X"), account("y", "Y")},
			Transactions: []core.Transaction{{ID: "t1", AccountID: "x", Date: core.NewDate(2024, 1, 3), Kind: core.Deposit, Amount: dec("5"), Recurrence: core.OneTime}},
			Valuations:   []core.Valuation{{ID: "v1", AccountID: "y", Date: core.NewDate(2024, 1, 4), Value: dec("7")}},
			Config:       map[string]string{core.ConfigCurrency: "USD"},
		}
		require.NoError(t, s.ReplaceAll(ctx, snap))

		got, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap.Accounts, got.Accounts)
		require.Len(t, got.Transactions, 1)
		assert.Equal(t, "t1", got.Transactions[0].ID)
		require.Len(t, got.Valuations, 1)
		assert.Equal(t, "v1", got.Valuations[0].ID)
		assert.Equal(t, "USD", got.Config[core.ConfigCurrency])
		assert.Equal(t, core.SchemaVersion, got.Config[core.ConfigVersion])

		require.NoError(t, s.Reset(ctx))
		got, err = s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, got.Accounts)
		assert.Empty(t, got.Transactions)
		assert.Empty(t, got.Valuations)
		assert.Equal(t, "EUR", got.Config[core.ConfigCurrency])
	})
}
