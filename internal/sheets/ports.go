package sheets

import (
	"context"

	"folio/internal/core"
)

// Ports for outbound adapters.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		// AddAccount stores a and returns it with an id assigned when missing.
		AddAccount(ctx context.Context, a core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error)
		// DeleteAccount removes the account together with its transactions
		// and valuations.
		DeleteAccount(ctx context.Context, id string) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error)
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	ValuationStore interface {
		ListValuations(ctx context.Context, f core.Filter) ([]core.Valuation, error)
		AddValuation(ctx context.Context, v core.Valuation) (core.Valuation, error)
		UpdateValuation(ctx context.Context, id string, patch core.ValuationPatch) (core.Valuation, error)
	}

	ConfigStore interface {
		Config(ctx context.Context) (map[string]string, error)
		SetConfig(ctx context.Context, key, value string) error
	}

	// Mirror is implemented by stores that can be read or overwritten in one go.
	Mirror interface {
		Snapshot(ctx context.Context) (core.Snapshot, error)
		ReplaceAll(ctx context.Context, s core.Snapshot) error
	}

	// RecordStore is the full record store contract. Lists return records in
	// insertion order; update and delete of a missing id return core.ErrNotFound.
	RecordStore interface {
		AccountStore
		TransactionStore
		ValuationStore
		ConfigStore
		Mirror
		// Reset drops every record and restores the default configuration.
		Reset(ctx context.Context) error
	}
)
