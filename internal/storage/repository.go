package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"folio/internal/core"
	ports "folio/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.RecordStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	path    string
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps read-modify-write sequences consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		path:    dbPath,
		queries: New(db),
		now:     time.Now,
	}
	if err := repo.seedConfig(context.Background(), false); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Location() string { return r.path }

func (r *SQLiteRepository) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(r.path)
	return err == nil, nil
}

// seedConfig writes the default configuration; existing keys are kept
// unless overwrite is set.
func (r *SQLiteRepository) seedConfig(ctx context.Context, overwrite bool) error {
	q := r.queries
	for _, e := range core.DefaultConfig(r.now()) {
		var err error
		if overwrite {
			err = q.UpsertConfig(ctx, e.Key, e.Value)
		} else {
			err = q.InsertConfigIfMissing(ctx, e.Key, e.Value)
		}
		if err != nil {
			return core.Unavailable("seed config", err)
		}
	}
	return nil
}

// inTx runs fn in a transaction and refreshes lastUpdate when it succeeds.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Unavailable(op, err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := fn(q); err != nil {
		return err
	}
	if err := q.UpsertConfig(ctx, core.ConfigLastUpdate, r.now().UTC().Format(time.RFC3339)); err != nil {
		return core.Unavailable(op, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Unavailable(op, err)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	items, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, core.Unavailable("list accounts", err)
	}
	return items, nil
}

func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.inTx(ctx, "add account", func(q *Queries) error {
		if err := q.InsertAccount(ctx, a); err != nil {
			return core.Unavailable("add account", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	slog.DebugContext(ctx, "Account saved to SQLite", "id", a.ID, "type", a.Type)
	return a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error) {
	var updated core.Account
	err := r.inTx(ctx, "update account", func(q *Queries) error {
		current, err := q.GetAccount(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundError("account", id)
		}
		if err != nil {
			return core.Unavailable("get account", err)
		}
		updated, err = patch.Apply(current)
		if err != nil {
			return err
		}
		if _, err := q.UpdateAccount(ctx, updated); err != nil {
			return core.Unavailable("update account", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return updated, nil
}

// DeleteAccount removes the account and, in the same transaction, its
// transactions and valuations.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	return r.inTx(ctx, "delete account", func(q *Queries) error {
		n, err := q.DeleteAccount(ctx, id)
		if err != nil {
			return core.Unavailable("delete account", err)
		}
		if n == 0 {
			return core.NotFoundError("account", id)
		}
		if err := q.DeleteAccountTransactions(ctx, id); err != nil {
			return core.Unavailable("delete account transactions", err)
		}
		if err := q.DeleteAccountValuations(ctx, id); err != nil {
			return core.Unavailable("delete account valuations", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	items, err := r.queries.ListTransactions(ctx, f.AccountID)
	if err != nil {
		return nil, core.Unavailable("list transactions", err)
	}
	return items, nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := r.inTx(ctx, "add transaction", func(q *Queries) error {
		if err := q.InsertTransaction(ctx, t); err != nil {
			return core.Unavailable("add transaction", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	return r.inTx(ctx, "delete transaction", func(q *Queries) error {
		n, err := q.DeleteTransaction(ctx, id)
		if err != nil {
			return core.Unavailable("delete transaction", err)
		}
		if n == 0 {
			return core.NotFoundError("transaction", id)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListValuations(ctx context.Context, f core.Filter) ([]core.Valuation, error) {
	items, err := r.queries.ListValuations(ctx, f.AccountID)
	if err != nil {
		return nil, core.Unavailable("list valuations", err)
	}
	return items, nil
}

func (r *SQLiteRepository) AddValuation(ctx context.Context, v core.Valuation) (core.Valuation, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	err := r.inTx(ctx, "add valuation", func(q *Queries) error {
		if err := q.InsertValuation(ctx, v); err != nil {
			return core.Unavailable("add valuation", err)
		}
		return nil
	})
	if err != nil {
		return core.Valuation{}, err
	}
	return v, nil
}

func (r *SQLiteRepository) UpdateValuation(ctx context.Context, id string, patch core.ValuationPatch) (core.Valuation, error) {
	var updated core.Valuation
	err := r.inTx(ctx, "update valuation", func(q *Queries) error {
		current, err := q.GetValuation(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundError("valuation", id)
		}
		if err != nil {
			return core.Unavailable("get valuation", err)
		}
		updated = patch.Apply(current)
		if err := q.UpdateValuation(ctx, id, updated.Value, updated.Notes); err != nil {
			return core.Unavailable("update valuation", err)
		}
		return nil
	})
	if err != nil {
		return core.Valuation{}, err
	}
	return updated, nil
}

func (r *SQLiteRepository) Config(ctx context.Context) (map[string]string, error) {
	cfg, err := r.queries.ListConfig(ctx)
	if err != nil {
		return nil, core.Unavailable("read config", err)
	}
	return cfg, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return core.ErrEmptyKey
	}
	return r.inTx(ctx, "set config", func(q *Queries) error {
		if err := q.UpsertConfig(ctx, key, value); err != nil {
			return core.Unavailable("set config", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var (
		snap core.Snapshot
		err  error
	)
	if snap.Accounts, err = r.ListAccounts(ctx); err != nil {
		return snap, err
	}
	if snap.Transactions, err = r.ListTransactions(ctx, core.Filter{}); err != nil {
		return snap, err
	}
	if snap.Valuations, err = r.ListValuations(ctx, core.Filter{}); err != nil {
		return snap, err
	}
	if snap.Config, err = r.Config(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// ReplaceAll swaps the whole content for snap in one transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, snap core.Snapshot) error {
	return r.inTx(ctx, "replace records", func(q *Queries) error {
		if err := q.DeleteAll(ctx); err != nil {
			return core.Unavailable("clear records", err)
		}
		for _, e := range core.DefaultConfig(r.now()) {
			if err := q.UpsertConfig(ctx, e.Key, e.Value); err != nil {
				return core.Unavailable("seed config", err)
			}
		}
		for k, v := range snap.Config {
			if err := q.UpsertConfig(ctx, k, v); err != nil {
				return core.Unavailable("write config", err)
			}
		}
		for _, a := range snap.Accounts {
			if err := q.InsertAccount(ctx, a); err != nil {
				return core.Unavailable("write account", err)
			}
		}
		for _, t := range snap.Transactions {
			if err := q.InsertTransaction(ctx, t); err != nil {
				return core.Unavailable("write transaction", err)
			}
		}
		for _, v := range snap.Valuations {
			if err := q.InsertValuation(ctx, v); err != nil {
				return core.Unavailable("write valuation", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.ReplaceAll(ctx, core.Snapshot{})
}
