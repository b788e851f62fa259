package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"folio/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const listAccounts = `SELECT id, type, name, platform, opened_date, notes FROM accounts ORDER BY seq`

const getAccount = `SELECT id, type, name, platform, opened_date, notes FROM accounts WHERE id = ?`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (core.Account, error) {
	var (
		a      core.Account
		typ    string
		opened string
	)
	if err := row.Scan(&a.ID, &typ, &a.Name, &a.Platform, &opened, &a.Notes); err != nil {
		return a, err
	}
	a.Type = core.AccountType(typ)
	a.OpenedDate, _ = core.ParseDate(opened)
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const insertAccount = `INSERT INTO accounts (id, type, name, platform, opened_date, notes) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, insertAccount, a.ID, string(a.Type), a.Name, a.Platform, a.OpenedDate.String(), a.Notes)
	return err
}

const updateAccount = `UPDATE accounts SET type = ?, name = ?, platform = ?, opened_date = ?, notes = ? WHERE id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccount, string(a.Type), a.Name, a.Platform, a.OpenedDate.String(), a.Notes, a.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccountTransactions = `DELETE FROM transactions WHERE account_id = ?`

func (q *Queries) DeleteAccountTransactions(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, deleteAccountTransactions, accountID)
	return err
}

const deleteAccountValuations = `DELETE FROM valuations WHERE account_id = ?`

func (q *Queries) DeleteAccountValuations(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, deleteAccountValuations, accountID)
	return err
}

const listTransactions = `SELECT id, account_id, date, kind, amount, recurrence, description FROM transactions
WHERE (? = '' OR account_id = ?) ORDER BY seq`

func (q *Queries) ListTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, accountID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Transaction{}
	for rows.Next() {
		var (
			t                        core.Transaction
			date, kind, amount, recu string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &date, &kind, &amount, &recu, &t.Description); err != nil {
			return nil, err
		}
		t.Date, _ = core.ParseDate(date)
		t.Kind = core.TransactionKind(kind)
		t.Amount = core.CoerceAmount(amount)
		t.Recurrence = core.Recurrence(recu)
		items = append(items, t)
	}
	return items, rows.Err()
}

const insertTransaction = `INSERT INTO transactions (id, account_id, date, kind, amount, recurrence, description) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction, t.ID, t.AccountID, t.Date.String(), string(t.Kind), t.Amount.String(), string(t.Recurrence), t.Description)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listValuations = `SELECT id, account_id, date, value, notes FROM valuations
WHERE (? = '' OR account_id = ?) ORDER BY seq`

func scanValuation(row scanner) (core.Valuation, error) {
	var (
		v           core.Valuation
		date, value string
	)
	if err := row.Scan(&v.ID, &v.AccountID, &date, &value, &v.Notes); err != nil {
		return v, err
	}
	v.Date, _ = core.ParseDate(date)
	v.Value = core.CoerceAmount(value)
	return v, nil
}

func (q *Queries) ListValuations(ctx context.Context, accountID string) ([]core.Valuation, error) {
	rows, err := q.db.QueryContext(ctx, listValuations, accountID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Valuation{}
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const getValuation = `SELECT id, account_id, date, value, notes FROM valuations WHERE id = ?`

func (q *Queries) GetValuation(ctx context.Context, id string) (core.Valuation, error) {
	return scanValuation(q.db.QueryRowContext(ctx, getValuation, id))
}

const insertValuation = `INSERT INTO valuations (id, account_id, date, value, notes) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertValuation(ctx context.Context, v core.Valuation) error {
	_, err := q.db.ExecContext(ctx, insertValuation, v.ID, v.AccountID, v.Date.String(), v.Value.String(), v.Notes)
	return err
}

const updateValuation = `UPDATE valuations SET value = ?, notes = ? WHERE id = ?`

func (q *Queries) UpdateValuation(ctx context.Context, id string, value decimal.Decimal, notes string) error {
	_, err := q.db.ExecContext(ctx, updateValuation, value.String(), notes, id)
	return err
}

const listConfig = `SELECT key, value FROM config`

func (q *Queries) ListConfig(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, listConfig)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cfg := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		cfg[k] = v
	}
	return cfg, rows.Err()
}

const upsertConfig = `INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertConfig(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertConfig, key, value)
	return err
}

const insertConfigIfMissing = `INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)`

func (q *Queries) InsertConfigIfMissing(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, insertConfigIfMissing, key, value)
	return err
}

// DeleteAll empties every table.
func (q *Queries) DeleteAll(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM transactions`,
		`DELETE FROM valuations`,
		`DELETE FROM accounts`,
		`DELETE FROM config`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
