// Package memory is an in-process record store. It also holds the mutation
// rules reused by the spreadsheet-backed stores, which load a snapshot into
// a Store, mutate it and write it back.
package memory

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/core"
	ports "folio/internal/sheets"
)

var _ ports.RecordStore = (*Store)(nil)

type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	accounts     []core.Account
	transactions []core.Transaction
	valuations   []core.Valuation
	config       map[string]string
}

type Option func(*Store)

// WithClock sets the time source used for lastUpdate.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store holding the default configuration.
func New(opts ...Option) *Store {
	return FromSnapshot(core.Snapshot{}, opts...)
}

// FromSnapshot builds a store from existing records. Missing configuration
// keys are filled with their defaults.
func FromSnapshot(snap core.Snapshot, opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.load(snap)
	return s
}

func (s *Store) load(snap core.Snapshot) {
	s.accounts = append([]core.Account(nil), snap.Accounts...)
	s.transactions = append([]core.Transaction(nil), snap.Transactions...)
	s.valuations = append([]core.Valuation(nil), snap.Valuations...)
	s.config = core.DefaultConfigMap(s.now())
	maps.Copy(s.config, snap.Config)
}

// touch refreshes lastUpdate; callers hold mu.
func (s *Store) touch() {
	s.config[core.ConfigLastUpdate] = s.now().UTC().Format(time.RFC3339)
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account{}, s.accounts...), nil
}

func (s *Store) AddAccount(_ context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	s.touch()
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, id string, patch core.AccountPatch) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.accounts {
		if a.ID != id {
			continue
		}
		updated, err := patch.Apply(a)
		if err != nil {
			return core.Account{}, err
		}
		s.accounts[i] = updated
		s.touch()
		return updated, nil
	}
	return core.Account{}, core.NotFoundError("account", id)
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, a := range s.accounts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.NotFoundError("account", id)
	}
	s.accounts = append(s.accounts[:idx], s.accounts[idx+1:]...)

	txs := s.transactions[:0]
	for _, t := range s.transactions {
		if t.AccountID != id {
			txs = append(txs, t)
		}
	}
	s.transactions = txs

	vals := s.valuations[:0]
	for _, v := range s.valuations {
		if v.AccountID != id {
			vals = append(vals, v)
		}
	}
	s.valuations = vals
	s.touch()
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f core.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range s.transactions {
		if f.Matches(t.AccountID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, t)
	s.touch()
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			s.touch()
			return nil
		}
	}
	return core.NotFoundError("transaction", id)
}

func (s *Store) ListValuations(_ context.Context, f core.Filter) ([]core.Valuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Valuation{}
	for _, v := range s.valuations {
		if f.Matches(v.AccountID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) AddValuation(_ context.Context, v core.Valuation) (core.Valuation, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valuations = append(s.valuations, v)
	s.touch()
	return v, nil
}

func (s *Store) UpdateValuation(_ context.Context, id string, patch core.ValuationPatch) (core.Valuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.valuations {
		if v.ID == id {
			s.valuations[i] = patch.Apply(v)
			s.touch()
			return s.valuations[i], nil
		}
	}
	return core.Valuation{}, core.NotFoundError("valuation", id)
}

func (s *Store) Config(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.config), nil
}

func (s *Store) SetConfig(_ context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return core.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	if key != core.ConfigLastUpdate {
		s.touch()
	}
	return nil
}

func (s *Store) Snapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Snapshot{
		Accounts:     append([]core.Account{}, s.accounts...),
		Transactions: append([]core.Transaction{}, s.transactions...),
		Valuations:   append([]core.Valuation{}, s.valuations...),
		Config:       maps.Clone(s.config),
	}, nil
}

func (s *Store) ReplaceAll(_ context.Context, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(snap)
	return nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(core.Snapshot{})
	return nil
}
