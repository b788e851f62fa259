package tabular

import (
	"context"
	"sync"
	"time"

	"folio/internal/core"
	ports "folio/internal/sheets"
	"folio/internal/sheets/memory"
)

// Backend loads and saves the whole record set at once.
type Backend interface {
	Load(ctx context.Context) (core.Snapshot, error)
	Save(ctx context.Context, snap core.Snapshot) error
	// Location describes where the records live, for display.
	Location() string
	Exists(ctx context.Context) (bool, error)
}

var _ ports.RecordStore = (*Store)(nil)

// Store implements the record store over a Backend. Every operation reads
// the full state, applies the change in memory and writes the full state
// back. The mutex serialises operations inside one process only.
type Store struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

func NewStore(b Backend) *Store {
	return &Store{backend: b, now: time.Now}
}

// Init writes the default configuration when the backend holds nothing yet.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.backend.Exists(ctx)
	if err != nil {
		return core.Unavailable("check store", err)
	}
	if ok {
		return nil
	}
	snap, err := memory.New(memory.WithClock(s.now)).Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, snap); err != nil {
		return core.Unavailable("initialise store", err)
	}
	return nil
}

func (s *Store) Location() string { return s.backend.Location() }

func (s *Store) Exists(ctx context.Context) (bool, error) { return s.backend.Exists(ctx) }

func (s *Store) load(ctx context.Context) (*memory.Store, error) {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return nil, core.Unavailable("load records", err)
	}
	return memory.FromSnapshot(snap, memory.WithClock(s.now)), nil
}

func (s *Store) view(ctx context.Context, fn func(*memory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(m)
}

func (s *Store) mutate(ctx context.Context, fn func(*memory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, snap); err != nil {
		return core.Unavailable("save records", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) (out []core.Account, err error) {
	err = s.view(ctx, func(m *memory.Store) error {
		out, err = m.ListAccounts(ctx)
		return err
	})
	return out, err
}

func (s *Store) AddAccount(ctx context.Context, a core.Account) (out core.Account, err error) {
	err = s.mutate(ctx, func(m *memory.Store) error {
		out, err = m.AddAccount(ctx, a)
		return err
	})
	return out, err
}

func (s *Store) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (out core.Account, err error) {
	err = s.mutate(ctx, func(m *memory.Store) error {
		out, err = m.UpdateAccount(ctx, id, patch)
		return err
	})
	return out, err
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.mutate(ctx, func(m *memory.Store) error {
		return m.DeleteAccount(ctx, id)
	})
}

func (s *Store) ListTransactions(ctx context.Context, f core.Filter) (out []core.Transaction, err error) {
	err = s.view(ctx, func(m *memory.Store) error {
		out, err = m.ListTransactions(ctx, f)
		return err
	})
	return out, err
}

func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (out core.Transaction, err error) {
	err = s.mutate(ctx, func(m *memory.Store) error {
		out, err = m.AddTransaction(ctx, t)
		return err
	})
	return out, err
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.mutate(ctx, func(m *memory.Store) error {
		return m.DeleteTransaction(ctx, id)
	})
}

func (s *Store) ListValuations(ctx context.Context, f core.Filter) (out []core.Valuation, err error) {
	err = s.view(ctx, func(m *memory.Store) error {
		out, err = m.ListValuations(ctx, f)
		return err
	})
	return out, err
}

func (s *Store) AddValuation(ctx context.Context, v core.Valuation) (out core.Valuation, err error) {
	err = s.mutate(ctx, func(m *memory.Store) error {
		out, err = m.AddValuation(ctx, v)
		return err
	})
	return out, err
}

func (s *Store) UpdateValuation(ctx context.Context, id string, patch core.ValuationPatch) (out core.Valuation, err error) {
	err = s.mutate(ctx, func(m *memory.Store) error {
		out, err = m.UpdateValuation(ctx, id, patch)
		return err
	})
	return out, err
}

func (s *Store) Config(ctx context.Context) (out map[string]string, err error) {
	err = s.view(ctx, func(m *memory.Store) error {
		out, err = m.Config(ctx)
		return err
	})
	return out, err
}

func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	return s.mutate(ctx, func(m *memory.Store) error {
		return m.SetConfig(ctx, key, value)
	})
}

func (s *Store) Snapshot(ctx context.Context) (out core.Snapshot, err error) {
	err = s.view(ctx, func(m *memory.Store) error {
		out, err = m.Snapshot(ctx)
		return err
	})
	return out, err
}

func (s *Store) ReplaceAll(ctx context.Context, snap core.Snapshot) error {
	return s.mutate(ctx, func(m *memory.Store) error {
		return m.ReplaceAll(ctx, snap)
	})
}

func (s *Store) Reset(ctx context.Context) error {
	return s.mutate(ctx, func(m *memory.Store) error {
		return m.Reset(ctx)
	})
}
