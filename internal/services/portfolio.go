// Package services holds the portfolio state container used by the HTTP
// server and the CLI.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"folio/internal/amqp"
	"folio/internal/cache"
	"folio/internal/core"
	"folio/internal/dashboard"
	flog "folio/internal/log"
	ports "folio/internal/sheets"
)

const snapshotKey = "records"

// DefaultCacheTTL bounds how long records written by another process may
// stay invisible.
const DefaultCacheTTL = 30 * time.Second

// EventPublisher announces record changes.
type EventPublisher interface {
	Publish(ctx context.Context, event amqp.ChangeEvent) error
}

// Portfolio applies creation defaults and validation, delegates storage to a
// RecordStore and computes the dashboard from the stored records.
type Portfolio struct {
	store     ports.RecordStore
	publisher EventPublisher
	snapshots *cache.LRUCache[core.Snapshot]
	cacheTTL  time.Duration

	// generation counts invalidations; a load only fills the cache when no
	// mutation happened while it ran.
	genMu      sync.Mutex
	generation uint64

	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

type Option func(*Portfolio)

// WithPublisher publishes a change event after each successful mutation.
func WithPublisher(p EventPublisher) Option {
	return func(s *Portfolio) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Portfolio) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Portfolio) { s.newID = newID }
}

// WithCacheTTL sets how long a fetched snapshot is reused; zero disables
// caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Portfolio) { s.cacheTTL = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Portfolio) { s.logger = l }
}

func NewPortfolio(store ports.RecordStore, opts ...Option) *Portfolio {
	p := &Portfolio{
		store:    store,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(flog.FieldComponent, flog.ComponentPortfolio)
	if p.cacheTTL > 0 {
		p.snapshots = cache.NewLRUCache[core.Snapshot](1, p.cacheTTL)
	}
	return p
}

// Cache exposes the snapshot cache for periodic cleanup, or nil when caching
// is disabled.
func (p *Portfolio) Cache() cache.Cleaner {
	if p.snapshots == nil {
		return nil
	}
	return p.snapshots
}

// Refresh drops the cached snapshot so the next read hits the store.
func (p *Portfolio) Refresh() {
	if p.snapshots == nil {
		return
	}
	p.genMu.Lock()
	defer p.genMu.Unlock()
	p.generation++
	p.snapshots.Purge()
}

func (p *Portfolio) currentGeneration() uint64 {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.generation
}

// fill caches snap unless the records changed since generation gen.
func (p *Portfolio) fill(gen uint64, snap core.Snapshot) {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	if p.generation == gen {
		p.snapshots.Set(snapshotKey, snap)
	}
}

// records returns the current snapshot, loading the collections concurrently
// on a cache miss. The result is shared and must not be modified.
func (p *Portfolio) records(ctx context.Context) (core.Snapshot, error) {
	if p.snapshots != nil {
		if snap, ok := p.snapshots.Get(snapshotKey); ok {
			return snap, nil
		}
	}

	gen := p.currentGeneration()
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Accounts, err = p.store.ListAccounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Transactions, err = p.store.ListTransactions(gctx, core.Filter{})
		return err
	})
	g.Go(func() (err error) {
		snap.Valuations, err = p.store.ListValuations(gctx, core.Filter{})
		return err
	})
	g.Go(func() (err error) {
		snap.Config, err = p.store.Config(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load records: %w", err)
	}

	if p.snapshots != nil {
		p.fill(gen, snap)
	}
	return snap, nil
}

func (p *Portfolio) Accounts(ctx context.Context) ([]core.Account, error) {
	snap, err := p.records(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.Accounts), nil
}

// Account returns a single account by id.
func (p *Portfolio) Account(ctx context.Context, id string) (core.Account, error) {
	snap, err := p.records(ctx)
	if err != nil {
		return core.Account{}, err
	}
	i := slices.IndexFunc(snap.Accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return core.Account{}, core.NotFoundError("account", id)
	}
	return snap.Accounts[i], nil
}

func (p *Portfolio) Transactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	snap, err := p.records(ctx)
	if err != nil {
		return nil, err
	}
	out := []core.Transaction{}
	for _, t := range snap.Transactions {
		if f.Matches(t.AccountID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *Portfolio) Valuations(ctx context.Context, f core.Filter) ([]core.Valuation, error) {
	snap, err := p.records(ctx)
	if err != nil {
		return nil, err
	}
	out := []core.Valuation{}
	for _, v := range snap.Valuations {
		if f.Matches(v.AccountID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (p *Portfolio) Config(ctx context.Context) (map[string]string, error) {
	snap, err := p.records(ctx)
	if err != nil {
		return nil, err
	}
	return maps.Clone(snap.Config), nil
}

// Summary computes the dashboard from the current records, with month
// labels in the configured locale.
func (p *Portfolio) Summary(ctx context.Context) (dashboard.Summary, error) {
	snap, err := p.records(ctx)
	if err != nil {
		return dashboard.Summary{}, err
	}
	locale := snap.Config[core.ConfigLocale]
	if locale == "" {
		locale = dashboard.DefaultLocale
	}
	return dashboard.NewEngine(locale).Compute(snap.Accounts, snap.Transactions, snap.Valuations, p.now()), nil
}

// Currency returns the configured display currency.
func (p *Portfolio) Currency(ctx context.Context) (string, error) {
	cfg, err := p.Config(ctx)
	if err != nil {
		return "", err
	}
	if c := strings.TrimSpace(cfg[core.ConfigCurrency]); c != "" {
		return c, nil
	}
	return core.DefaultCurrency, nil
}

func (p *Portfolio) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a, err := core.PrepareAccount(a, p.now(), p.newID)
	if err != nil {
		return core.Account{}, err
	}
	created, err := p.store.AddAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("add account: %w", err)
	}
	p.changed(ctx, amqp.KindAccount, amqp.OpCreate, created.ID)
	return created, nil
}

func (p *Portfolio) UpdateAccount(ctx context.Context, id string, patch core.AccountPatch) (core.Account, error) {
	updated, err := p.store.UpdateAccount(ctx, id, patch)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	p.changed(ctx, amqp.KindAccount, amqp.OpUpdate, id)
	return updated, nil
}

// DeleteAccount removes the account with its transactions and valuations.
func (p *Portfolio) DeleteAccount(ctx context.Context, id string) error {
	if err := p.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	p.changed(ctx, amqp.KindAccount, amqp.OpDelete, id)
	return nil
}

func (p *Portfolio) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t, err := core.PrepareTransaction(t, p.now(), p.newID)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := p.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	p.changed(ctx, amqp.KindTransaction, amqp.OpCreate, created.ID)
	return created, nil
}

func (p *Portfolio) DeleteTransaction(ctx context.Context, id string) error {
	if err := p.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	p.changed(ctx, amqp.KindTransaction, amqp.OpDelete, id)
	return nil
}

func (p *Portfolio) AddValuation(ctx context.Context, v core.Valuation) (core.Valuation, error) {
	v, err := core.PrepareValuation(v, p.now(), p.newID)
	if err != nil {
		return core.Valuation{}, err
	}
	created, err := p.store.AddValuation(ctx, v)
	if err != nil {
		return core.Valuation{}, fmt.Errorf("add valuation: %w", err)
	}
	p.changed(ctx, amqp.KindValuation, amqp.OpCreate, created.ID)
	return created, nil
}

func (p *Portfolio) UpdateValuation(ctx context.Context, id string, patch core.ValuationPatch) (core.Valuation, error) {
	updated, err := p.store.UpdateValuation(ctx, id, patch)
	if err != nil {
		return core.Valuation{}, fmt.Errorf("update valuation: %w", err)
	}
	p.changed(ctx, amqp.KindValuation, amqp.OpUpdate, id)
	return updated, nil
}

// SetConfig upserts a configuration entry and returns it.
func (p *Portfolio) SetConfig(ctx context.Context, key, value string) (core.ConfigEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return core.ConfigEntry{}, core.ErrEmptyKey
	}
	if err := p.store.SetConfig(ctx, key, value); err != nil {
		return core.ConfigEntry{}, fmt.Errorf("set config: %w", err)
	}
	p.changed(ctx, amqp.KindConfig, amqp.OpUpdate, key)
	return core.ConfigEntry{Key: key, Value: value}, nil
}

// Reset drops every record and restores the default configuration.
func (p *Portfolio) Reset(ctx context.Context) error {
	if err := p.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	p.changed(ctx, amqp.KindAll, amqp.OpReset, "")
	return nil
}

// changed invalidates the snapshot and publishes the change. Publish
// failures are logged only; the write already succeeded.
func (p *Portfolio) changed(ctx context.Context, kind, op, id string) {
	p.Refresh()
	p.logger.DebugContext(ctx, "Records changed",
		flog.FieldOperation, op, flog.FieldRecordKind, kind, flog.FieldRecordID, id)
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, amqp.NewChangeEvent(kind, op, id)); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish change event",
			flog.FieldError, err, flog.FieldRecordKind, kind, flog.FieldOperation, op)
	}
}
