// Package worker copies the primary record store into a spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"folio/internal/amqp"
	flog "folio/internal/log"
	ports "folio/internal/sheets"
)

// EventSource delivers change events until ctx is done.
type EventSource interface {
	Consume(ctx context.Context, handler func(context.Context, amqp.ChangeEvent) error) error
}

// MirrorWorker replaces the mirror's content with a snapshot of the source on
// every change event and on a fixed interval.
type MirrorWorker struct {
	source   ports.Mirror
	target   ports.Mirror
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.Mutex
	lastStart time.Time
	syncs     int
}

func NewMirrorWorker(source, target ports.Mirror, interval time.Duration) *MirrorWorker {
	return &MirrorWorker{
		source:   source,
		target:   target,
		interval: interval,
		now:      time.Now,
		logger:   slog.Default().With(flog.FieldComponent, flog.ComponentWorker),
	}
}

// Sync copies the whole source into the target. Concurrent calls are
// serialised.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked(ctx)
}

func (w *MirrorWorker) syncLocked(ctx context.Context) error {
	start := w.now()
	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if err := w.target.ReplaceAll(ctx, snap); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	w.lastStart = start
	w.syncs++

	w.logger.InfoContext(ctx, "Mirror synced",
		flog.FieldOperation, flog.OpMirror,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		"valuations", len(snap.Valuations),
		"elapsed", w.now().Sub(start))
	return nil
}

// HandleChangeEvent syncs the mirror unless a sync that started after the
// event already covered it. A returned error makes the event be requeued.
func (w *MirrorWorker) HandleChangeEvent(ctx context.Context, event amqp.ChangeEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastStart.IsZero() && event.Timestamp.Before(w.lastStart) {
		w.logger.DebugContext(ctx, "Change already mirrored",
			flog.FieldRecordKind, event.Kind, flog.FieldOperation, event.Op)
		return nil
	}
	w.logger.InfoContext(ctx, "Processing change event",
		flog.FieldRecordKind, event.Kind,
		flog.FieldOperation, event.Op,
		flog.FieldRecordID, event.ID)
	return w.syncLocked(ctx)
}

// Syncs returns how many syncs completed.
func (w *MirrorWorker) Syncs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncs
}

// Run performs a startup sync, then consumes events from source (when not
// nil) and syncs every interval until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, events EventSource) error {
	w.logger.InfoContext(ctx, "Performing startup sync")
	if err := w.Sync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup sync failed", flog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if events != nil {
		g.Go(func() error {
			return events.Consume(gctx, w.HandleChangeEvent)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.Sync(gctx); err != nil {
					w.logger.ErrorContext(gctx, "Periodic sync failed", flog.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if ctx.Err() != nil {
		// shutdown requested
		return nil
	}
	return err
}
