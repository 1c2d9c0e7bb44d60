// Package worker writes periodic JSON snapshots of the persisted state.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spendbook/internal/events"
	"spendbook/internal/ledger"
)

// snapshotFile is the stable name consumers look for; each write replaces
// it atomically.
const snapshotFile = "snapshot.json"

// Snapshot is the on-disk backup format.
type Snapshot struct {
	Ledger    json.RawMessage `json:"ledger"`
	Balance   string          `json:"balance"`
	Shortcuts []string        `json:"shortcuts"`
	SavedAt   time.Time       `json:"saved_at"`
}

// BackupWorker snapshots the ledger, balance, and shortcuts to a
// directory. It runs from ledger events, debounced by a minimum
// interval, and from a periodic timer when no events arrive.
type BackupWorker struct {
	store    *ledger.Store
	dir      string
	interval time.Duration

	// The timer loop and the event handler run in separate goroutines;
	// mu guards the shared debounce state.
	mu        sync.Mutex
	lastWrite time.Time
}

func NewBackupWorker(store *ledger.Store, dir string, interval time.Duration) *BackupWorker {
	return &BackupWorker{
		store:    store,
		dir:      dir,
		interval: interval,
	}
}

// HandleEvent processes one ledger event. Writes are debounced: events
// arriving within the interval of the last snapshot are acknowledged
// without writing, since the next timer tick covers them.
func (w *BackupWorker) HandleEvent(ctx context.Context, event *events.LedgerEvent) error {
	slog.DebugContext(ctx, "Processing ledger event",
		"kind", event.Kind,
		"date_key", event.DateKey)

	if w.recentlyWrote() {
		return nil
	}
	return w.WriteSnapshot(ctx)
}

// Run writes snapshots on a timer until ctx is done. It complements the
// event-driven path so backups happen even when the feed is quiet.
func (w *BackupWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Backup worker started",
		"dir", w.dir,
		"interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Backup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.WriteSnapshot(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic snapshot failed", "error", err)
			}
		}
	}
}

// WriteSnapshot reads the current state and replaces the snapshot file
// atomically via a temp file and rename.
func (w *BackupWorker) WriteSnapshot(ctx context.Context) error {
	l, err := w.store.ReadLedger(ctx)
	if err != nil {
		return fmt.Errorf("read ledger for snapshot: %w", err)
	}
	balance, err := w.store.ReadBalance(ctx)
	if err != nil {
		return fmt.Errorf("read balance for snapshot: %w", err)
	}
	shortcuts, err := w.store.ReadShortcuts(ctx)
	if err != nil {
		return fmt.Errorf("read shortcuts for snapshot: %w", err)
	}

	rawLedger, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	snap := Snapshot{
		Ledger:    rawLedger,
		Balance:   balance.String(),
		Shortcuts: shortcuts,
		SavedAt:   time.Now().UTC(),
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, snapshotFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	target := filepath.Join(w.dir, snapshotFile)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	w.markWritten()
	slog.InfoContext(ctx, "Snapshot written",
		"path", target,
		"bytes", len(body))
	return nil
}

func (w *BackupWorker) recentlyWrote() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Since(w.lastWrite) < w.interval
}

func (w *BackupWorker) markWritten() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastWrite = time.Now()
}
