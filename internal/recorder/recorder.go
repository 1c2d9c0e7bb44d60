// Package recorder appends, edits, and deletes ledger items. Every
// mutation follows the store's read-modify-write discipline: fetch the
// full ledger, change it in memory, write it back.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spendbook/internal/core"
	"spendbook/internal/events"
	"spendbook/internal/ledger"
)

// Recorder files purchases into the current day's bucket.
type Recorder struct {
	store *ledger.Store
	pub   *events.Publisher
	now   func() time.Time
}

// New builds a recorder. pub may be nil; events are then skipped.
func New(store *ledger.Store, pub *events.Publisher) *Recorder {
	return &Recorder{store: store, pub: pub, now: time.Now}
}

// WithClock overrides the clock. Tests use this to pin "today".
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Add constructs a timestamped record and appends it to today's bucket,
// creating the bucket on first use. The item name is also remembered as a
// quick-fill shortcut. Returns the stored item and the day it was filed
// under.
//
// An empty name is accepted here; rejecting it is the UI boundary's job.
func (r *Recorder) Add(ctx context.Context, name, price string, att core.Attachment) (core.Item, core.DateKey, error) {
	if _, err := core.ParsePrice(price); err != nil {
		return core.Item{}, core.DateKey{}, err
	}

	now := r.now()
	key := core.NewDateKey(now)
	item := core.Item{
		Name:      strings.TrimSpace(name),
		Price:     strings.TrimSpace(strings.ReplaceAll(price, ",", ".")),
		Time:      now.Format(core.ClockTimeLayout),
		Timestamp: now.UnixMilli(),
	}
	switch att.Kind {
	case core.AttachmentPhoto:
		data := att.Data
		item.Photo = &data
	case core.AttachmentVoice:
		data := att.Data
		item.Voice = &data
	}

	l, err := r.store.ReadLedger(ctx)
	if err != nil {
		return core.Item{}, core.DateKey{}, err
	}

	// Timestamp is the item's identity within its bucket; bump on the
	// rare same-millisecond collision.
	bucket := l[key]
	for hasTimestamp(bucket, item.Timestamp) {
		item.Timestamp++
	}
	l[key] = append(bucket, item)

	if err := r.store.WriteLedger(ctx, l); err != nil {
		return core.Item{}, core.DateKey{}, err
	}

	if err := r.rememberShortcut(ctx, item.Name); err != nil {
		// The purchase itself is saved; a lost suggestion is not worth
		// failing the operation.
		slog.WarnContext(ctx, "Failed to record shortcut", "item_name", item.Name, "error", err)
	}

	r.publish(ctx, events.KindItemAdded, key, item.Timestamp)

	slog.InfoContext(ctx, "Item recorded",
		"date_key", key.String(),
		"timestamp", item.Timestamp,
		"item_name", item.Name,
		"price", item.Price,
		"attachment", att.Kind.String())

	return item, key, nil
}

// Delete removes exactly the record with the given timestamp from the
// day's bucket, preserving the order of the rest. An emptied bucket keeps
// its key; buckets are never garbage-collected.
func (r *Recorder) Delete(ctx context.Context, key core.DateKey, timestamp int64) error {
	l, err := r.store.ReadLedger(ctx)
	if err != nil {
		return err
	}

	bucket, ok := l[key]
	if !ok {
		return fmt.Errorf("delete %s/%d: %w", key, timestamp, core.ErrItemNotFound)
	}

	idx := indexOfTimestamp(bucket, timestamp)
	if idx < 0 {
		return fmt.Errorf("delete %s/%d: %w", key, timestamp, core.ErrItemNotFound)
	}
	l[key] = append(bucket[:idx:idx], bucket[idx+1:]...)

	if err := r.store.WriteLedger(ctx, l); err != nil {
		return err
	}

	r.publish(ctx, events.KindItemDeleted, key, timestamp)
	slog.InfoContext(ctx, "Item deleted", "date_key", key.String(), "timestamp", timestamp)
	return nil
}

// Update edits an existing record's name and price in place. Attachments
// and the creation time are left untouched.
func (r *Recorder) Update(ctx context.Context, key core.DateKey, timestamp int64, name, price string) (core.Item, error) {
	if _, err := core.ParsePrice(price); err != nil {
		return core.Item{}, err
	}

	l, err := r.store.ReadLedger(ctx)
	if err != nil {
		return core.Item{}, err
	}

	bucket := l[key]
	idx := indexOfTimestamp(bucket, timestamp)
	if idx < 0 {
		return core.Item{}, fmt.Errorf("update %s/%d: %w", key, timestamp, core.ErrItemNotFound)
	}
	bucket[idx].Name = strings.TrimSpace(name)
	bucket[idx].Price = strings.TrimSpace(strings.ReplaceAll(price, ",", "."))

	if err := r.store.WriteLedger(ctx, l); err != nil {
		return core.Item{}, err
	}

	r.publish(ctx, events.KindItemUpdated, key, timestamp)
	slog.InfoContext(ctx, "Item updated", "date_key", key.String(), "timestamp", timestamp)
	return bucket[idx], nil
}

// Today returns the current day's key by the recorder's clock.
func (r *Recorder) Today() core.DateKey {
	return core.NewDateKey(r.now())
}

// rememberShortcut appends the name to the shortcut list unless it is
// already present. Insertion order is preserved.
func (r *Recorder) rememberShortcut(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	shortcuts, err := r.store.ReadShortcuts(ctx)
	if err != nil {
		return err
	}
	for _, s := range shortcuts {
		if s == name {
			return nil
		}
	}
	return r.store.WriteShortcuts(ctx, append(shortcuts, name))
}

func (r *Recorder) publish(ctx context.Context, kind string, key core.DateKey, timestamp int64) {
	if r.pub == nil {
		return
	}
	if err := r.pub.PublishLedgerEvent(ctx, kind, key.String(), timestamp); err != nil {
		// Events only feed optional local consumers; never fail the write.
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"kind", kind, "date_key", key.String(), "error", err)
	}
}

func hasTimestamp(items []core.Item, ts int64) bool {
	return indexOfTimestamp(items, ts) >= 0
}

func indexOfTimestamp(items []core.Item, ts int64) int {
	for i, item := range items {
		if item.Timestamp == ts {
			return i
		}
	}
	return -1
}
