// Package ledger is the typed storage adapter over the key-value store.
// It is the only place that serializes the well-known keys; everything
// else works with the typed values it returns.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"spendbook/internal/core"
	"spendbook/internal/kv"
)

// Well-known keys. The names match the original browser-storage layout so
// an exported snapshot stays recognizable.
const (
	KeyLedger       = "data"
	KeyBalance      = "balance"
	KeyShortcuts    = "shortcuts"
	KeyTheme        = "theme"
	KeyDisplayName  = "Identify"
	KeyShoppingList = "shoppingList"
)

// Store reads and writes the persisted entities. Reads degrade to empty
// defaults when stored content is malformed; writes propagate errors
// because a failed write means data loss.
type Store struct {
	kv kv.Store
}

func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// ReadLedger returns the full ledger. A missing key or unparsable content
// yields an empty ledger, never an error.
func (s *Store) ReadLedger(ctx context.Context) (core.Ledger, error) {
	raw, ok, err := s.kv.Get(ctx, KeyLedger)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if !ok || raw == "" {
		return core.Ledger{}, nil
	}
	var l core.Ledger
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		slog.WarnContext(ctx, "Malformed ledger content, starting empty",
			"key", KeyLedger, "error", err)
		return core.Ledger{}, nil
	}
	if l == nil {
		l = core.Ledger{}
	}
	return l, nil
}

// WriteLedger persists the full ledger, overwriting prior content.
func (s *Store) WriteLedger(ctx context.Context, l core.Ledger) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := s.kv.Set(ctx, KeyLedger, string(raw)); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// ReadBalance returns the declared balance. The first read persists a
// zero so later readers find the key initialized.
func (s *Store) ReadBalance(ctx context.Context) (decimal.Decimal, error) {
	raw, ok, err := s.kv.Get(ctx, KeyBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	if !ok {
		if err := s.kv.Set(ctx, KeyBalance, "0"); err != nil {
			return decimal.Zero, fmt.Errorf("initialize balance: %w", err)
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		slog.WarnContext(ctx, "Malformed balance content, treating as zero",
			"key", KeyBalance, "error", err)
		return decimal.Zero, nil
	}
	return d, nil
}

func (s *Store) WriteBalance(ctx context.Context, v decimal.Decimal) error {
	if err := s.kv.Set(ctx, KeyBalance, v.String()); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

// ReadShortcuts returns previously used item names in insertion order.
func (s *Store) ReadShortcuts(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.readJSON(ctx, KeyShortcuts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) WriteShortcuts(ctx context.Context, names []string) error {
	return s.writeJSON(ctx, KeyShortcuts, names)
}

// ReadTheme returns the persisted theme, defaulting to light.
func (s *Store) ReadTheme(ctx context.Context) (core.Theme, error) {
	raw, ok, err := s.kv.Get(ctx, KeyTheme)
	if err != nil {
		return core.ThemeLight, fmt.Errorf("read theme: %w", err)
	}
	t := core.Theme(raw)
	if !ok || !t.Valid() {
		return core.ThemeLight, nil
	}
	return t, nil
}

func (s *Store) WriteTheme(ctx context.Context, t core.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("invalid theme %q", t)
	}
	if err := s.kv.Set(ctx, KeyTheme, string(t)); err != nil {
		return fmt.Errorf("write theme: %w", err)
	}
	return nil
}

// ReadDisplayName returns the onboarding display name, empty if unset.
func (s *Store) ReadDisplayName(ctx context.Context) (string, error) {
	raw, _, err := s.kv.Get(ctx, KeyDisplayName)
	if err != nil {
		return "", fmt.Errorf("read display name: %w", err)
	}
	return raw, nil
}

func (s *Store) WriteDisplayName(ctx context.Context, name string) error {
	if err := s.kv.Set(ctx, KeyDisplayName, name); err != nil {
		return fmt.Errorf("write display name: %w", err)
	}
	return nil
}

func (s *Store) ReadShoppingList(ctx context.Context) ([]core.ShoppingItem, error) {
	var out []core.ShoppingItem
	if err := s.readJSON(ctx, KeyShoppingList, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) WriteShoppingList(ctx context.Context, items []core.ShoppingItem) error {
	return s.writeJSON(ctx, KeyShoppingList, items)
}

// readJSON decodes a JSON-valued key into v. Absent keys and malformed
// content leave v at its zero value; malformed content is logged.
func (s *Store) readJSON(ctx context.Context, key string, v any) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		slog.WarnContext(ctx, "Malformed stored content, using default",
			"key", key, "error", err)
	}
	return nil
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
