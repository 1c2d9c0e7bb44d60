package events

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger feed.
const (
	KindItemAdded   = "item_added"
	KindItemDeleted = "item_deleted"
	KindItemUpdated = "item_updated"
	KindBalanceSet  = "balance_set"
)

// LedgerEvent signals that the store changed. It carries identifiers, not
// payloads; consumers re-read the store, which stays the source of truth.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	DateKey   string    `json:"date_key,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	At        time.Time `json:"at"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(kind, dateKey string, timestamp int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		DateKey:   dateKey,
		Timestamp: timestamp,
		At:        time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
