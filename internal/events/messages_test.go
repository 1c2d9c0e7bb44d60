package events

import (
	"testing"
	"time"
)

func TestNewLedgerEvent(t *testing.T) {
	e := NewLedgerEvent(KindItemAdded, "5-3-2024", 1709629500000)

	if e.Kind != KindItemAdded {
		t.Errorf("Kind = %v, want %v", e.Kind, KindItemAdded)
	}
	if e.DateKey != "5-3-2024" {
		t.Errorf("DateKey = %v, want 5-3-2024", e.DateKey)
	}
	if e.Timestamp != 1709629500000 {
		t.Errorf("Timestamp = %v, want 1709629500000", e.Timestamp)
	}
	if e.At.IsZero() {
		t.Error("At should not be zero")
	}
	if time.Since(e.At) > time.Second {
		t.Error("At should be recent")
	}
}

func TestLedgerEventJSON(t *testing.T) {
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	e := &LedgerEvent{Kind: KindItemDeleted, DateKey: "5-3-2024", Timestamp: 42, At: at}

	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}

	if parsed.Kind != e.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, e.Kind)
	}
	if parsed.DateKey != e.DateKey {
		t.Errorf("Parsed DateKey = %v, want %v", parsed.DateKey, e.DateKey)
	}
	if parsed.Timestamp != e.Timestamp {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, e.Timestamp)
	}
	if !parsed.At.Equal(e.At) {
		t.Errorf("Parsed At = %v, want %v", parsed.At, e.At)
	}
}

func TestLedgerEventInvalidJSON(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte(`{"timestamp": "not_a_number"}`)); err == nil {
		t.Error("LedgerEventFromJSON() should fail with invalid JSON")
	}
}

func TestBalanceEventOmitsDateKey(t *testing.T) {
	e := NewLedgerEvent(KindBalanceSet, "", 0)
	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	for _, field := range []string{"date_key", "timestamp"} {
		if containsField(body, field) {
			t.Errorf("balance event should omit %s, got %s", field, body)
		}
	}
}

func containsField(body []byte, field string) bool {
	quoted := `"` + field + `"`
	s := string(body)
	for i := 0; i+len(quoted) <= len(s); i++ {
		if s[i:i+len(quoted)] == quoted {
			return true
		}
	}
	return false
}
