package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"spendbook/internal/balance"
	"spendbook/internal/kv"
	"spendbook/internal/ledger"
	"spendbook/internal/recorder"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newServerOver(t, kv.NewMemoryStore())
}

func newServerOver(t *testing.T, backing kv.Store) *Server {
	t.Helper()
	store := ledger.New(backing)
	rec := recorder.New(store, nil)
	tracker := balance.NewTracker(store, nil)
	srv := NewServer(":0", store, rec, tracker, time.Minute)
	t.Cleanup(func() {
		srv.cacheMgr.Stop()
		srv.rateLimiter.stop()
	})
	return srv
}

// flakyStore forwards to a real store until failWrites is flipped; then
// every Set fails while reads keep working.
type flakyStore struct {
	kv.Store
	failWrites bool
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	if s.failWrites {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value)
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := get(srv, "/")
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Spendbook") {
		t.Fatalf("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(srv, path)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestAddItemValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Wrong method
	rr := get(srv, "/items")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Empty name rejected at the UI boundary
	rr = postForm(srv, "/items", url.Values{"name": {""}, "price": {"2.50"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for empty name, got %d", rr.Code)
	}

	// Invalid price
	rr = postForm(srv, "/items", url.Values{"name": {"coffee"}, "price": {"abc"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Negative price
	rr = postForm(srv, "/items", url.Values{"name": {"coffee"}, "price": {"-1"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Unknown attachment kind
	rr = postForm(srv, "/items", url.Values{
		"name": {"coffee"}, "price": {"2.50"}, "attachment_kind": {"video"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for unknown attachment kind, got %d", rr.Code)
	}

	// Success
	rr = postForm(srv, "/items", url.Values{"name": {"coffee"}, "price": {"2,50"}})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") {
		t.Fatalf("expected success in body: %s", rr.Body.String())
	}
	if rr.Header().Get("HX-Trigger") == "" {
		t.Fatal("expected HX-Trigger header on mutation")
	}

	// The item shows up in the today partial with the normalized price.
	rr = get(srv, "/ui/today")
	if rr.Code != 200 {
		t.Fatalf("today status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "coffee") || !strings.Contains(rr.Body.String(), "2.50") {
		t.Fatalf("today partial missing item: %s", rr.Body.String())
	}
}

func TestDeleteItemNotFound(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/items/delete", url.Values{
		"date": {"5-3-2024"}, "timestamp": {"123"},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = postForm(srv, "/items/delete", url.Values{
		"date": {"not-a-key"}, "timestamp": {"123"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for bad date key, got %d", rr.Code)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/balance", url.Values{"balance": {"abc"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for non-numeric balance, got %d", rr.Code)
	}

	rr = postForm(srv, "/balance", url.Values{"balance": {"-5"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for negative balance, got %d", rr.Code)
	}

	rr = postForm(srv, "/balance", url.Values{"balance": {"100"}})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = get(srv, "/ui/today")
	if !strings.Contains(rr.Body.String(), "100.00") {
		t.Fatalf("today partial missing balance: %s", rr.Body.String())
	}
}

func TestThemeAndIdentify(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/theme", url.Values{"theme": {"neon"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for unknown theme, got %d", rr.Code)
	}

	rr = postForm(srv, "/theme", url.Values{"theme": {"dark"}})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = postForm(srv, "/identify", url.Values{"name": {"Ada"}})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = get(srv, "/")
	body := rr.Body.String()
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Fatalf("index missing persisted theme: %s", body)
	}
	if !strings.Contains(body, "Ada") {
		t.Fatalf("index missing display name")
	}
}

func TestDashboardAndChart(t *testing.T) {
	srv := newTestServer(t)

	// Empty ledger: dashboard renders a placeholder, chart has nothing.
	rr := get(srv, "/ui/dashboard?window=week")
	if rr.Code != 200 {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	rr = get(srv, "/chart.png")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty chart, got %d", rr.Code)
	}

	if rr := postForm(srv, "/items", url.Values{"name": {"bread"}, "price": {"3"}}); rr.Code != 200 {
		t.Fatalf("add item status=%d", rr.Code)
	}

	rr = get(srv, "/ui/dashboard?window=all")
	if !strings.Contains(rr.Body.String(), "3.00") {
		t.Fatalf("dashboard missing total: %s", rr.Body.String())
	}

	rr = get(srv, "/chart.png?window=all")
	if rr.Code != 200 {
		t.Fatalf("chart status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("chart content type = %q", ct)
	}

	// Second fetch comes from the chart cache and must be identical.
	again := get(srv, "/chart.png?window=all")
	if again.Body.String() != rr.Body.String() {
		t.Fatal("cached chart differs from rendered chart")
	}
}

func TestStoreWriteFailuresAreServerErrors(t *testing.T) {
	backing := &flakyStore{Store: kv.NewMemoryStore()}
	srv := newServerOver(t, backing)

	// Seed one item while writes still succeed.
	if rr := postForm(srv, "/items", url.Values{"name": {"coffee"}, "price": {"2.50"}}); rr.Code != 200 {
		t.Fatalf("seed item status=%d", rr.Code)
	}
	l, err := srv.store.ReadLedger(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var (
		dateKey   string
		timestamp int64
	)
	for key, items := range l {
		raw, _ := key.MarshalText()
		dateKey = string(raw)
		timestamp = items[0].Timestamp
	}

	backing.failWrites = true

	// A broken store is a server error, not a validation failure.
	if rr := postForm(srv, "/balance", url.Values{"balance": {"100"}}); rr.Code != http.StatusInternalServerError {
		t.Fatalf("balance with failing store: expected 500, got %d", rr.Code)
	}
	if rr := postForm(srv, "/items", url.Values{"name": {"tea"}, "price": {"1.80"}}); rr.Code != http.StatusInternalServerError {
		t.Fatalf("add with failing store: expected 500, got %d", rr.Code)
	}
	if rr := postForm(srv, "/items/update", url.Values{
		"date": {dateKey}, "timestamp": {strconv.FormatInt(timestamp, 10)},
		"name": {"espresso"}, "price": {"3"},
	}); rr.Code != http.StatusInternalServerError {
		t.Fatalf("update with failing store: expected 500, got %d", rr.Code)
	}

	// Validation and not-found keep their statuses even while the store
	// is down: those checks happen before any write.
	if rr := postForm(srv, "/balance", url.Values{"balance": {"-5"}}); rr.Code != 422 {
		t.Fatalf("negative balance: expected 422, got %d", rr.Code)
	}
	if rr := postForm(srv, "/items/update", url.Values{
		"date": {dateKey}, "timestamp": {strconv.FormatInt(timestamp, 10)},
		"name": {"espresso"}, "price": {"-3"},
	}); rr.Code != 422 {
		t.Fatalf("negative price: expected 422, got %d", rr.Code)
	}
	if rr := postForm(srv, "/items/update", url.Values{
		"date": {dateKey}, "timestamp": {"123"},
		"name": {"espresso"}, "price": {"3"},
	}); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown timestamp: expected 404, got %d", rr.Code)
	}
}

func TestRateLimiterBound(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("request over the limit should be denied")
	}
	// Other clients are tracked independently.
	if !rl.allow("10.0.0.2") {
		t.Fatal("fresh client should be allowed")
	}
}

func TestShoppingListFlow(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/shopping-list/add", url.Values{"name": {""}, "price": {"1"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for empty name, got %d", rr.Code)
	}

	rr = postForm(srv, "/shopping-list/add", url.Values{"name": {"milk"}, "price": {"1,20"}})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = get(srv, "/ui/shopping-list")
	if !strings.Contains(rr.Body.String(), "milk") {
		t.Fatalf("shopping list missing item: %s", rr.Body.String())
	}

	rr = postForm(srv, "/shopping-list/remove", url.Values{"index": {"5"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for out-of-range index, got %d", rr.Code)
	}

	rr = postForm(srv, "/shopping-list/remove", url.Values{"index": {"0"}})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = get(srv, "/ui/shopping-list")
	if strings.Contains(rr.Body.String(), "milk") {
		t.Fatalf("shopping list should be empty: %s", rr.Body.String())
	}
}
