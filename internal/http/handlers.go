package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"spendbook/internal/balance"
	"spendbook/internal/chart"
	"spendbook/internal/core"
	"spendbook/internal/stats"
)

type itemView struct {
	Name      string
	Price     string
	Time      string
	Timestamp int64
	Date      string
	Photo     string
	Voice     string
}

func newItemView(key core.DateKey, item core.Item) itemView {
	v := itemView{
		Name:      item.Name,
		Price:     item.Price,
		Time:      item.Time,
		Timestamp: item.Timestamp,
		Date:      key.String(),
	}
	if item.Photo != nil {
		v.Photo = *item.Photo
	}
	if item.Voice != nil {
		v.Voice = *item.Voice
	}
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	name, err := s.store.ReadDisplayName(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Read display name error", "error", err)
	}
	theme, err := s.store.ReadTheme(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Read theme error", "error", err)
		theme = core.ThemeLight
	}
	shortcuts, err := s.store.ReadShortcuts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Read shortcuts error", "error", err)
	}

	data := struct {
		DisplayName string
		Theme       string
		Shortcuts   []string
		Today       string
	}{
		DisplayName: name,
		Theme:       string(theme),
		Shortcuts:   shortcuts,
		Today:       s.rec.Today().String(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleAddItem files a purchase under today and re-renders nothing; the
// client refreshes the today partial off the HX-Trigger.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	price := strings.TrimSpace(r.Form.Get("price"))

	// The recorder itself tolerates empty names; the UI does not.
	if name == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Name is required</div>`))
		return
	}

	att, err := parseAttachment(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Unknown attachment kind</div>`))
		return
	}

	item, key, err := s.rec.Add(r.Context(), name, price, att)
	if err != nil {
		slog.WarnContext(r.Context(), "Add item rejected", "error", err, "item_name", name)
		if errors.Is(err, core.ErrInvalidPrice) || errors.Is(err, core.ErrNegativePrice) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid price</div>`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to save item</div>`))
		return
	}

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {"date": "`+key.String()+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Recorded ` +
		template.HTMLEscapeString(item.Name) + ` — €` +
		template.HTMLEscapeString(item.Price) + `</div>`))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	key, ts, err := parseItemRef(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid item reference</div>`))
		return
	}

	if err := s.rec.Delete(r.Context(), key, ts); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrItemNotFound) {
			status = http.StatusNotFound
		}
		slog.ErrorContext(r.Context(), "Delete item error", "error", err, "date_key", key.String(), "timestamp", ts)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`<div class="error">Item not found</div>`))
		return
	}

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {"date": "`+key.String()+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Deleted</div>`))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	key, ts, err := parseItemRef(r)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid item reference</div>`))
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	price := strings.TrimSpace(r.Form.Get("price"))

	item, err := s.rec.Update(r.Context(), key, ts, name, price)
	if err != nil {
		slog.WarnContext(r.Context(), "Update item rejected", "error", err, "date_key", key.String(), "timestamp", ts)
		switch {
		case errors.Is(err, core.ErrInvalidPrice), errors.Is(err, core.ErrNegativePrice):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid price</div>`))
		case errors.Is(err, core.ErrItemNotFound):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<div class="error">Item not found</div>`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<div class="error">Failed to save changes</div>`))
		}
		return
	}

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"ledger:changed": {"date": "`+key.String()+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Updated ` +
		template.HTMLEscapeString(item.Name) + `</div>`))
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	raw := strings.TrimSpace(strings.ReplaceAll(r.Form.Get("balance"), ",", "."))
	v, err := decimal.NewFromString(raw)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid balance</div>`))
		return
	}

	if err := s.tracker.Set(r.Context(), v); err != nil {
		if errors.Is(err, core.ErrNegativeBalance) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Balance cannot be negative</div>`))
			return
		}
		// A failed write means the balance was not saved; that is a
		// server error, not a validation problem.
		slog.ErrorContext(r.Context(), "Set balance error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Failed to save balance</div>`))
		return
	}

	w.Header().Set("HX-Trigger", `{"balance:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Balance set to ` + formatAmount(v) + `</div>`))
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	theme := core.Theme(strings.TrimSpace(r.Form.Get("theme")))
	if err := s.store.WriteTheme(r.Context(), theme); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Unknown theme</div>`))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if err := s.store.WriteDisplayName(r.Context(), name); err != nil {
		slog.ErrorContext(r.Context(), "Write display name error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Hello, ` + template.HTMLEscapeString(name) + `</div>`))
}

// handleToday renders the current day's bucket with the remaining amount.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	key := s.rec.Today()
	l, err := s.store.ReadLedger(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Read ledger error", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading today</div>`))
		return
	}
	bal, err := s.tracker.Get(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Read balance error", "error", err)
		bal = decimal.Zero
	}

	items := make([]itemView, 0, len(l[key]))
	for _, item := range l[key] {
		items = append(items, newItemView(key, item))
	}

	data := struct {
		Date      string
		Items     []itemView
		Total     string
		Balance   string
		Remaining string
	}{
		Date:      key.String(),
		Items:     items,
		Total:     formatAmount(l.SumDay(key)),
		Balance:   formatAmount(bal),
		Remaining: formatAmount(balance.Remaining(bal, l, key)),
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Remaining today: ` + data.Remaining + `</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "today.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "today.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering today</div>`))
	}
}

// handleHistory renders every recorded day in calendar order, most recent
// last, with per-day totals.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	series, err := s.getSeries(r.Context(), stats.WindowAll)
	if err != nil {
		slog.ErrorContext(r.Context(), "History series error", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading history</div>`))
		return
	}

	type dayView struct {
		Date  string
		Total string
		Items []itemView
	}
	days := make([]dayView, 0, len(series))
	for _, day := range series {
		items := make([]itemView, 0, len(day.Items))
		for _, item := range day.Items {
			items = append(items, newItemView(day.Date, item))
		}
		days = append(days, dayView{
			Date:  day.Date.String(),
			Total: formatAmount(day.Total),
			Items: items,
		})
	}

	data := struct{ Days []dayView }{Days: days}
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">` + strconv.Itoa(len(days)) + ` days recorded</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "history.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "history.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering history</div>`))
	}
}

// handleDashboard renders summary statistics for the requested window.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	window := stats.ParseWindow(strings.TrimSpace(r.URL.Query().Get("window")))
	series, err := s.getSeries(r.Context(), window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard series error", "error", err, "window", string(window))
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading dashboard</div>`))
		return
	}

	summary := stats.Summarize(series)
	data := struct {
		Window   string
		Days     int
		Total    string
		Average  string
		Trend    string
		MaxDate  string
		MaxTotal string
		MinDate  string
		MinTotal string
	}{
		Window:  string(window),
		Days:    summary.Days,
		Total:   formatAmount(summary.Total),
		Average: formatAmount(summary.AverageDaily),
		Trend:   string(stats.TrendOf(series)),
	}
	if summary.MaxDay != nil {
		data.MaxDate = summary.MaxDay.Date.String()
		data.MaxTotal = formatAmount(summary.MaxDay.Total)
	}
	if summary.MinDay != nil {
		data.MinDate = summary.MinDay.Date.String()
		data.MinTotal = formatAmount(summary.MinDay.Total)
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Total: ` + data.Total + `</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "dashboard.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering dashboard</div>`))
	}
}

// handleChart renders the windowed series as a PNG, cached per window
// and chart kind.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	window := stats.ParseWindow(strings.TrimSpace(r.URL.Query().Get("window")))
	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	if kind != "pie" {
		kind = "bar"
	}

	cacheKey := string(window) + "/" + kind
	if png, found := s.chartCache.Get(cacheKey); found {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
		return
	}

	series, err := s.getSeries(r.Context(), window)
	if err != nil {
		slog.ErrorContext(r.Context(), "Chart series error", "error", err, "window", string(window))
		http.Error(w, "failed to load series", http.StatusInternalServerError)
		return
	}

	var png []byte
	switch kind {
	case "pie":
		png, err = chart.TopDaysPNG(series, 5)
	default:
		png, err = chart.DailyTotalsPNG(series, "Daily spending")
	}
	if err != nil {
		slog.WarnContext(r.Context(), "Chart render skipped", "error", err, "window", string(window), "kind", kind)
		http.Error(w, "nothing to chart", http.StatusNotFound)
		return
	}

	s.chartCache.Set(cacheKey, png)
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	items, err := s.store.ReadShoppingList(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Read shopping list error", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Error loading shopping list</div>`))
		return
	}

	data := struct{ Items []core.ShoppingItem }{Items: items}
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">` + strconv.Itoa(len(items)) + ` planned purchases</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "shopping_list.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "shopping_list.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering shopping list</div>`))
	}
}

func (s *Server) handleShoppingAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Name is required</div>`))
		return
	}
	price := strings.TrimSpace(strings.ReplaceAll(r.Form.Get("price"), ",", "."))
	if price != "" {
		if _, err := core.ParsePrice(price); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid price</div>`))
			return
		}
	}

	items, err := s.store.ReadShoppingList(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	items = append(items, core.ShoppingItem{Name: name, Price: price})
	if err := s.store.WriteShoppingList(r.Context(), items); err != nil {
		slog.ErrorContext(r.Context(), "Write shopping list error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("HX-Trigger", `{"shopping:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Added ` + template.HTMLEscapeString(name) + `</div>`))
}

func (s *Server) handleShoppingRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	idx, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("index")))
	if err != nil || idx < 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid index</div>`))
		return
	}

	items, err := s.store.ReadShoppingList(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if idx >= len(items) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<div class="error">No such entry</div>`))
		return
	}
	items = append(items[:idx:idx], items[idx+1:]...)
	if err := s.store.WriteShoppingList(r.Context(), items); err != nil {
		slog.ErrorContext(r.Context(), "Write shopping list error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("HX-Trigger", `{"shopping:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Removed</div>`))
}
