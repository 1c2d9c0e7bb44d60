package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendbook/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// extractClientIP returns the forwarded client address when present,
// falling back to the direct peer.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// parseItemRef reads the date key and timestamp identifying one ledger
// item from form values.
func parseItemRef(r *http.Request) (core.DateKey, int64, error) {
	key, err := core.ParseDateKey(strings.TrimSpace(r.Form.Get("date")))
	if err != nil {
		return core.DateKey{}, 0, err
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("timestamp")), 10, 64)
	if err != nil {
		return core.DateKey{}, 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	return key, ts, nil
}

// parseAttachment reads the optional attachment fields. An unknown kind
// is an error; a known kind with no payload counts as no attachment.
func parseAttachment(r *http.Request) (core.Attachment, error) {
	kind, ok := core.ParseAttachmentKind(strings.TrimSpace(r.Form.Get("attachment_kind")))
	if !ok {
		return core.Attachment{}, fmt.Errorf("unknown attachment kind %q", r.Form.Get("attachment_kind"))
	}
	data := strings.TrimSpace(r.Form.Get("attachment"))
	if kind == core.AttachmentNone || data == "" {
		return core.Attachment{}, nil
	}
	return core.Attachment{Kind: kind, Data: data}, nil
}

// formatAmount renders a decimal for display with two fraction digits.
func formatAmount(d decimal.Decimal) string {
	return "€" + d.StringFixed(2)
}
