// Package core holds the ledger's value types: date keys, items,
// attachments, and price handling.
//
// This file contains price parsing for the recording boundary. Stored
// prices stay strings; arithmetic goes through shopspring/decimal so
// totals never accumulate float error.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice validates a user-entered price and returns its decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative and unparsable values are rejected; zero is allowed because the
// ledger has always permitted free items.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNegativePrice, s)
	}
	return d, nil
}
