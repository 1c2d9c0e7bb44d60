package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	// Theme is the UI color scheme preference. Presentation only.
	Theme string

	// DateKey identifies one calendar day in the ledger. It serializes as
	// the unpadded "day-month-year" string the ledger has always used for
	// its map keys (e.g. "5-3-2024").
	DateKey struct {
		Day   int
		Month int
		Year  int
	}

	// Item is a single recorded purchase. Price is kept as the string the
	// user entered; Timestamp (epoch milliseconds) is the item's identity
	// within its day bucket.
	Item struct {
		Name      string  `json:"name"`
		Price     string  `json:"price"`
		Time      string  `json:"time"`
		Timestamp int64   `json:"timestamp"`
		Photo     *string `json:"photo"`
		Voice     *string `json:"record"`
	}

	// Ledger maps day keys to that day's purchases in insertion order.
	Ledger map[DateKey][]Item

	// ShoppingItem is a planned purchase, kept separate from the ledger.
	ShoppingItem struct {
		Name  string `json:"name"`
		Price string `json:"price"`
	}
)

var (
	ErrInvalidPrice    = errors.New("invalid price")
	ErrNegativePrice   = errors.New("negative price")
	ErrInvalidDateKey  = errors.New("invalid date key")
	ErrItemNotFound    = errors.New("item not found")
	ErrNegativeBalance = errors.New("negative balance")
)

// ClockTimeLayout is the human-readable creation time stored on each item,
// a 12-hour clock with AM/PM and no zero padding.
const ClockTimeLayout = "3:04 PM"

// NewDateKey builds the key for the calendar day of t in t's location.
func NewDateKey(t time.Time) DateKey {
	return DateKey{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// ParseDateKey parses an unpadded "day-month-year" string.
func ParseDateKey(s string) (DateKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return DateKey{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return DateKey{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
		}
		nums[i] = n
	}
	k := DateKey{Day: nums[0], Month: nums[1], Year: nums[2]}
	if err := k.Validate(); err != nil {
		return DateKey{}, err
	}
	return k, nil
}

func (k DateKey) Validate() error {
	if k.Day < 1 || k.Day > 31 {
		return fmt.Errorf("%w: day %d", ErrInvalidDateKey, k.Day)
	}
	if k.Month < 1 || k.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDateKey, k.Month)
	}
	if k.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidDateKey, k.Year)
	}
	return nil
}

// String renders the key in its stored form, without zero padding.
func (k DateKey) String() string {
	return strconv.Itoa(k.Day) + "-" + strconv.Itoa(k.Month) + "-" + strconv.Itoa(k.Year)
}

// Time returns midnight of the key's day in the given location.
func (k DateKey) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(k.Year, time.Month(k.Month), k.Day, 0, 0, 0, 0, loc)
}

// Before orders keys by calendar date, not by their string form.
func (k DateKey) Before(other DateKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// MarshalText lets Ledger maps serialize with the original key format.
func (k DateKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *DateKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Amount returns the item's price as a decimal. Prices that fail to parse
// count as zero, matching how totals have always been computed.
func (i Item) Amount() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(i.Price))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Attachment returns the item's attachment in tagged form.
func (i Item) Attachment() Attachment {
	switch {
	case i.Photo != nil:
		return PhotoAttachment(*i.Photo)
	case i.Voice != nil:
		return VoiceAttachment(*i.Voice)
	default:
		return Attachment{}
	}
}

// SumDay totals the prices of one day's bucket. A missing key yields zero.
func (l Ledger) SumDay(key DateKey) decimal.Decimal {
	total := decimal.Zero
	for _, item := range l[key] {
		total = total.Add(item.Amount())
	}
	return total
}

// Clone returns a deep copy of the ledger's buckets. Item values are copied
// by value; attachment pointers still reference the same payloads.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, items := range l {
		bucket := make([]Item, len(items))
		copy(bucket, items)
		out[k] = bucket
	}
	return out
}

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}
