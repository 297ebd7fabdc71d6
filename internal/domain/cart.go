package domain

import (
	"encoding/json"
	"math"
)

// CartItem is one selected service. PriceCents is the unit price in minor
// units; on the wire it travels as a decimal "price".
type CartItem struct {
	ServiceID  string
	Title      string
	PriceCents int64
	Quantity   int
}

// Bounds on a single line. A line at both limits stays far below the int64
// range, so sums over a cart cannot wrap.
const (
	MaxQuantity   = 999
	MaxPriceCents = int64(100_000_000)
)

// LineTotalCents returns PriceCents * Quantity with both factors clamped to
// [0, MaxPriceCents] and [0, MaxQuantity].
func (i CartItem) LineTotalCents() int64 {
	price := min(max(i.PriceCents, 0), MaxPriceCents)
	qty := min(max(i.Quantity, 0), MaxQuantity)
	return price * int64(qty)
}

// AddCents adds two non-negative amounts, saturating at math.MaxInt64.
func AddCents(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

type cartItemJSON struct {
	ServiceID string  `json:"service_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func (i CartItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartItemJSON{
		ServiceID: i.ServiceID,
		Title:     i.Title,
		Price:     CentsToAmount(i.PriceCents),
		Quantity:  i.Quantity,
	})
}

func (i *CartItem) UnmarshalJSON(data []byte) error {
	var raw cartItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = CartItem{
		ServiceID:  raw.ServiceID,
		Title:      raw.Title,
		PriceCents: AmountToCents(raw.Price),
		Quantity:   raw.Quantity,
	}
	return nil
}

// AmountToCents converts a decimal amount to minor units, rounding half away
// from zero.
// Amounts outside the int64 range saturate.
func AmountToCents(amount float64) int64 {
	cents := math.Round(amount * 100)
	switch {
	case math.IsNaN(cents):
		return 0
	case cents >= math.MaxInt64:
		return math.MaxInt64
	case cents <= math.MinInt64:
		return math.MinInt64
	}
	return int64(cents)
}

// CentsToAmount converts minor units back to a decimal amount.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
