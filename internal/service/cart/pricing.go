package cart

import "homeservices-agent/internal/domain"

// Default pricing shown at checkout: a flat convenience fee and a tax rate in
// basis points applied to the subtotal.
const (
	DefaultConvenienceFeeCents int64 = 5000
	DefaultTaxRateBPS          int64 = 1800
)

// Pricing turns a subtotal into the breakdown shown before booking.
type Pricing struct {
	ConvenienceFeeCents int64
	TaxRateBPS          int64
}

// DefaultPricing returns the standard fee and tax.
func DefaultPricing() Pricing {
	return Pricing{
		ConvenienceFeeCents: DefaultConvenienceFeeCents,
		TaxRateBPS:          DefaultTaxRateBPS,
	}
}

// Quote is a priced cart, all amounts in cents.
type Quote struct {
	SubtotalCents       int64
	ConvenienceFeeCents int64
	TaxCents            int64
	TotalCents          int64
}

const bpsDenominator = 10000

// Quote prices subtotalCents. An empty cart costs nothing: no fee, no tax.
// The tax rate is clamped to [0, 100%] and the fee to >= 0.
func (p Pricing) Quote(subtotalCents int64) Quote {
	if subtotalCents <= 0 {
		return Quote{}
	}
	fee := max(p.ConvenienceFeeCents, 0)
	tax := taxCents(subtotalCents, min(max(p.TaxRateBPS, 0), bpsDenominator))
	return Quote{
		SubtotalCents:       subtotalCents,
		ConvenienceFeeCents: fee,
		TaxCents:            tax,
		TotalCents:          domain.AddCents(domain.AddCents(subtotalCents, fee), tax),
	}
}

// taxCents computes subtotal*bps/10000 rounded half-up without forming the
// full product. bps must be within [0, 10000].
func taxCents(subtotal, bps int64) int64 {
	whole, rest := subtotal/bpsDenominator, subtotal%bpsDenominator
	return whole*bps + roundHalfUp(rest*bps, bpsDenominator)
}

func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
