// Package lineitem turns raw OCR line items from a scanned receipt into
// consolidated purchase entries. It is pure: no I/O, no clock, no state
// between calls.
package lineitem

// RawLineItem is one OCR-detected row of a receipt, in scan order.
// Order is meaningful: multi-line groups (item, quantity-at-price,
// discount) appear as contiguous runs.
type RawLineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	TotalAmount Amount   `json:"total_amount,omitempty"`
}

// CanonicalEntry is one fully resolved purchase. TotalAmount is the net
// amount charged, rounded to two decimals. PricePerPound/Pounds are set
// only for weight-priced items; OriginalDiscount only when a discount
// line was folded in. Weight pricing and discount grouping never appear
// on the same entry.
type CanonicalEntry struct {
	Description      string   `json:"description"`
	Quantity         *float64 `json:"quantity,omitempty"`
	UnitPrice        *float64 `json:"unit_price,omitempty"`
	TotalAmount      float64  `json:"total_amount"`
	OriginalDiscount *float64 `json:"original_discount,omitempty"`
	PricePerPound    *float64 `json:"price_per_pound,omitempty"`
	Pounds           *float64 `json:"pounds,omitempty"`
}

func floatPtr(v float64) *float64 {
	return &v
}
