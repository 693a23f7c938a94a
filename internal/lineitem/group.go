package lineitem

// Consolidate walks the raw line sequence once, left to right, and
// emits one CanonicalEntry per resolved purchase. A three-line discount
// group (item, quantity-at-price annotation, discount line) collapses
// to a single entry and consumes all three lines; a weight-priced line
// and a standalone item each consume one. The discount test runs before
// the weight test so lookahead lines are never re-evaluated on their
// own. Every raw line is consumed exactly once and the pass never
// fails: malformed amounts normalize to 0.
func Consolidate(raw []RawLineItem) []CanonicalEntry {
	entries := make([]CanonicalEntry, 0, len(raw))

	for i := 0; i < len(raw); {
		line := raw[i]
		amount := line.TotalAmount.Normalize()

		if i+2 < len(raw) {
			if q, _, ok := matchQuantityAtPrice(raw[i+1].Description); ok && isDiscountLine(raw[i+2], line.Description) {
				discount := abs(raw[i+2].TotalAmount.Normalize())
				unitPrice := amount
				if q > 1 {
					unitPrice = amount / float64(q)
				}
				entries = append(entries, CanonicalEntry{
					Description:      CleanDescription(line.Description),
					Quantity:         floatPtr(float64(q)),
					UnitPrice:        floatPtr(round2(unitPrice)),
					TotalAmount:      round2(amount - discount),
					OriginalDiscount: floatPtr(round2(discount)),
				})
				i += 3
				continue
			}
		}

		if name, pricePerPound, ok := matchWeightPriced(line.Description); ok && amount > 0 {
			entry := CanonicalEntry{
				Description:   name,
				TotalAmount:   round2(amount),
				PricePerPound: floatPtr(pricePerPound),
			}
			if pricePerPound != 0 {
				entry.Pounds = floatPtr(round2(amount / pricePerPound))
			}
			entries = append(entries, entry)
			i++
			continue
		}

		entries = append(entries, CanonicalEntry{
			Description: CleanDescription(line.Description),
			Quantity:    copyPtr(line.Quantity),
			UnitPrice:   copyPtr(line.UnitPrice),
			TotalAmount: round2(amount),
		})
		i++
	}

	return entries
}

func copyPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
