package lineitem

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "2 @ 1.75" - N units at a unit price. The whole cleaned
	// description must be the annotation for the line to qualify.
	qtyAtPrice = regexp.MustCompile(`^(\d+)\s*@\s*(\d+(?:\.\d+)?)$`)

	// "BANANAS @ 0.59 /lb" - per-pound pricing embedded anywhere in
	// the description.
	weightPriced = regexp.MustCompile(`(?i)@\s*(\d+(?:\.\d+)?)\s*/\s*lb`)
)

// matchQuantityAtPrice reports whether the cleaned description is
// entirely a "N @ price" annotation, returning the quantity and unit
// price when it is.
func matchQuantityAtPrice(description string) (quantity int, unitPrice float64, ok bool) {
	m := qtyAtPrice.FindStringSubmatch(CleanDescription(description))
	if m == nil {
		return 0, 0, false
	}
	q, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	p, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return q, p, true
}

// matchWeightPriced reports whether the description carries a "@ price
// /lb" annotation, returning the per-pound price and the product name
// (the cleaned text before the @).
func matchWeightPriced(description string) (name string, pricePerPound float64, ok bool) {
	loc := weightPriced.FindStringSubmatchIndex(description)
	if loc == nil {
		return "", 0, false
	}
	p, err := strconv.ParseFloat(description[loc[2]:loc[3]], 64)
	if err != nil {
		return "", 0, false
	}
	return CleanDescription(description[:loc[0]]), p, true
}

// isDiscountLine reports whether a line is a discount or credit against
// the item with the given description. Receipts either carry a negative
// amount on the discount line or reprint the item name as a prefix.
func isDiscountLine(line RawLineItem, itemDescription string) bool {
	if line.TotalAmount.Normalize() < 0 {
		return true
	}
	key := descriptionKey(CleanDescription(itemDescription))
	if key == "" {
		return false
	}
	return strings.HasPrefix(descriptionKey(CleanDescription(line.Description)), key)
}
