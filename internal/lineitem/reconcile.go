package lineitem

// DefaultTolerance is the allowed drift between the computed subtotal
// and the OCR-reported receipt total before a mismatch is flagged.
const DefaultTolerance = 0.01

// Reconcile sums the entries' totals and compares the result against
// the receipt-level total reported by the OCR service. The flag is
// advisory: a mismatch never blocks the entries, it is surfaced so the
// caller can warn. A nil reportedTotal means no reconciliation is
// possible and is not a mismatch.
func Reconcile(entries []CanonicalEntry, reportedTotal *float64, tolerance float64) (subtotal float64, mismatch bool) {
	for _, e := range entries {
		subtotal += e.TotalAmount
	}
	subtotal = round2(subtotal)

	if reportedTotal == nil {
		return subtotal, false
	}
	return subtotal, abs(subtotal-*reportedTotal) > tolerance
}
