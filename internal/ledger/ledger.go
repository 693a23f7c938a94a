// Package ledger accumulates normalized receipts into an append-only
// purchase ledger and owns everything around the engine: persistence,
// file storage, the processing service and the HTTP surface.
package ledger

import (
	"math"
	"sync"
	"time"

	"github.com/zombor/grocery-ledger/internal/lineitem"
)

// ReceiptResult is one processed receipt: the consolidated entries plus
// receipt-level metadata and the reconciliation outcome.
type ReceiptResult struct {
	ID            string                    `json:"id"`
	SourceFile    string                    `json:"source_file"`
	Date          time.Time                 `json:"date"`
	Entries       []lineitem.CanonicalEntry `json:"entries"`
	ReportedTotal *float64                  `json:"reported_total,omitempty"`
	Subtotal      float64                   `json:"subtotal"`
	Mismatch      bool                      `json:"mismatch"`
	Filename      string                    `json:"filename"`
	ContentType   string                    `json:"content_type"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// Row is one ledger line for display or export: a canonical entry
// stamped with the receipt it came from.
type Row struct {
	SourceFile string    `json:"source_file"`
	Date       time.Time `json:"date"`
	lineitem.CanonicalEntry
}

// Ledger is the batch accumulator: an append-only sequence of receipt
// results and a running grand total. Receipts may be processed
// concurrently; the mutex serializes the accumulation step. Nothing is
// mutated or removed after append.
type Ledger struct {
	mu         sync.Mutex
	receipts   []*ReceiptResult
	grandTotal float64
}

// NewLedger creates an empty ledger for a new batch.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds one receipt's results to the ledger and folds its
// subtotal into the grand total.
func (l *Ledger) Append(result *ReceiptResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.receipts = append(l.receipts, result)
	l.grandTotal += result.Subtotal
}

// Receipts returns the appended receipts in arrival order.
func (l *Ledger) Receipts() []*ReceiptResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*ReceiptResult, len(l.receipts))
	copy(out, l.receipts)
	return out
}

// Rows flattens the ledger into one row per canonical entry, preserving
// per-receipt grouping and stamping receipt metadata on every row.
func (l *Ledger) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := make([]Row, 0, len(l.receipts))
	for _, r := range l.receipts {
		for _, e := range r.Entries {
			rows = append(rows, Row{
				SourceFile:     r.SourceFile,
				Date:           r.Date,
				CanonicalEntry: e,
			})
		}
	}
	return rows
}

// GrandTotal returns the running total across all appended receipts,
// rounded to two decimals.
func (l *Ledger) GrandTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return math.Round(l.grandTotal*100) / 100
}
