// Package extract is the boundary with the OCR collaborator: backends
// that turn a receipt image into the raw line-item list the engine
// consumes, plus the image normalization and response caching around
// them.
package extract

import (
	"github.com/zombor/grocery-ledger/internal/lineitem"
)

// Document is the OCR service's view of one receipt: the ordered raw
// line items, the receipt-level date (ISO 8601, may be empty) and the
// reported total (nil when the service found none).
type Document struct {
	LineItems   []lineitem.RawLineItem `json:"line_items"`
	Date        string                 `json:"date,omitempty"`
	TotalAmount *float64               `json:"total_amount,omitempty"`
}

// Extractor defines the interface for OCR extraction backends.
type Extractor interface {
	// Extract analyzes a receipt image/PDF and returns its raw line items
	Extract(imageData []byte, contentType string) (*Document, error)
	// Close closes the extractor and releases resources
	Close() error
}
