package ledger

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/grocery-ledger/internal/extract"
	"github.com/zombor/grocery-ledger/internal/lineitem"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service processes receipts end to end: store the upload, run the OCR
// extractor, consolidate the raw lines, reconcile against the reported
// total, persist and append to the batch ledger.
type Service struct {
	db          DB
	extractor   extract.Extractor
	storage     Storage
	ledger      *Ledger
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a fresh ledger, UUID receipt
// IDs and the wall clock.
func NewService(db DB, extractor extract.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, NewLedger(), &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extract.Extractor, storage Storage, ledger *Ledger, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		ledger:      ledger,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Ledger returns the batch accumulator.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// LoadLedger rebuilds the ledger from persisted receipts, in processing
// order. Called once at startup before any new receipts arrive.
func (s *Service) LoadLedger() error {
	results, err := s.db.ListReceipts()
	if err != nil {
		return fmt.Errorf("listing receipts: %w", err)
	}
	for _, r := range results {
		s.ledger.Append(r)
	}
	return nil
}

var (
	filenameSpecials   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameWhitespace = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters
// and truncating length; phone uploads arrive with long noisy names.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameSpecials.ReplaceAllString(base, "")
	base = filenameWhitespace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// resolveDate picks the receipt date: an explicit caller override wins,
// then the OCR-reported date, then today.
func resolveDate(override, reported string, now time.Time) time.Time {
	if d, err := time.Parse("2006-01-02", override); err == nil {
		return d
	}
	if d, err := time.Parse("2006-01-02", reported); err == nil {
		return d
	}
	return now
}

// ProcessReceipt stores an uploaded receipt image, extracts its raw
// line items and turns them into a persisted, ledger-appended
// ReceiptResult. An extractor failure is receipt-level: the upload is
// cleaned up, nothing partial is emitted, and the caller moves on to
// the next receipt in the batch. dateOverride (ISO 8601) lets the
// caller confirm or correct the receipt date; empty means use the OCR
// date, falling back to today.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string, dateOverride string) (*ReceiptResult, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	doc, err := s.extractor.Extract(data, contentType)
	if err != nil {
		slog.Error("Failed to extract line items",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("extracting line items: %w", err)
	}

	entries := lineitem.Consolidate(doc.LineItems)
	subtotal, mismatch := lineitem.Reconcile(entries, doc.TotalAmount, lineitem.DefaultTolerance)
	if mismatch {
		slog.Warn("Receipt total does not reconcile",
			"filename", filename,
			"subtotal", subtotal,
			"reported_total", *doc.TotalAmount,
		)
	}

	result := &ReceiptResult{
		ID:            id,
		SourceFile:    filename,
		Date:          resolveDate(dateOverride, doc.Date, now),
		Entries:       entries,
		ReportedTotal: doc.TotalAmount,
		Subtotal:      subtotal,
		Mismatch:      mismatch,
		Filename:      savedPath,
		ContentType:   contentType,
		CreatedAt:     now,
	}

	if err := s.db.SaveReceipt(result); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	s.ledger.Append(result)
	return result, nil
}

// GetReceipt retrieves a receipt by ID.
func (s *Service) GetReceipt(id string) (*ReceiptResult, error) {
	result, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return result, nil
}

// ListReceipts returns all persisted receipts.
func (s *Service) ListReceipts() ([]*ReceiptResult, error) {
	results, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return results, nil
}

// DeleteReceipt removes a persisted receipt and its stored image. The
// in-memory batch ledger is append-only and untouched; it reflects the
// deletion after the next restart.
func (s *Service) DeleteReceipt(id string) error {
	result, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(result.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", result.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the stored image for a receipt.
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	result, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(result.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, result.ContentType, nil
}
