package extract

import (
	"crypto/sha256"
	"sync"
)

// Cache memoizes extraction results keyed by a content hash of the
// image bytes, so re-uploading the same photo within a batch does not
// cost a second network call. The engine itself is cache-free; this
// lives entirely at the collaborator boundary.
type Cache struct {
	next Extractor

	mu   sync.Mutex
	docs map[[sha256.Size]byte]*Document
}

// NewCache wraps an Extractor with content-hash memoization.
func NewCache(next Extractor) *Cache {
	return &Cache{
		next: next,
		docs: make(map[[sha256.Size]byte]*Document),
	}
}

// Extract returns the memoized document for previously seen bytes,
// delegating otherwise. Only successful extractions are memoized, so a
// failed receipt can be retried by uploading again. Callers must treat
// the returned document as read-only.
func (c *Cache) Extract(imageData []byte, contentType string) (*Document, error) {
	key := sha256.Sum256(imageData)

	c.mu.Lock()
	doc, ok := c.docs[key]
	c.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := c.next.Extract(imageData, contentType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.docs[key] = doc
	c.mu.Unlock()
	return doc, nil
}

// Close closes the underlying extractor.
func (c *Cache) Close() error {
	return c.next.Close()
}
