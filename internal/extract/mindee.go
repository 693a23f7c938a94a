package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/zombor/grocery-ledger/internal/lineitem"
)

// DefaultMindeeEndpoint is the expense receipts prediction endpoint.
const DefaultMindeeEndpoint = "https://api.mindee.net/v1/products/mindee/expense_receipts/v5/predict"

// Mindee implements the Extractor interface against the Mindee expense
// receipts API.
type Mindee struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewMindee creates a new Mindee Extractor instance.
func NewMindee(apiKey string, endpoint string) (*Mindee, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mindee api key is required")
	}
	if endpoint == "" {
		endpoint = DefaultMindeeEndpoint
	}

	return &Mindee{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// mindeeResponse mirrors the slice of the prediction payload we use.
type mindeeResponse struct {
	Document struct {
		Inference struct {
			Prediction struct {
				Date struct {
					Value string `json:"value"`
				} `json:"date"`
				TotalAmount struct {
					Value *float64 `json:"value"`
				} `json:"total_amount"`
				LineItems []lineitem.RawLineItem `json:"line_items"`
			} `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

// Extract uploads the receipt and decodes the predicted line items. Any
// non-created status is a receipt-level failure: the caller skips the
// receipt and the batch continues.
func (m *Mindee) Extract(imageData []byte, contentType string) (*Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("document", "receipt.png")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(finalImageData); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Token "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling mindee API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mindee API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed mindeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	prediction := parsed.Document.Inference.Prediction
	return &Document{
		LineItems:   prediction.LineItems,
		Date:        normalizeDate(prediction.Date.Value),
		TotalAmount: prediction.TotalAmount.Value,
	}, nil
}

// Close closes the Mindee client (no-op for HTTP client)
func (m *Mindee) Close() error {
	return nil
}
