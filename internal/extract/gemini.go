package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// lineItemsPrompt asks a vision model for the same payload shape the
// Mindee backend produces, so both feed the engine identically.
const lineItemsPrompt = `You are analyzing a scanned grocery receipt. Read every printed line between the header and the totals section, top to bottom, and emit one entry per printed line. Do not merge, reorder, or skip lines: quantity annotations like "2 @ 1.75" and discount lines belong in the list as their own entries, in scan order.

Return ONLY valid JSON in this exact format:
{
  "line_items": [
    {"description": "MILK", "quantity": 1, "unit_price": 3.49, "total_amount": 3.49}
  ],
  "date": "YYYY-MM-DD",
  "total_amount": 0.00
}

Important:
- description is the printed text of the line, exactly as it appears
- quantity and unit_price may be null when the receipt does not print them
- total_amount on a line may be a string when the receipt prints a trailing sign (e.g. "0.50-")
- the top-level total_amount is the receipt's grand total; use null if not printed
- the date must be in YYYY-MM-DD format
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the Extractor interface using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Extract analyzes a receipt and returns its raw line items.
func (g *Gemini) Extract(imageData []byte, contentType string) (*Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects the format suffix, and prepareImageData
	// always hands back PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(lineItemsPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	doc, err := parseDocumentJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing line items: %w", err)
	}
	return doc, nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
