// Package classifier turns receipt images into draft transactions using a
// generative model.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/iho/welth/internal/domain"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// Generator is the subset of the genai models service the classifier uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini classifies receipts with a Gemini model.
type Gemini struct {
	models Generator
	model  string
	logger zerolog.Logger
}

// NewGemini creates a Gemini classifier from an API key.
func NewGemini(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewGeminiWithGenerator(client.Models, model, logger), nil
}

// NewGeminiWithGenerator creates a Gemini classifier over an existing generator.
func NewGeminiWithGenerator(models Generator, model string, logger zerolog.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model, logger: logger}
}

// Classify sends the image with the extraction prompt and parses the reply.
// It returns a nil draft when the model reports the image is not a receipt.
func (g *Gemini) Classify(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptDraft, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
				{Text: receiptPrompt()},
			},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, domain.ClassificationError("generate content", err)
	}

	raw := resp.Text()
	draft, err := ParseDraft(raw)
	if err != nil {
		g.logger.Warn().Err(err).Str("model", g.model).Str("response", raw).Msg("unparseable receipt response")
		return nil, err
	}
	return draft, nil
}

func receiptPrompt() string {
	return "Analyze this receipt image and extract the following information in JSON format:\n" +
		"- Total amount (just the number)\n" +
		"- Date (in ISO format)\n" +
		"- Description or items purchased (brief summary)\n" +
		"- Merchant/store name\n" +
		"- Suggested category (one of: " + strings.Join(domain.ExpenseCategories, ",") + ")\n\n" +
		"Only respond with valid JSON in this exact format:\n" +
		"{\n" +
		"  \"amount\": number,\n" +
		"  \"date\": \"ISO date string\",\n" +
		"  \"description\": \"string\",\n" +
		"  \"merchantName\": \"string\",\n" +
		"  \"category\": \"string\"\n" +
		"}\n\n" +
		"If it is not a valid receipt, return an empty object"
}

type receiptResponse struct {
	Amount       json.Number `json:"amount"`
	Date         string      `json:"date"`
	Description  string      `json:"description"`
	MerchantName string      `json:"merchantName"`
	Category     string      `json:"category"`
}

// ParseDraft decodes a model reply. An empty object means "not a receipt".
func ParseDraft(raw string) (*domain.ReceiptDraft, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, domain.ClassificationError("empty response", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return nil, domain.ClassificationError("response is not a JSON object", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var resp receiptResponse
	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, domain.ClassificationError("decode receipt", err)
	}

	amount, err := decimal.NewFromString(resp.Amount.String())
	if err != nil {
		return nil, domain.ClassificationError("invalid amount", err)
	}
	if !amount.IsPositive() {
		return nil, domain.ClassificationError(fmt.Sprintf("amount %s is not positive", amount), nil)
	}

	date, err := parseReceiptDate(resp.Date)
	if err != nil {
		return nil, domain.ClassificationError("invalid date", err)
	}

	return &domain.ReceiptDraft{
		Amount:       domain.NewMoney(amount),
		Date:         date,
		Description:  strings.TrimSpace(resp.Description),
		MerchantName: strings.TrimSpace(resp.MerchantName),
		Category:     strings.ToLower(strings.TrimSpace(resp.Category)),
	}, nil
}

var receiptDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseReceiptDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range receiptDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// cleanModelJSON strips Markdown fences and any prose around the JSON object.
func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
