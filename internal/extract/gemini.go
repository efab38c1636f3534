package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// GeminiDefaultModel is used when no model is configured.
const GeminiDefaultModel = "gemini-2.0-flash"

const geminiPrompt = `You are reading a bank statement.
Return the opening (starting) balance, the closing (ending) balance and every
transaction line in the order printed. Copy numbers exactly as printed.
Debits and withdrawals are negative amounts, credits and deposits positive.
Use an empty string for a value that is not on the statement.`

// GeminiExtractor asks a Gemini model to read the statement and answer with
// JSON matching RawStatement.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a Gemini API client for apiKey.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if modelName == "" {
		modelName = GeminiDefaultModel
	}
	return &GeminiExtractor{client: client, model: modelName}, nil
}

// Name returns the extractor name.
func (g *GeminiExtractor) Name() string { return "gemini" }

// Extract sends the PDF at path inline with the extraction prompt.
func (g *GeminiExtractor) Extract(ctx context.Context, path string) (model.RawStatement, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("reading %s: %w", path, err)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: doc}},
			{Text: geminiPrompt},
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   statementSchema(),
	})
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("analyzing %s: %w", path, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("analyzing %s: %w", path, err)
	}
	raw, err := decodeStatementJSON(text)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("analyzing %s: %w", path, err)
	}
	return stamp(raw, path, g.Name()), nil
}

func statementSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"starting_balance": str("opening balance as printed"),
			"ending_balance":   str("closing balance as printed"),
			"transactions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":        str("posting date as printed"),
						"description": str("transaction description"),
						"amount":      str("signed amount, negative for debits"),
					},
					Required:         []string{"description", "amount"},
					PropertyOrdering: []string{"date", "description", "amount"},
				},
			},
		},
		Required:         []string{"starting_balance", "ending_balance", "transactions"},
		PropertyOrdering: []string{"starting_balance", "ending_balance", "transactions"},
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("response has no text")
	}
	return sb.String(), nil
}

// decodeStatementJSON decodes a model answer, tolerating a ```json fence.
func decodeStatementJSON(text string) (model.RawStatement, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw model.RawStatement
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return model.RawStatement{}, fmt.Errorf("decoding model answer: %w", err)
	}
	return raw, nil
}
