package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// Gemini answers spending questions with the model, grounding it on a
// compact JSON digest of the user's expenses.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

type expenseDigest struct {
	Date     string  `json:"date"`
	Vendor   string  `json:"vendor"`
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Total    float64 `json:"total"`
	YourPart float64 `json:"your_share"`
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, query string, expenses []core.Expense) (string, error) {
	digest := make([]expenseDigest, len(expenses))
	for i, e := range expenses {
		digest[i] = expenseDigest{
			Date:     e.TransactionDate.Format("2006-01-02"),
			Vendor:   e.VendorName,
			Category: e.Category,
			Type:     e.Type,
			Total:    e.TotalAmount,
			YourPart: userShare(e),
		}
	}

	data, err := json.Marshal(digest)
	if err != nil {
		return "", fmt.Errorf("marshal expense digest: %w", err)
	}

	prompt := fmt.Sprintf(`Here is the user's expense history as JSON (your_share is the amount attributable to the user after cost splitting):

%s

Question: %s`, data, query)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: 1024,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: "You are a personal finance assistant. Answer the question from the expense data only, in two or three plain sentences with concrete numbers. Do not invent expenses."}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate insight: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
