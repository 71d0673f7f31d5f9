package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/i-dipanshu/project-raseed/internal/core"
	"github.com/i-dipanshu/project-raseed/internal/log"
)

const (
	maxAttempts    = 3
	retryBaseDelay = 2 * time.Second
)

// Gemini parses expenses with a multi-stage model pipeline: detect whether
// the text is itemized, extract the items, analyze how costs are split, then
// apply the split plan to each item. Stages that fail fall back to the
// keyword heuristics so a flaky model never blocks recording an expense.
type Gemini struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

// NewGemini creates a Gemini-backed parser. The API key may be empty when the
// environment provides credentials another way (GOOGLE_API_KEY).
func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger.WithComponent(log.ComponentParser),
	}, nil
}

// Parse implements Parser.
func (g *Gemini) Parse(ctx context.Context, text string) (core.RawParse, error) {
	itemized := g.detectItemized(ctx, text)
	g.logger.DebugContext(ctx, "itemization detected", "itemized", itemized)

	if itemized {
		items, err := g.extractItems(ctx, text)
		if err != nil {
			g.logger.WarnContext(ctx, "item extraction failed, using simple parse", log.FieldError, err.Error())
		} else if len(items) > 0 {
			plan := g.determineSplits(ctx, text)
			return assembleItemized(items, plan), nil
		}
	}

	return g.simpleParse(ctx, text)
}

type extractedItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// detectItemized asks the model whether the text lists multiple priced items.
// Any error means "no": the simple parse path handles it fine.
func (g *Gemini) detectItemized(ctx context.Context, text string) bool {
	prompt := fmt.Sprintf(`Analyze this expense text: %q

Is this a detailed itemized expense that lists multiple specific items with individual prices?

Examples of detailed itemized expenses:
- "Bought rice 450, flour 120, dal 180..."
- "Restaurant: pizza 15, drinks 8, dessert 5..."

Answer: YES or NO`, text)

	system := "You are an expense analyzer. Determine if the expense contains multiple specific items with individual prices that should be broken down separately. Answer only YES or NO."

	resp, err := g.generate(ctx, prompt, system, false)
	if err != nil {
		g.logger.WarnContext(ctx, "itemization detection failed", log.FieldError, err.Error())
		return false
	}
	return strings.EqualFold(strings.TrimSpace(resp), "YES")
}

func (g *Gemini) extractItems(ctx context.Context, text string) ([]extractedItem, error) {
	categories := strings.Join(core.Categories(), ", ")

	prompt := fmt.Sprintf(`Extract all individual items with their prices and categories from this expense text: %q

List each item separately with its price and category. Include quantities where mentioned.

Available categories: %s

Return as JSON array of items:`, text, categories)

	system := fmt.Sprintf(`Extract individual items, prices, and categories from the expense text. Return a JSON array:
[
    {"description": "5kg basmati rice", "amount": 450.0, "category": "Groceries"}
]

Available categories: %s

Rules:
- Include quantities and details in description
- Convert prices to numbers (remove currency symbols)
- Each item should be separate
- Choose the most appropriate category for each item
- If unsure about category, use %s`, categories, core.CategoryOther)

	resp, err := g.generate(ctx, prompt, system, true)
	if err != nil {
		return nil, err
	}

	var items []extractedItem
	if err := json.Unmarshal([]byte(cleanModelJSON(resp)), &items); err != nil {
		return nil, fmt.Errorf("unmarshal extracted items: %w", err)
	}

	valid := items[:0]
	for _, it := range items {
		if it.Description == "" {
			continue
		}
		it.Category = validCategory(it.Category)
		valid = append(valid, it)
	}
	return valid, nil
}

// determineSplits analyzes the sharing context of the expense. Model failures
// degrade to the keyword heuristics instead of failing the whole parse.
func (g *Gemini) determineSplits(ctx context.Context, text string) splitPlan {
	prompt := fmt.Sprintf(`Analyze who participates in this expense and how costs are divided: %q

Key distinction:
- PERSONAL: paying FOR someone ("bought lunch for Priya") means one payer, no split.
- SHARED: splitting WITH someone ("split dinner with Priya") means costs divide among participants.

Signal words for shared: "split", "divide", "owes me", "each pays", "we share".`, text)

	system := `Analyze the expense context to determine if it is personal or shared. Return JSON:
{
    "participants": ["me"],
    "clean_participants": [],
    "is_shared": false,
    "expense_type": "personal",
    "splitting_method": "personal",
    "split_ratio": {"me": 1.0},
    "splitting_explanation": "why"
}

For shared expenses list every participant (the submitting user is "me"), put the others in clean_participants, set splitting_method to "equal_split" unless the text dictates ratios, and make split_ratio values sum to 1.`

	resp, err := g.generate(ctx, prompt, system, true)
	if err != nil {
		g.logger.WarnContext(ctx, "split analysis failed, using keyword fallback", log.FieldError, err.Error())
		return heuristicSplitPlan(text)
	}

	var plan splitPlan
	if err := json.Unmarshal([]byte(cleanModelJSON(resp)), &plan); err != nil {
		g.logger.WarnContext(ctx, "split analysis returned bad JSON, using keyword fallback", log.FieldError, err.Error())
		return heuristicSplitPlan(text)
	}

	return plan.normalize()
}

type simpleParseResult struct {
	LineItems []struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	} `json:"line_items"`
	TotalAmount float64 `json:"total_amount"`
	ExpenseDate string  `json:"expense_date"`
}

// simpleParse handles non-itemized text: one model call for items and total,
// keyword categorization per item, splits from the plan.
func (g *Gemini) simpleParse(ctx context.Context, text string) (core.RawParse, error) {
	plan := g.determineSplits(ctx, text)

	prompt := fmt.Sprintf(`Parse this expense into line items: %q

Based on the expense description, extract:
1. Individual items or services with their amounts
2. If no specific items are mentioned, create one general line item

Return the items found:`, text)

	system := `Extract line items from the expense. Return JSON:
{
    "line_items": [{"description": "item or service description", "amount": 0.0}],
    "total_amount": 0.0,
    "expense_date": null
}

Rules:
- If specific items with prices are mentioned, list them separately
- If it is a general expense (like "dinner 50"), create one item
- Amounts are numbers without currency symbols
- total_amount sums all line items
- expense_date is "YYYY-MM-DD" when the text states a date, otherwise null`

	resp, err := g.generate(ctx, prompt, system, true)
	if err != nil {
		return core.RawParse{}, fmt.Errorf("parse expense text: %w", err)
	}

	var parsed simpleParseResult
	if err := json.Unmarshal([]byte(cleanModelJSON(resp)), &parsed); err != nil {
		return core.RawParse{}, fmt.Errorf("unmarshal parse result: %w", err)
	}

	lineItems := make([]core.RawLineItem, 0, len(parsed.LineItems))
	for _, it := range parsed.LineItems {
		lineItems = append(lineItems, core.RawLineItem{
			Description:    it.Description,
			Amount:         it.Amount,
			Category:       core.Categorize([]core.LineItem{{Description: it.Description}}),
			AllocationText: plan.Explanation,
			Splits:         plan.apply(it.Amount),
		})
	}

	shared := plan.IsShared
	total := parsed.TotalAmount
	return core.RawParse{
		Participants:      plan.Participants,
		CleanParticipants: plan.CleanParticipants,
		IsShared:          &shared,
		ExpenseType:       plan.ExpenseType,
		ExpenseDate:       parsed.ExpenseDate,
		LineItems:         lineItems,
		TotalAmount:       &total,
	}, nil
}

func assembleItemized(items []extractedItem, plan splitPlan) core.RawParse {
	lineItems := make([]core.RawLineItem, 0, len(items))
	var total float64
	for _, it := range items {
		total += it.Amount
		lineItems = append(lineItems, core.RawLineItem{
			Description:    it.Description,
			Amount:         it.Amount,
			Category:       it.Category,
			AllocationText: plan.Explanation,
			Splits:         plan.apply(it.Amount),
		})
	}

	shared := plan.IsShared
	total = round2(total)
	return core.RawParse{
		Participants:      plan.Participants,
		CleanParticipants: plan.CleanParticipants,
		IsShared:          &shared,
		ExpenseType:       plan.ExpenseType,
		LineItems:         lineItems,
		TotalAmount:       &total,
	}
}

// generate calls the model with retry and exponential backoff.
func (g *Gemini) generate(ctx context.Context, prompt, system string, jsonOutput bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 2048,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}
	if jsonOutput {
		cfg.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err == nil {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				err = fmt.Errorf("empty response from model")
			} else {
				return text, nil
			}
		}
		lastErr = err

		if attempt < maxAttempts {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return "", fmt.Errorf("model call failed after %d attempts: %w", maxAttempts, lastErr)
}

func validCategory(c string) string {
	for _, known := range core.Categories() {
		if strings.EqualFold(c, known) {
			return known
		}
	}
	return core.CategoryOther
}
