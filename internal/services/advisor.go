package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"finplan/internal/insights"
)

const DefaultAdvisorModel = "gemini-2.0-flash"

// ErrAdvisorDisabled is returned when no API key was configured.
var ErrAdvisorDisabled = errors.New("advisor disabled: no API key configured")

// Generator is the part of *genai.Models the advisor uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Advisor asks a Gemini model for savings advice about one month.
type Advisor struct {
	models Generator
	model  string
}

// NewAdvisor returns a disabled advisor when apiKey is empty.
func NewAdvisor(ctx context.Context, apiKey, model string) (*Advisor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &Advisor{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewAdvisorWith(client.Models, model), nil
}

// NewAdvisorWith uses models directly.
func NewAdvisorWith(models Generator, model string) *Advisor {
	if model == "" {
		model = DefaultAdvisorModel
	}
	return &Advisor{models: models, model: model}
}

func (a *Advisor) Enabled() bool { return a != nil && a.models != nil }

// Advise sends the month's figures and returns the model's answer.
func (a *Advisor) Advise(ctx context.Context, snap insights.Snapshot) (string, error) {
	if !a.Enabled() {
		return "", ErrAdvisorDisabled
	}
	resp, err := a.models.GenerateContent(ctx, a.model, genai.Text(AdvicePrompt(snap)), nil)
	if err != nil {
		return "", fmt.Errorf("generate advice: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("generate advice: empty response from model")
	}
	slog.InfoContext(ctx, "Advice generated", "month", snap.Month, "model", a.model, "chars", len(text))
	return text, nil
}

// AdvicePrompt describes income, fixed costs, the month's variable spending
// per category and the savings target.
func AdvicePrompt(snap insights.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I have a monthly income of %s and fixed expenses of %s.\n",
		insights.FormatCurrency(snap.Income), insights.FormatCurrency(snap.FixedTotal))

	if len(snap.Breakdown) == 0 {
		fmt.Fprintf(&b, "I have no variable expenses recorded for %s.\n", snap.Month)
	} else {
		parts := make([]string, 0, len(snap.Breakdown))
		for _, c := range snap.Breakdown {
			parts = append(parts, c.Category+": "+insights.FormatCurrency(c.Amount))
		}
		fmt.Fprintf(&b, "My variable expenses for %s are %s.\n", snap.Month, strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, "My target savings per month are %s.\n", insights.FormatCurrency(snap.BudgetGoal))
	b.WriteString("Give me short, practical advice on how to reach my savings target this month.")
	return b.String()
}
