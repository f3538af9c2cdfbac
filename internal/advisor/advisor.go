// Package advisor produces short spending tips from an external generative
// model. The boundary is deliberately thin: one prompt in, free text out, and
// any failure collapses to a fixed fallback message.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
)

// FallbackTip is returned whenever the model call fails or produces nothing.
// Callers never see a raw provider error.
const FallbackTip = "Track your spending consistently and review your top categories each month to find easy savings."

const (
	maxPromptExpenses = 50
	generateTimeout   = 15 * time.Second
	tipCacheSize      = 256
)

// Generator is the single call the external model must support.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service wraps a Generator with per-owner caching so a dashboard remount
// does not re-bill the external API.
type Service struct {
	gen  Generator
	tips *cache.LRU[string]
}

// NewService builds a Service whose cached tips expire after ttl.
func NewService(gen Generator, ttl time.Duration) *Service {
	return &Service{
		gen:  gen,
		tips: cache.NewLRU[string](tipCacheSize, ttl),
	}
}

// Cache exposes the tip cache for janitor registration.
func (s *Service) Cache() cache.Cleaner {
	return s.tips
}

// Tip returns one piece of advice grounded in the owner's recent expenses.
// Errors are logged and swallowed into FallbackTip; the fallback is never
// cached so the next request retries the model.
func (s *Service) Tip(ctx context.Context, ownerID string, expenses []core.Expense) string {
	if tip, ok := s.tips.Get(ownerID); ok {
		return tip
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	tip, err := s.gen.Generate(ctx, buildPrompt(expenses))
	tip = strings.TrimSpace(tip)
	if err != nil || tip == "" {
		slog.WarnContext(ctx, "Tip generation failed, serving fallback",
			"owner_id", ownerID, "error", err)
		return FallbackTip
	}

	s.tips.Set(ownerID, tip)
	return tip
}

// buildPrompt serializes at most maxPromptExpenses recent expenses into the
// instruction. No per-field schema: the model gets plain lines.
func buildPrompt(expenses []core.Expense) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. ")
	b.WriteString("Given the expenses below, give one short, concrete saving tip (max two sentences, plain text).\n\n")

	if len(expenses) == 0 {
		b.WriteString("No expenses recorded yet.\n")
		return b.String()
	}
	if len(expenses) > maxPromptExpenses {
		expenses = expenses[len(expenses)-maxPromptExpenses:]
	}
	for _, e := range expenses {
		fmt.Fprintf(&b, "- %s | %s | %s | %s\n",
			e.Date.String(), e.Description, e.DisplayCategory().Name, core.FormatAmount(e.Amount))
	}
	return b.String()
}
