package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

type stubGenerator struct {
	tip   string
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.tip, s.err
}

func TestTipReturnsModelText(t *testing.T) {
	gen := &stubGenerator{tip: "Cook at home twice a week."}
	svc := NewService(gen, time.Hour)

	got := svc.Tip(context.Background(), "owner-1", nil)
	if got != gen.tip {
		t.Fatalf("Tip = %q, want %q", got, gen.tip)
	}
}

func TestTipFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	svc := NewService(gen, time.Hour)

	if got := svc.Tip(context.Background(), "owner-1", nil); got != FallbackTip {
		t.Fatalf("Tip = %q, want fallback", got)
	}
}

func TestTipFallsBackOnEmptyResponse(t *testing.T) {
	gen := &stubGenerator{tip: "   \n"}
	svc := NewService(gen, time.Hour)

	if got := svc.Tip(context.Background(), "owner-1", nil); got != FallbackTip {
		t.Fatalf("Tip = %q, want fallback", got)
	}
}

func TestTipCachesPerOwner(t *testing.T) {
	gen := &stubGenerator{tip: "Set a weekly grocery cap."}
	svc := NewService(gen, time.Hour)
	ctx := context.Background()

	svc.Tip(ctx, "owner-1", nil)
	svc.Tip(ctx, "owner-1", nil)
	if gen.calls != 1 {
		t.Fatalf("generator called %d times for one owner, want 1", gen.calls)
	}

	svc.Tip(ctx, "owner-2", nil)
	if gen.calls != 2 {
		t.Fatalf("second owner must miss the cache, calls = %d", gen.calls)
	}
}

func TestTipCacheHonorsConfiguredTTL(t *testing.T) {
	gen := &stubGenerator{tip: "Review subscriptions quarterly."}
	svc := NewService(gen, 10*time.Millisecond)
	ctx := context.Background()

	svc.Tip(ctx, "owner-1", nil)
	time.Sleep(25 * time.Millisecond)
	svc.Tip(ctx, "owner-1", nil)
	if gen.calls != 2 {
		t.Fatalf("generator called %d times across the TTL boundary, want 2", gen.calls)
	}
}

func TestFallbackIsNeverCached(t *testing.T) {
	gen := &stubGenerator{err: errors.New("down")}
	svc := NewService(gen, time.Hour)
	ctx := context.Background()

	svc.Tip(ctx, "owner-1", nil)
	gen.err = nil
	gen.tip = "Recovered advice."

	if got := svc.Tip(ctx, "owner-1", nil); got != "Recovered advice." {
		t.Fatalf("Tip = %q, want retry after failure", got)
	}
}

func TestBuildPromptEmbedsExpenses(t *testing.T) {
	expenses := []core.Expense{{
		Description: "Groceries",
		Amount:      decimal.RequireFromString("42.00"),
		Date:        core.NewDate(2026, 8, 1),
		Category:    core.Category{ID: "c1", Name: "Food"},
	}}

	prompt := buildPrompt(expenses)
	for _, want := range []string{"2026-08-01", "Groceries", "Food", "42.00"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptTruncatesHistory(t *testing.T) {
	expenses := make([]core.Expense, maxPromptExpenses+10)
	for i := range expenses {
		expenses[i] = core.Expense{
			Description: "item",
			Amount:      decimal.NewFromInt(1),
			Date:        core.NewDate(2026, 1, 1),
		}
	}

	prompt := buildPrompt(expenses)
	if got := strings.Count(prompt, "\n- "); got > maxPromptExpenses {
		t.Fatalf("prompt embeds %d expenses, cap is %d", got, maxPromptExpenses)
	}
}
