package prompt

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single char rounds up", "a", 1},
		{"exact multiple", "abcd", 1},
		{"one over rounds up", "abcde", 2},
		{"hundred tokens", strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%q len %d) = %d, want %d", tt.name, len(tt.text), got, tt.want)
			}
		})
	}
}

func TestFitToBudgetKeepsWholeThenTruncates(t *testing.T) {
	// A is 100 tokens, B is 100 tokens, budget is 150: A survives whole, B is
	// truncated to fill the remainder, marker included in the estimate.
	a := Section{Content: strings.Repeat("a", 400)}
	b := Section{Content: strings.Repeat("b", 400)}

	fitted, err := FitToBudget([]Section{a, b}, 150)
	if err != nil {
		t.Fatalf("FitToBudget() error = %v", err)
	}
	if len(fitted) != 2 {
		t.Fatalf("len(fitted) = %d, want 2", len(fitted))
	}
	if fitted[0].Content != a.Content {
		t.Error("first section should be kept whole")
	}
	if !strings.HasSuffix(fitted[1].Content, TruncationMarker) {
		t.Error("truncated section should end with the marker")
	}
	if fitted[1].EstimatedTokens() > 50 {
		t.Errorf("truncated section estimates %d tokens, want <= 50", fitted[1].EstimatedTokens())
	}
	if !strings.HasPrefix(fitted[1].Content, "bb") {
		t.Error("truncated section should retain a prefix of the original content")
	}
}

func TestFitToBudgetDropsSectionsAfterOverflow(t *testing.T) {
	sections := []Section{
		{Title: "first", Content: strings.Repeat("a", 400)},
		{Title: "second", Content: strings.Repeat("b", 4000)},
		{Title: "third", Content: "short"},
	}

	fitted, err := FitToBudget(sections, 200)
	if err != nil {
		t.Fatalf("FitToBudget() error = %v", err)
	}
	for _, s := range fitted {
		if s.Title == "third" {
			t.Error("sections after the overflow point must be dropped even when they would fit")
		}
	}
}

func TestFitToBudgetDropsTooSmallRemainder(t *testing.T) {
	// The remainder cannot hold the marker plus any content, so the second
	// section is dropped outright rather than reduced to a bare marker.
	a := Section{Content: strings.Repeat("a", 400)}
	b := Section{Content: strings.Repeat("b", 400)}

	fitted, err := FitToBudget([]Section{a, b}, 105)
	if err != nil {
		t.Fatalf("FitToBudget() error = %v", err)
	}
	if len(fitted) != 1 {
		t.Fatalf("len(fitted) = %d, want 1", len(fitted))
	}
}

func TestFitToBudgetAllFit(t *testing.T) {
	sections := []Section{
		{Title: "a", Content: "alpha"},
		{Title: "b", Content: "beta"},
	}
	fitted, err := FitToBudget(sections, 1000)
	if err != nil {
		t.Fatalf("FitToBudget() error = %v", err)
	}
	if len(fitted) != len(sections) {
		t.Fatalf("len(fitted) = %d, want %d", len(fitted), len(sections))
	}
	for i := range sections {
		if fitted[i] != sections[i] {
			t.Errorf("section %d modified despite fitting", i)
		}
	}
}

func TestFitToBudgetTruncatesOnRuneBoundary(t *testing.T) {
	// Three-byte runes with an allowance whose character count is not a
	// multiple of three: the cut must back off to a rune boundary instead
	// of emitting a broken sequence.
	content := strings.Repeat("日", 100)
	markerTokens := EstimateTokens(TruncationMarker)
	budget := EstimateTokens("T") + markerTokens + 19 // 19 tokens = 76 chars, mid-rune

	fitted, err := FitToBudget([]Section{{Title: "T", Content: content}}, budget)
	if err != nil {
		t.Fatalf("FitToBudget() error = %v", err)
	}
	if len(fitted) != 1 {
		t.Fatalf("len(fitted) = %d, want 1", len(fitted))
	}
	if !utf8.ValidString(fitted[0].Content) {
		t.Error("truncated content contains an invalid UTF-8 sequence")
	}
	kept := strings.TrimSuffix(fitted[0].Content, TruncationMarker)
	if !strings.HasPrefix(content, kept) {
		t.Error("truncated content should be a prefix of the original")
	}
}

func TestFitToBudgetRejectsNonPositiveBudget(t *testing.T) {
	for _, budget := range []int{0, -1} {
		if _, err := FitToBudget([]Section{{Content: "x"}}, budget); !errors.Is(err, ErrInvalidBudget) {
			t.Errorf("budget %d: error = %v, want ErrInvalidBudget", budget, err)
		}
	}
}

func TestFitToBudgetDoesNotMutateInput(t *testing.T) {
	original := strings.Repeat("b", 400)
	sections := []Section{
		{Content: strings.Repeat("a", 400)},
		{Content: original},
	}
	if _, err := FitToBudget(sections, 150); err != nil {
		t.Fatalf("FitToBudget() error = %v", err)
	}
	if sections[1].Content != original {
		t.Error("input sections must not be mutated")
	}
}
