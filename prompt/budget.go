package prompt

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// TruncationMarker is appended to a section cut to fit the budget, so both
// the model and anyone reading a transcript can see content was elided.
const TruncationMarker = "\n[... truncated to fit context budget ...]"

// ErrInvalidBudget is returned when FitToBudget is given a non-positive
// budget.
var ErrInvalidBudget = errors.New("token budget must be positive")

// Section is one titled block of prompt content.
type Section struct {
	Title   string
	Content string
}

// EstimatedTokens returns the section's token estimate, title included.
func (s Section) EstimatedTokens() int {
	return EstimateTokens(s.Title) + EstimateTokens(s.Content)
}

// FitToBudget selects and trims sections, in order, to fit within budget
// tokens. Sections are assumed to be ordered most-important-first: earlier
// sections are kept whole while the budget lasts, the first section that
// would overflow is truncated with TruncationMarker, and later sections are
// dropped entirely. A section whose remaining allowance cannot hold the
// marker plus any content is dropped rather than reduced to a bare marker.
func FitToBudget(sections []Section, budget int) ([]Section, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("fit sections: %w: %d", ErrInvalidBudget, budget)
	}

	var fitted []Section
	remaining := budget
	for _, s := range sections {
		need := s.EstimatedTokens()
		if need <= remaining {
			fitted = append(fitted, s)
			remaining -= need
			continue
		}

		// First overflowing section: truncate it if a meaningful slice fits.
		markerTokens := EstimateTokens(TruncationMarker)
		allowance := remaining - EstimateTokens(s.Title) - markerTokens
		if allowance > 0 {
			keep := TokensToChars(allowance)
			if keep > len(s.Content) {
				keep = len(s.Content)
			}
			// Never cut inside a multi-byte rune.
			for keep > 0 && keep < len(s.Content) && !utf8.RuneStart(s.Content[keep]) {
				keep--
			}
			fitted = append(fitted, Section{
				Title:   s.Title,
				Content: s.Content[:keep] + TruncationMarker,
			})
		}
		// Everything after the overflow point is dropped.
		break
	}
	return fitted, nil
}
