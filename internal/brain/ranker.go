package brain

import "replyloop.app/insight/internal/model"

// Rank returns the index of the best suggestion by combined score. Ties go
// to the earliest input position, so ranking is deterministic for equal
// inputs. Returns -1 for an empty slice.
func Rank(suggestions []*model.ReplySuggestion) int {
	best := -1
	var bestScore float64
	for i, s := range suggestions {
		score := s.CombinedScore()
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
