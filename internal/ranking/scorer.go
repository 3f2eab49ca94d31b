package ranking

import "github.com/hyperjump/shiori/internal/models"

// Score weights.
const (
	WeightedHitScore = 10
	PlainHitScore    = 1
	ExactMatchBonus  = 2
)

// PositionClassifier tells whether a match location carries structural weight,
// e.g. because it lies inside a heading.
type PositionClassifier interface {
	IsStructurallyWeighted(docID string, offset int) bool
}

// Score sums the relevance of every match in unit. There is no normalisation
// by document length, so documents with many or weighted hits win.
func Score(unit models.SearchUnit, classifier PositionClassifier) int {
	score := 0
	for _, pos := range unit.Positions {
		if classifier != nil && classifier.IsStructurallyWeighted(unit.ID, pos.Offset) {
			score += WeightedHitScore
		} else {
			score += PlainHitScore
		}
		if !pos.Stemmed {
			score += ExactMatchBonus
		}
	}
	return score
}

// ScoreUnits returns scored copies of units. The input slice is not modified;
// the copies share the read-only Positions slices.
func ScoreUnits(units []models.SearchUnit, classifier PositionClassifier) []models.SearchUnit {
	scored := make([]models.SearchUnit, len(units))
	for i, unit := range units {
		unit.Score = Score(unit, classifier)
		scored[i] = unit
	}
	return scored
}
