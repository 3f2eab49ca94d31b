// Package ranking scores matched documents and orders them by relevance.
package ranking

import (
	"sort"

	"github.com/hyperjump/shiori/internal/models"
)

// Rank returns units ordered by score, highest first. Units with equal scores
// keep the order the engine produced them in.
func Rank(units []models.SearchUnit) []models.SearchUnit {
	ranked := make([]models.SearchUnit, len(units))
	copy(ranked, units)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// ScoreAndRank scores units with classifier and ranks the result.
func ScoreAndRank(units []models.SearchUnit, classifier PositionClassifier) []models.SearchUnit {
	return Rank(ScoreUnits(units, classifier))
}
