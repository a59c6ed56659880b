package service

import (
	"math"
	"sort"

	"github.com/noah-isme/coursework-engine/internal/models"
)

func median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	middle := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[middle])
	}
	return float64(sorted[middle-1]+sorted[middle]) / 2
}

// ConsensusScore is the median of the rater scores rounded up. It is 0 for
// no ratings; callers fall back to the criterion default in that case.
func ConsensusScore(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	return int(math.Ceil(median(ratings)))
}

// CriteriaDefaultScore is the median of the option scores rounded up.
func CriteriaDefaultScore(options []models.CriteriaOption) int {
	scores := make([]int, len(options))
	for i, option := range options {
		scores[i] = option.Score
	}
	return ConsensusScore(scores)
}

// ResponseScore sums the scores of the options selected by a comma separated
// list of 1-based indices. Indices outside the option list are ignored; ok is
// false when nothing valid was selected.
func ResponseScore(options []models.CriteriaOption, answer string) (int, bool) {
	total := 0
	selected := 0
	for index := range models.ParseIndexSet(answer) {
		if index < 1 || index > len(options) {
			continue
		}
		total += options[index-1].Score
		selected++
	}
	return total, selected > 0
}
