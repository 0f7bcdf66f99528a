package search

import (
	"fmt"
	"sort"
	"strings"
)

// SortMethod selects the order of full search results.
type SortMethod string

const (
	SortBestMatch    SortMethod = "best_match"
	SortHighestRated SortMethod = "highest_rated"
	SortMostReviewed SortMethod = "most_reviewed"
	SortNewest       SortMethod = "newest"
)

// ParseSortMethod parses a sort method name case-insensitively.
// An empty name selects SortBestMatch.
func ParseSortMethod(s string) (SortMethod, error) {
	switch m := SortMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortBestMatch, nil
	case SortBestMatch, SortHighestRated, SortMostReviewed, SortNewest:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortMethod, s)
	}
}

// SortResults orders items in place. Every method is stable, so ties keep
// their input order. Unknown methods fall back to SortBestMatch.
func SortResults(items []*ScoredFoodItem, method SortMethod) {
	var less func(a, b *ScoredFoodItem) bool

	switch method {
	case SortHighestRated:
		less = func(a, b *ScoredFoodItem) bool {
			if a.Rating.Average != b.Rating.Average {
				return a.Rating.Average > b.Rating.Average
			}
			return a.Rating.Count > b.Rating.Count
		}
	case SortMostReviewed:
		less = func(a, b *ScoredFoodItem) bool {
			return a.Rating.Count > b.Rating.Count
		}
	case SortNewest:
		less = func(a, b *ScoredFoodItem) bool {
			return newestUnix(a) > newestUnix(b)
		}
	default:
		less = func(a, b *ScoredFoodItem) bool {
			return a.Score > b.Score
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
}

// newestUnix returns the newest review time in nanoseconds, with items that
// have no reviews at the Unix epoch.
func newestUnix(item *ScoredFoodItem) int64 {
	if item.Rating.NewestReview == nil {
		return 0
	}
	return item.Rating.NewestReview.UnixNano()
}
