package ranking

import (
	"math"
	"time"

	"github.com/onnwee/forkful/internal/food"
)

// Recency curve breakpoints, in whole days since the newest review.
const (
	recencyFirstStageDays  = 30
	recencySecondStageDays = 90

	recencyNeutral = 0.5
	recencyFloor   = 0.1
)

// Preference sub-score weights. Dietary matches count for more than cuisine
// overlap because dietary tags are constraints.
const (
	cuisinePreferenceWeight = 1.0
	dietaryPreferenceWeight = 1.5
	pricePreferenceWeight   = 1.0

	preferenceNeutral = 0.5
)

// UserPreferences is the caller-supplied preference state for one search.
type UserPreferences struct {
	Cuisines    []string `json:"cuisines,omitempty"`
	Dietary     []string `json:"dietary,omitempty"`
	PriceLevels []int    `json:"price_range,omitempty"`
}

// Components holds the four normalized ranking signals of one item.
type Components struct {
	Rating      float64 `json:"rating"`
	ReviewCount float64 `json:"review_count"`
	Recency     float64 `json:"recency"`
	Preference  float64 `json:"preference"`
}

// Score combines the components with the given weights (defaults if nil).
func (c Components) Score(weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	return c.Rating*weights.AvgRating +
		c.ReviewCount*weights.ReviewCount +
		c.Recency*weights.Recency +
		c.Preference*weights.UserPreference
}

// RatingComponent maps an average rating on the 0-5 scale to [0, 1].
func RatingComponent(average float64) float64 {
	return clamp01(average / 5)
}

// ReviewCountComponent applies a logarithmic diminishing-returns curve to the
// review count. Zero reviews score 0; 99 reviews reach the cap of 1.
func ReviewCountComponent(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(math.Log10(float64(count+1))/2, 1)
}

// RecencyComponent scores how recently the item was last reviewed.
//
// Formula, with d the whole days elapsed since newest:
//   - d <= 0 (today or in the future): 1.0
//   - 0 < d <= 30: 1.0 - 0.5 * d/30
//   - 30 < d <= 90: 0.5 - 0.4 * (d-30)/60
//   - d > 90: 0.1
//
// A nil newest returns the neutral 0.5.
func RecencyComponent(newest *time.Time, now time.Time) float64 {
	if newest == nil {
		return recencyNeutral
	}

	days := math.Floor(now.Sub(*newest).Hours() / 24)
	switch {
	case days <= 0:
		return 1.0
	case days <= recencyFirstStageDays:
		return 1.0 - (1.0-recencyNeutral)*days/recencyFirstStageDays
	case days <= recencySecondStageDays:
		span := float64(recencySecondStageDays - recencyFirstStageDays)
		return recencyNeutral - (recencyNeutral-recencyFloor)*(days-recencyFirstStageDays)/span
	default:
		return recencyFloor
	}
}

// PreferenceComponent scores how well an item matches the user's stated
// preferences. Each sub-score counts only when the user stated that kind of
// preference and the item carries that kind of data:
//   - cuisine: fraction of preferred cuisines found on the item (weight 1)
//   - dietary: 1 if every preferred dietary tag is on the item, else 0 (weight 1.5)
//   - price: 1 if the item's price level is preferred, else 0 (weight 1)
//
// Returns the weighted mean of the applicable sub-scores, or 0.5 if none apply.
func PreferenceComponent(item *food.FoodItem, prefs UserPreferences) float64 {
	var total, weightSum float64

	if len(prefs.Cuisines) > 0 && len(item.CuisineTypes) > 0 {
		tags := tagSet(item.CuisineTypes)
		matched := 0
		for _, c := range prefs.Cuisines {
			if tags[food.NormalizeTag(c)] {
				matched++
			}
		}
		total += cuisinePreferenceWeight * float64(matched) / float64(len(prefs.Cuisines))
		weightSum += cuisinePreferenceWeight
	}

	if len(prefs.Dietary) > 0 && len(item.DietaryTags) > 0 {
		tags := tagSet(item.DietaryTags)
		all := 1.0
		for _, d := range prefs.Dietary {
			if !tags[food.NormalizeTag(d)] {
				all = 0
				break
			}
		}
		total += dietaryPreferenceWeight * all
		weightSum += dietaryPreferenceWeight
	}

	if level := item.PriceLevel(); len(prefs.PriceLevels) > 0 && level > 0 {
		hit := 0.0
		for _, p := range prefs.PriceLevels {
			if p == level {
				hit = 1
				break
			}
		}
		total += pricePreferenceWeight * hit
		weightSum += pricePreferenceWeight
	}

	if weightSum == 0 {
		return preferenceNeutral
	}
	return total / weightSum
}

// CalculateComponents computes every ranking signal for an item.
// A nil rating is treated as an item with no reviews.
func CalculateComponents(item *food.FoodItem, rating *RatingData, prefs UserPreferences, now time.Time) Components {
	if rating == nil {
		rating = &RatingData{}
	}
	return Components{
		Rating:      RatingComponent(rating.Average),
		ReviewCount: ReviewCountComponent(rating.Count),
		Recency:     RecencyComponent(rating.NewestReview, now),
		Preference:  PreferenceComponent(item, prefs),
	}
}

// CalculateRankingScore returns the weighted ranking score of an item.
//
// Default formula: score = (rating * 0.5) + (review_count * 0.3) + (recency * 0.1) + (preference * 0.1)
//
// With the default weights the score is always in [0, 1].
func CalculateRankingScore(item *food.FoodItem, rating *RatingData, prefs UserPreferences, weights *Weights, now time.Time) float64 {
	return CalculateComponents(item, rating, prefs, now).Score(weights)
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[food.NormalizeTag(t)] = true
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
