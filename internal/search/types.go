package search

import (
	"encoding/json"
	"math"

	"github.com/onnwee/forkful/internal/food"
	"github.com/onnwee/forkful/internal/ranking"
)

// Paging defaults.
const (
	DefaultPageSize   = 20
	MaxPageSize       = 100
	PredictiveLimit   = 10
	PredictiveMinRune = 2
)

// MaxPage returns the largest page whose offset page*pageSize fits in an int.
func MaxPage(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (math.MaxInt - pageSize) / pageSize
}

// FilterOptions holds the structured filters of one search. Nil or empty
// fields mean "no constraint of this kind".
type FilterOptions struct {
	PriceLevels      []int          `json:"price_range,omitempty"`
	MaxDistance      *float64       `json:"max_distance,omitempty"`
	UserLocation     *food.Location `json:"user_location,omitempty"`
	SelectedCuisines []string       `json:"selected_cuisines,omitempty"`
	SelectedDietary  []string       `json:"selected_dietary,omitempty"`
	SortBy           SortMethod     `json:"sort_by,omitempty"`
}

// distanceActive reports whether both a radius and a user location are set.
func (f *FilterOptions) distanceActive() bool {
	return f != nil && f.MaxDistance != nil && f.UserLocation != nil
}

// preferences derives ranking preferences from the filter selection.
func (f *FilterOptions) preferences() ranking.UserPreferences {
	if f == nil {
		return ranking.UserPreferences{}
	}
	return ranking.UserPreferences{
		Cuisines:    f.SelectedCuisines,
		Dietary:     f.SelectedDietary,
		PriceLevels: f.PriceLevels,
	}
}

// SearchRequest is the input of Engine.Search.
type SearchRequest struct {
	Keyword    string
	Filters    *FilterOptions
	Predictive bool

	// Page is 0-based. PageSize defaults to DefaultPageSize.
	Page     int
	PageSize int

	// Preferences overrides the preferences derived from Filters.
	Preferences *ranking.UserPreferences
}

// ScoredFoodItem is a food item annotated for one search call.
type ScoredFoodItem struct {
	*food.FoodItem

	Score         float64             `json:"ranking_score"`
	Components    *ranking.Components `json:"score_components,omitempty"`
	Rating        ranking.RatingData  `json:"rating"`
	DistanceMiles *float64            `json:"distance_miles,omitempty"`
	Geohash       string              `json:"geohash,omitempty"`
}

// UnmarshalJSON decodes the item and its annotations. It is needed because
// the embedded *food.FoodItem's decoder would otherwise be promoted and
// called on a nil pointer.
func (s *ScoredFoodItem) UnmarshalJSON(data []byte) error {
	item := &food.FoodItem{}
	if err := json.Unmarshal(data, item); err != nil {
		return err
	}
	var annotations struct {
		Score         float64             `json:"ranking_score"`
		Components    *ranking.Components `json:"score_components"`
		Rating        ranking.RatingData  `json:"rating"`
		DistanceMiles *float64            `json:"distance_miles"`
		Geohash       string              `json:"geohash"`
	}
	if err := json.Unmarshal(data, &annotations); err != nil {
		return err
	}
	*s = ScoredFoodItem{
		FoodItem:      item,
		Score:         annotations.Score,
		Components:    annotations.Components,
		Rating:        annotations.Rating,
		DistanceMiles: annotations.DistanceMiles,
		Geohash:       annotations.Geohash,
	}
	return nil
}

// SearchResponse is the output of Engine.Search.
type SearchResponse struct {
	Results []*ScoredFoodItem `json:"results"`

	// HasMore is true when the raw candidate window was full. It is an
	// approximate "there might be more" signal.
	HasMore bool `json:"has_more"`

	// Partial is true when a dependent fetch failed and the results may be
	// incomplete.
	Partial bool `json:"partial"`

	// Sequence orders responses of one engine. See Sequencer.
	Sequence uint64 `json:"sequence"`
}
