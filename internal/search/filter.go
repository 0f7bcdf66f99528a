package search

import (
	"strings"

	"github.com/onnwee/forkful/internal/food"
	"github.com/onnwee/forkful/internal/geo"
)

// TagMatch reports whether a selected tag matches an item tag. Both are
// normalized first. With fuzzy on, either one containing the other also
// matches, so "thai" matches "thai fusion".
func TagMatch(selected, tag string, fuzzy bool) bool {
	s, t := food.NormalizeTag(selected), food.NormalizeTag(tag)
	if s == "" || t == "" {
		return false
	}
	if s == t {
		return true
	}
	return fuzzy && (strings.Contains(t, s) || strings.Contains(s, t))
}

func anyTagMatches(selected string, tags []string, fuzzy bool) bool {
	for _, tag := range tags {
		if TagMatch(selected, tag, fuzzy) {
			return true
		}
	}
	return false
}

// MatchesCuisine passes an item if any selected cuisine matches one of its
// cuisine tags. An empty selection passes everything.
func MatchesCuisine(item *food.FoodItem, selected []string, fuzzy bool) bool {
	if len(selected) == 0 {
		return true
	}
	for _, c := range selected {
		if anyTagMatches(c, item.CuisineTypes, fuzzy) {
			return true
		}
	}
	return false
}

// MatchesDietary passes an item only if every selected dietary tag matches
// one of its dietary tags. An empty selection passes everything.
func MatchesDietary(item *food.FoodItem, selected []string, fuzzy bool) bool {
	for _, d := range selected {
		if !anyTagMatches(d, item.DietaryTags, fuzzy) {
			return false
		}
	}
	return true
}

// locationIndex maps restaurant names to coordinates. When several
// restaurants share a name the first one with coordinates wins.
func locationIndex(restaurants []*food.Restaurant) map[string]food.Location {
	idx := make(map[string]food.Location, len(restaurants))
	for _, r := range restaurants {
		if _, seen := idx[r.Name]; seen {
			continue
		}
		if loc, ok := r.Location(); ok {
			idx[r.Name] = loc
		}
	}
	return idx
}

// filterByDistance keeps items whose restaurant lies within maxMiles of
// origin and annotates them with their distance and geohash. Items whose
// restaurant is unknown or has no coordinates are dropped.
func filterByDistance(items []*ScoredFoodItem, locations map[string]food.Location, origin food.Location, maxMiles float64) []*ScoredFoodItem {
	kept := make([]*ScoredFoodItem, 0, len(items))
	for _, item := range items {
		loc, ok := locations[item.RestaurantName]
		if !ok {
			continue
		}
		d := geo.CalculateDistance(origin.Latitude, origin.Longitude, loc.Latitude, loc.Longitude)
		if d > maxMiles {
			continue
		}
		item.DistanceMiles = &d
		item.Geohash = geo.Encode(loc.Latitude, loc.Longitude, geo.DefaultPrecision)
		kept = append(kept, item)
	}
	return kept
}

// restaurantNames returns the distinct restaurant names of items in first-seen order.
func restaurantNames(items []*ScoredFoodItem) []string {
	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item.RestaurantName] {
			continue
		}
		seen[item.RestaurantName] = true
		names = append(names, item.RestaurantName)
	}
	return names
}
