// Package food provides the catalog models and store implementations for
// food items, their parent restaurants, and reviews.
package food

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// PriceSymbol is the character repeated to render a price level.
const PriceSymbol = "$"

// Price level bounds.
const (
	MinPriceLevel = 1
	MaxPriceLevel = 4
)

var (
	// ErrInvalidPriceLevel is returned when a price level is outside 1-4.
	ErrInvalidPriceLevel = errors.New("price level must be between 1 and 4")

	// ErrInvalidPriceSymbol is returned when a price string is not a run of 1-4 symbols.
	ErrInvalidPriceSymbol = errors.New("price range must be 1 to 4 '$' characters")
)

// Location is a geographic coordinate in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FoodItem is a catalog entry. Items are immutable from the search engine's
// point of view; the store owns them.
type FoodItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"food_name"`
	RestaurantName string   `json:"restaurant_name"`
	Photos         []string `json:"photos,omitempty"`
	PriceRange     string   `json:"price_range"`
	CuisineTypes   []string `json:"cuisine_type,omitempty"`
	DietaryTags    []string `json:"dietary_tags,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// UnmarshalJSON accepts tag fields encoded either as a single string or a list.
func (f *FoodItem) UnmarshalJSON(data []byte) error {
	type alias FoodItem
	var raw struct {
		alias
		CuisineTypes any `json:"cuisine_type"`
		DietaryTags  any `json:"dietary_tags"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FoodItem(raw.alias)
	f.CuisineTypes = NormalizeTags(raw.CuisineTypes)
	f.DietaryTags = NormalizeTags(raw.DietaryTags)
	return nil
}

// PriceLevel returns the ordinal price level of the item, or 0 if its
// price string is malformed.
func (f *FoodItem) PriceLevel() int {
	level, err := PriceLevel(f.PriceRange)
	if err != nil {
		return 0
	}
	return level
}

// Restaurant is the parent of food items. Coordinates are optional.
type Restaurant struct {
	Name      string   `json:"restaurant_name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Location returns the restaurant coordinates, or false if either is missing.
func (r *Restaurant) Location() (Location, bool) {
	if r == nil || r.Latitude == nil || r.Longitude == nil {
		return Location{}, false
	}
	return Location{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

// Review is a single rating left on a food item.
type Review struct {
	FoodItemID string    `json:"food_item_id"`
	Rating     float64   `json:"rating"`
	ReviewDate time.Time `json:"review_date"`
}

// PriceSymbolFor converts a price level (1-4) into its symbol run.
func PriceSymbolFor(level int) (string, error) {
	if level < MinPriceLevel || level > MaxPriceLevel {
		return "", ErrInvalidPriceLevel
	}
	return strings.Repeat(PriceSymbol, level), nil
}

// PriceLevel converts a symbol run back into its ordinal level.
func PriceLevel(symbol string) (int, error) {
	n := len(symbol)
	if n < MinPriceLevel || n > MaxPriceLevel {
		return 0, ErrInvalidPriceSymbol
	}
	if strings.Trim(symbol, PriceSymbol) != "" {
		return 0, ErrInvalidPriceSymbol
	}
	return n, nil
}
