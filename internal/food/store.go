package food

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// ColumnSet selects which item columns a query should populate.
type ColumnSet int

const (
	// ColumnsAll loads every item column.
	ColumnsAll ColumnSet = iota
	// ColumnsSuggestion loads only id, name, restaurant name, photos and price.
	ColumnsSuggestion
)

// ErrNilFixture is returned when seeding is attempted without data.
var ErrNilFixture = errors.New("fixture is required")

// CatalogQuery describes a windowed candidate query.
type CatalogQuery struct {
	// Keyword is matched case-insensitively as a substring of name,
	// description, restaurant name, and any cuisine or dietary tag.
	// It must already be sanitized. Empty matches everything.
	Keyword string

	// PriceSymbols restricts results to items whose price range is one of these.
	PriceSymbols []string

	Offset  int
	Limit   int
	Columns ColumnSet
}

// CatalogStore is the read contract the search engine needs from the
// catalog, review and restaurant tables. Results are ordered by id ascending.
type CatalogStore interface {
	// QueryItems returns one window of candidate items.
	QueryItems(ctx context.Context, q CatalogQuery) ([]*FoodItem, error)

	// RestaurantsByName returns restaurants whose name is in names.
	RestaurantsByName(ctx context.Context, names []string) ([]*Restaurant, error)

	// ReviewsForItems returns every review for the given item ids.
	ReviewsForItems(ctx context.Context, itemIDs []string) ([]*Review, error)
}

// Seeder loads fixture data into a store.
type Seeder interface {
	Seed(ctx context.Context, fixture *Fixture) error
}

// Fixture is a bulk catalog snapshot used for seeding stores.
type Fixture struct {
	Restaurants []*Restaurant `json:"restaurants"`
	Items       []*FoodItem   `json:"food_items"`
	Reviews     []*Review     `json:"reviews"`
}

// LoadFixture reads a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &fixture, nil
}

// MatchesKeyword reports whether keyword is a case-insensitive substring of
// the item's name, description, restaurant name, or any of its tags.
// An empty keyword matches every item.
func MatchesKeyword(item *FoodItem, keyword string) bool {
	if keyword == "" {
		return true
	}
	k := strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(item.Name), k) ||
		strings.Contains(strings.ToLower(item.Description), k) ||
		strings.Contains(strings.ToLower(item.RestaurantName), k) {
		return true
	}
	for _, tag := range item.CuisineTypes {
		if strings.Contains(strings.ToLower(tag), k) {
			return true
		}
	}
	for _, tag := range item.DietaryTags {
		if strings.Contains(strings.ToLower(tag), k) {
			return true
		}
	}
	return false
}

// InMemoryStore is an in-memory implementation of CatalogStore.
// Used for testing and development.
type InMemoryStore struct {
	mu          sync.RWMutex
	items       map[string]*FoodItem
	restaurants []*Restaurant
	reviews     []*Review
}

// NewInMemoryStore creates a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]*FoodItem),
	}
}

// Seed appends the fixture contents to the store.
func (s *InMemoryStore) Seed(ctx context.Context, fixture *Fixture) error {
	if fixture == nil {
		return ErrNilFixture
	}
	for _, r := range fixture.Restaurants {
		s.AddRestaurant(r)
	}
	for _, item := range fixture.Items {
		s.AddItem(item)
	}
	for _, review := range fixture.Reviews {
		s.AddReview(review)
	}
	return nil
}

// AddItem stores a copy of item, keyed by its id.
func (s *InMemoryStore) AddItem(item *FoodItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = copyItem(item)
}

// AddRestaurant stores a copy of r.
func (s *InMemoryStore) AddRestaurant(r *Restaurant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc := *r
	s.restaurants = append(s.restaurants, &rc)
}

// AddReview stores a copy of review.
func (s *InMemoryStore) AddReview(review *Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc := *review
	s.reviews = append(s.reviews, &rc)
}

// QueryItems implements CatalogStore.
func (s *InMemoryStore) QueryItems(ctx context.Context, q CatalogQuery) ([]*FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]bool, len(q.PriceSymbols))
	for _, p := range q.PriceSymbols {
		prices[p] = true
	}

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matched []*FoodItem
	for _, id := range ids {
		item := s.items[id]
		if len(prices) > 0 && !prices[item.PriceRange] {
			continue
		}
		if !MatchesKeyword(item, q.Keyword) {
			continue
		}
		matched = append(matched, item)
	}

	offset := max(q.Offset, 0)
	if offset >= len(matched) {
		return []*FoodItem{}, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Limit < end-offset {
		end = offset + q.Limit
	}

	results := make([]*FoodItem, 0, end-offset)
	for _, item := range matched[offset:end] {
		c := copyItem(item)
		if q.Columns == ColumnsSuggestion {
			c.CuisineTypes = nil
			c.DietaryTags = nil
			c.Description = ""
		}
		results = append(results, c)
	}
	return results, nil
}

// RestaurantsByName implements CatalogStore.
func (s *InMemoryStore) RestaurantsByName(ctx context.Context, names []string) ([]*Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []*Restaurant
	for _, r := range s.restaurants {
		if wanted[r.Name] {
			rc := *r
			out = append(out, &rc)
		}
	}
	return out, nil
}

// ReviewsForItems implements CatalogStore.
func (s *InMemoryStore) ReviewsForItems(ctx context.Context, itemIDs []string) ([]*Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []*Review
	for _, r := range s.reviews {
		if wanted[r.FoodItemID] {
			rc := *r
			out = append(out, &rc)
		}
	}
	return out, nil
}

func copyItem(item *FoodItem) *FoodItem {
	c := *item
	c.Photos = append([]string(nil), item.Photos...)
	c.CuisineTypes = append([]string(nil), item.CuisineTypes...)
	c.DietaryTags = append([]string(nil), item.DietaryTags...)
	return &c
}
