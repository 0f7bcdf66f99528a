package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/onnwee/forkful/internal/food"
	"github.com/onnwee/forkful/internal/search"
)

// errInvalidParam marks query parameter validation failures.
var errInvalidParam = errors.New("invalid parameter")

// SearchHandlers serves the food search endpoints.
type SearchHandlers struct {
	engine *search.Engine
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(engine *search.Engine) *SearchHandlers {
	return &SearchHandlers{engine: engine}
}

// FoodSearchResponse is the body of /search/foods and /search/suggest.
type FoodSearchResponse struct {
	Results  []*search.ScoredFoodItem `json:"results"`
	HasMore  bool                     `json:"has_more"`
	Partial  bool                     `json:"partial"`
	Count    int                      `json:"count"`
	Sequence uint64                   `json:"sequence"`
}

func newFoodSearchResponse(resp *search.SearchResponse) FoodSearchResponse {
	results := resp.Results
	if results == nil {
		results = []*search.ScoredFoodItem{}
	}
	return FoodSearchResponse{
		Results:  results,
		HasMore:  resp.HasMore,
		Partial:  resp.Partial,
		Count:    len(results),
		Sequence: resp.Sequence,
	}
}

// SearchFoods handles GET /search/foods.
//
// Query parameters: q, page (0-based), page_size (1-100), price (comma
// separated levels 1-4), cuisine and dietary (comma separated tags),
// max_distance (miles), lat, lng, sort.
func (h *SearchHandlers) SearchFoods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	req, err := parseSearchRequest(r.URL.Query())
	if err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	writeJSON(w, r.Context(), newFoodSearchResponse(h.engine.Search(r.Context(), req)))
}

// Suggest handles GET /search/suggest?q= (type-ahead). Keywords shorter
// than two characters return no results.
//
// The sequence field comes from a counter shared by every caller of the
// engine, so numbers seen by one client have gaps and Sequencer.IsLatest
// does not apply over HTTP. Clients compare the sequence of their own
// responses and keep the one with the highest value.
func (h *SearchHandlers) Suggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	resp := h.engine.Search(r.Context(), search.SearchRequest{
		Keyword:    r.URL.Query().Get("q"),
		Predictive: true,
	})
	writeJSON(w, r.Context(), newFoodSearchResponse(resp))
}

// parseSearchRequest validates the query string of /search/foods.
func parseSearchRequest(query url.Values) (search.SearchRequest, error) {
	req := search.SearchRequest{
		Keyword: query.Get("q"),
		Filters: &search.FilterOptions{},
	}

	var err error
	if req.Page, err = intParam(query, "page", 0); err != nil {
		return req, err
	}
	if req.Page < 0 {
		return req, fmt.Errorf("%w: page must be >= 0", errInvalidParam)
	}

	if req.PageSize, err = intParam(query, "page_size", search.DefaultPageSize); err != nil {
		return req, err
	}
	if req.PageSize < 1 || req.PageSize > search.MaxPageSize {
		return req, fmt.Errorf("%w: page_size must be between 1 and %d", errInvalidParam, search.MaxPageSize)
	}
	if req.Page > search.MaxPage(req.PageSize) {
		return req, fmt.Errorf("%w: page must be <= %d for page_size %d", errInvalidParam, search.MaxPage(req.PageSize), req.PageSize)
	}

	for _, s := range listParam(query, "price") {
		level, err := strconv.Atoi(s)
		if err != nil || level < food.MinPriceLevel || level > food.MaxPriceLevel {
			return req, fmt.Errorf("%w: price levels must be between %d and %d", errInvalidParam, food.MinPriceLevel, food.MaxPriceLevel)
		}
		req.Filters.PriceLevels = append(req.Filters.PriceLevels, level)
	}

	req.Filters.SelectedCuisines = listParam(query, "cuisine")
	req.Filters.SelectedDietary = listParam(query, "dietary")

	if s := query.Get("max_distance"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return req, fmt.Errorf("%w: max_distance must be a non-negative number", errInvalidParam)
		}
		req.Filters.MaxDistance = &d
	}

	latStr, lngStr := query.Get("lat"), query.Get("lng")
	if (latStr == "") != (lngStr == "") {
		return req, fmt.Errorf("%w: lat and lng must be provided together", errInvalidParam)
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil || lat < -90 || lat > 90 {
			return req, fmt.Errorf("%w: lat must be between -90 and 90", errInvalidParam)
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil || lng < -180 || lng > 180 {
			return req, fmt.Errorf("%w: lng must be between -180 and 180", errInvalidParam)
		}
		req.Filters.UserLocation = &food.Location{Latitude: lat, Longitude: lng}
	}

	if req.Filters.SortBy, err = search.ParseSortMethod(query.Get("sort")); err != nil {
		return req, fmt.Errorf("%w: sort must be one of best_match, highest_rated, most_reviewed, newest", errInvalidParam)
	}

	return req, nil
}

func intParam(query url.Values, name string, def int) (int, error) {
	s := query.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidParam, name)
	}
	return n, nil
}

// listParam splits a comma separated parameter, dropping blanks.
func listParam(query url.Values, name string) []string {
	var out []string
	for _, v := range query[name] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
