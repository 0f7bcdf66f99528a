package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/forkful/internal/food"
	"github.com/onnwee/forkful/internal/ranking"
	"github.com/onnwee/forkful/internal/tracing"
)

// Engine runs searches against a catalog store. It keeps no per-request
// state; one engine serves concurrent callers.
type Engine struct {
	store     food.CatalogStore
	weights   *ranking.Weights
	logger    *slog.Logger
	metrics   *Metrics
	sequencer *Sequencer
	fuzzyTags bool
	timeout   time.Duration
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithWeights sets the ranking weights. Nil keeps the defaults.
func WithWeights(w *ranking.Weights) Option {
	return func(e *Engine) error {
		if w != nil {
			e.weights = w
		}
		return nil
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithFuzzyTags toggles substring matching for cuisine and dietary filters.
// Default is true.
func WithFuzzyTags(fuzzy bool) Option {
	return func(e *Engine) error {
		e.fuzzyTags = fuzzy
		return nil
	}
}

// WithTimeout bounds every search, including all its store fetches.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			return ErrInvalidTimeout
		}
		e.timeout = d
		return nil
	}
}

// WithSequencer shares a sequencer between engines.
func WithSequencer(s *Sequencer) Option {
	return func(e *Engine) error {
		if s != nil {
			e.sequencer = s
		}
		return nil
	}
}

// WithClock overrides the clock used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now != nil {
			e.now = now
		}
		return nil
	}
}

// NewEngine creates a search engine over store.
func NewEngine(store food.CatalogStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	e := &Engine{
		store:     store,
		weights:   ranking.DefaultWeights(),
		logger:    slog.Default(),
		sequencer: &Sequencer{},
		fuzzyTags: true,
		now:       time.Now,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Sequencer returns the engine's sequencer.
func (e *Engine) Sequencer() *Sequencer {
	return e.sequencer
}

// Search runs one search. It never returns an error: failed fetches are
// logged and reported through SearchResponse.Partial.
func (e *Engine) Search(ctx context.Context, req SearchRequest) *SearchResponse {
	start := time.Now()
	resp := &SearchResponse{
		Results:  []*ScoredFoodItem{},
		Sequence: e.sequencer.Next(),
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	mode := modeFull
	if req.Predictive {
		mode = modePredictive
		e.predictive(ctx, req, resp)
	} else {
		e.full(ctx, req, resp)
	}

	if e.metrics != nil {
		e.metrics.ObserveSearch(mode, resp.Partial, len(resp.Results), time.Since(start).Seconds())
	}
	tracing.SetAttributes(ctx,
		attribute.String("search.mode", mode),
		attribute.Int("search.results", len(resp.Results)),
		attribute.Bool("search.partial", resp.Partial),
	)
	if resp.Partial {
		tracing.AddEvent(ctx, "search.partial")
	}
	return resp
}

// predictive backs type-ahead suggestions: suggestion columns only, capped
// at PredictiveLimit, never paginated.
func (e *Engine) predictive(ctx context.Context, req SearchRequest, resp *SearchResponse) {
	keyword := food.SanitizeKeyword(req.Keyword)
	if utf8.RuneCountInString(keyword) < PredictiveMinRune {
		return
	}

	items, err := e.query(ctx, food.CatalogQuery{
		Keyword: keyword,
		Limit:   PredictiveLimit,
		Columns: food.ColumnsSuggestion,
	})
	if err != nil {
		e.stageFailed(stageQuery, err, "keyword", keyword)
		resp.Partial = true
		return
	}

	for _, item := range items {
		resp.Results = append(resp.Results, &ScoredFoodItem{FoodItem: item})
	}
}

func (e *Engine) full(ctx context.Context, req SearchRequest, resp *SearchResponse) {
	keyword := food.SanitizeKeyword(req.Keyword)
	page, pageSize := req.Page, req.PageSize
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page > MaxPage(pageSize) {
		e.logger.Warn("page offset out of range", "page", page, "page_size", pageSize)
		return
	}

	q := food.CatalogQuery{
		Keyword: keyword,
		Offset:  page * pageSize,
		Limit:   pageSize,
		Columns: food.ColumnsAll,
	}

	if req.Filters != nil && len(req.Filters.PriceLevels) > 0 {
		q.PriceSymbols = e.priceSymbols(req.Filters.PriceLevels)
		if len(q.PriceSymbols) == 0 {
			return
		}
	}

	raw, err := e.query(ctx, q)
	if err != nil {
		e.stageFailed(stageQuery, err, "keyword", keyword, "page", page)
		resp.Partial = true
		return
	}
	resp.HasMore = len(raw) == pageSize

	candidates := e.applyPredicates(raw, keyword, req.Filters)
	if len(candidates) == 0 {
		return
	}

	candidates, reviews, partial := e.lookup(ctx, candidates, req.Filters)
	resp.Partial = partial
	if len(candidates) == 0 {
		return
	}

	prefs := req.Filters.preferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	sortBy := SortBestMatch
	if req.Filters != nil && req.Filters.SortBy != "" {
		sortBy = req.Filters.SortBy
	}

	_, endSpan := tracing.StartStageSpan(ctx, stageRank,
		attribute.Int("search.candidates", len(candidates)),
		attribute.String("search.sort", string(sortBy)),
	)
	e.rank(candidates, reviews, prefs)
	SortResults(candidates, sortBy)
	endSpan(nil)

	resp.Results = candidates
}

// priceSymbols converts price levels to symbol runs. Invalid levels are
// dropped with a warning.
func (e *Engine) priceSymbols(levels []int) []string {
	symbols := make([]string, 0, len(levels))
	for _, level := range levels {
		sym, err := food.PriceSymbolFor(level)
		if err != nil {
			e.logger.Warn("ignoring invalid price level", "level", level, "error", err)
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

func (e *Engine) query(ctx context.Context, q food.CatalogQuery) (items []*food.FoodItem, err error) {
	ctx, endSpan := tracing.StartStageSpan(ctx, stageQuery,
		attribute.Int("search.offset", q.Offset),
		attribute.Int("search.limit", q.Limit),
	)
	defer func() { endSpan(err) }()

	items, err = e.store.QueryItems(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return items, nil
}

// applyPredicates runs the in-process text match and the tag filters.
func (e *Engine) applyPredicates(raw []*food.FoodItem, keyword string, f *FilterOptions) []*ScoredFoodItem {
	var cuisines, dietary []string
	if f != nil {
		cuisines, dietary = f.SelectedCuisines, f.SelectedDietary
	}

	kept := make([]*ScoredFoodItem, 0, len(raw))
	for _, item := range raw {
		if !food.MatchesKeyword(item, keyword) {
			continue
		}
		if !MatchesCuisine(item, cuisines, e.fuzzyTags) {
			continue
		}
		if !MatchesDietary(item, dietary, e.fuzzyTags) {
			continue
		}
		kept = append(kept, &ScoredFoodItem{FoodItem: item})
	}
	return kept
}

// lookup fetches restaurant coordinates (when distance filtering is active)
// and reviews concurrently, then applies the distance filter. Reviews are
// fetched for the pre-distance candidates.
func (e *Engine) lookup(ctx context.Context, candidates []*ScoredFoodItem, f *FilterOptions) ([]*ScoredFoodItem, []*food.Review, bool) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	var (
		g             errgroup.Group
		restaurants   []*food.Restaurant
		reviews       []*food.Review
		restaurantErr error
		revErr        error
	)
	distance := f.distanceActive()

	if distance {
		g.Go(func() error {
			restaurants, restaurantErr = e.store.RestaurantsByName(ctx, restaurantNames(candidates))
			return restaurantErr
		})
	}
	g.Go(func() error {
		reviews, revErr = e.store.ReviewsForItems(ctx, ids)
		return revErr
	})
	_ = g.Wait()

	partial := false
	if revErr != nil {
		e.stageFailed(stageReviews, revErr, "items", len(ids))
		reviews = nil
		partial = true
	}

	if !distance {
		return candidates, reviews, partial
	}

	if restaurantErr != nil {
		e.stageFailed(stageRestaurants, restaurantErr, "items", len(ids))
		return nil, nil, true
	}

	locations := locationIndex(restaurants)
	if len(locations) == 0 {
		e.logger.Debug("no restaurant coordinates resolvable for distance filter")
		return nil, nil, partial
	}

	return filterByDistance(candidates, locations, *f.UserLocation, *f.MaxDistance), reviews, partial
}

// rank attaches rating data and scores to every candidate.
func (e *Engine) rank(candidates []*ScoredFoodItem, reviews []*food.Review, prefs ranking.UserPreferences) {
	ratings := ranking.ProcessRatingData(reviews)
	now := e.now()

	for _, c := range candidates {
		rating := ratings[c.ID]
		if rating != nil {
			c.Rating = *rating
		}
		components := ranking.CalculateComponents(c.FoodItem, rating, prefs, now)
		c.Components = &components
		c.Score = components.Score(e.weights)
	}
}

func (e *Engine) stageFailed(stage string, err error, args ...any) {
	if e.metrics != nil {
		e.metrics.IncStageFailure(stage)
	}
	e.logger.Error("search stage failed",
		append([]any{"stage", stage, "error", err}, args...)...)
}
