package food

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/onnwee/forkful/internal/tracing"
)

// PostgresStore implements CatalogStore using PostgreSQL.
// Tag and photo columns are TEXT[] arrays.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// buildItemQuery assembles the candidate query and its arguments.
func buildItemQuery(q CatalogQuery) (string, []any) {
	columns := "id, food_name, restaurant_name, photos, price_range"
	if q.Columns == ColumnsAll {
		columns += ", cuisine_type, dietary_tags, COALESCE(description, '')"
	}

	var (
		where []string
		args  []any
	)

	if q.Keyword != "" {
		args = append(args, ContainsPattern(q.Keyword))
		p := fmt.Sprintf("$%d", len(args))
		where = append(where, "(food_name ILIKE "+p+
			" OR description ILIKE "+p+
			" OR restaurant_name ILIKE "+p+
			" OR EXISTS (SELECT 1 FROM unnest(cuisine_type) AS c WHERE c ILIKE "+p+")"+
			" OR EXISTS (SELECT 1 FROM unnest(dietary_tags) AS d WHERE d ILIKE "+p+"))")
	}

	if len(q.PriceSymbols) > 0 {
		args = append(args, pq.Array(q.PriceSymbols))
		where = append(where, fmt.Sprintf("price_range = ANY($%d)", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM food_items")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id ASC")

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return b.String(), args
}

// QueryItems implements CatalogStore.
func (s *PostgresStore) QueryItems(ctx context.Context, q CatalogQuery) (items []*FoodItem, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemPostgres, "food_items", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query, args := buildItemQuery(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query food items: %w", err)
	}
	defer rows.Close()

	items = []*FoodItem{}
	for rows.Next() {
		item := &FoodItem{}
		dest := []any{
			&item.ID,
			&item.Name,
			&item.RestaurantName,
			pq.Array(&item.Photos),
			&item.PriceRange,
		}
		if q.Columns == ColumnsAll {
			dest = append(dest,
				pq.Array(&item.CuisineTypes),
				pq.Array(&item.DietaryTags),
				&item.Description,
			)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		item.CuisineTypes = NormalizeTags(item.CuisineTypes)
		item.DietaryTags = NormalizeTags(item.DietaryTags)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}
	return items, nil
}

// RestaurantsByName implements CatalogStore.
func (s *PostgresStore) RestaurantsByName(ctx context.Context, names []string) (restaurants []*Restaurant, err error) {
	if len(names) == 0 {
		return []*Restaurant{}, nil
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemPostgres, "restaurants", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT restaurant_name, latitude, longitude
		FROM restaurants
		WHERE restaurant_name = ANY($1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	restaurants = []*Restaurant{}
	for rows.Next() {
		var (
			r        Restaurant
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&r.Name, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		if lat.Valid {
			r.Latitude = &lat.Float64
		}
		if lng.Valid {
			r.Longitude = &lng.Float64
		}
		restaurants = append(restaurants, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restaurants: %w", err)
	}
	return restaurants, nil
}

// ReviewsForItems implements CatalogStore.
func (s *PostgresStore) ReviewsForItems(ctx context.Context, itemIDs []string) (reviews []*Review, err error) {
	if len(itemIDs) == 0 {
		return []*Review{}, nil
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemPostgres, "reviews", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT food_item_id, rating, review_date
		FROM reviews
		WHERE food_item_id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews = []*Review{}
	for rows.Next() {
		r := &Review{}
		if err := rows.Scan(&r.FoodItemID, &r.Rating, &r.ReviewDate); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}

// Seed inserts the fixture in a single transaction. Existing items with the
// same id are left untouched.
func (s *PostgresStore) Seed(ctx context.Context, fixture *Fixture) (err error) {
	if fixture == nil {
		return ErrNilFixture
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemPostgres, "food_items", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range fixture.Restaurants {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO restaurants (restaurant_name, latitude, longitude) VALUES ($1, $2, $3)`,
			r.Name, r.Latitude, r.Longitude,
		); err != nil {
			return fmt.Errorf("failed to insert restaurant %q: %w", r.Name, err)
		}
	}

	for _, item := range fixture.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO food_items (id, food_name, restaurant_name, photos, price_range, cuisine_type, dietary_tags, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			item.ID, item.Name, item.RestaurantName,
			pq.Array(nonNil(item.Photos)), item.PriceRange,
			pq.Array(nonNil(item.CuisineTypes)), pq.Array(nonNil(item.DietaryTags)),
			item.Description,
		); err != nil {
			return fmt.Errorf("failed to insert food item %s: %w", item.ID, err)
		}
	}

	for _, review := range fixture.Reviews {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO reviews (food_item_id, rating, review_date) VALUES ($1, $2, $3)`,
			review.FoodItemID, review.Rating, review.ReviewDate,
		); err != nil {
			return fmt.Errorf("failed to insert review for %s: %w", review.FoodItemID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
