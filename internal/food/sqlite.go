package food

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/forkful/internal/db"
	"github.com/onnwee/forkful/internal/tracing"
)

// SQLiteSchema creates the catalog tables. Tag and photo columns hold JSON arrays.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS restaurants (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	restaurant_name TEXT NOT NULL,
	latitude        REAL,
	longitude       REAL
);
CREATE INDEX IF NOT EXISTS idx_restaurants_name ON restaurants (restaurant_name);

CREATE TABLE IF NOT EXISTS food_items (
	id              TEXT PRIMARY KEY,
	food_name       TEXT NOT NULL,
	restaurant_name TEXT NOT NULL,
	photos          TEXT NOT NULL DEFAULT '[]',
	price_range     TEXT NOT NULL,
	cuisine_type    TEXT NOT NULL DEFAULT '[]',
	dietary_tags    TEXT NOT NULL DEFAULT '[]',
	description     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reviews (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	food_item_id TEXT NOT NULL,
	rating       REAL NOT NULL,
	review_date  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_food_item_id ON reviews (food_item_id);
`

// SQLiteStore implements CatalogStore on an embedded SQLite database.
// It backs local/offline mode and the seed command.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a SQLite database at dsn and applies the schema.
// Callers close the store through DB().
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	conn, err := db.Open(ctx, db.DriverSQLite, dsn, db.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	s := NewSQLiteStore(conn)
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened SQLite handle.
func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

// DB returns the underlying handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the catalog tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemSQLite, "", tracing.DBOperationExec)
	defer func() { endSpan(err) }()

	if _, err = s.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return nil
}

// QueryItems implements CatalogStore. SQLite LIKE is case-insensitive for ASCII.
func (s *SQLiteStore) QueryItems(ctx context.Context, q CatalogQuery) (items []*FoodItem, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemSQLite, "food_items", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var (
		where []string
		args  []any
	)
	if q.Keyword != "" {
		p := ContainsPattern(q.Keyword)
		where = append(where, `(food_name LIKE ? OR description LIKE ? OR restaurant_name LIKE ?
			OR EXISTS (SELECT 1 FROM json_each(food_items.cuisine_type) WHERE json_each.value LIKE ?)
			OR EXISTS (SELECT 1 FROM json_each(food_items.dietary_tags) WHERE json_each.value LIKE ?))`)
		args = append(args, p, p, p, p, p)
	}
	if len(q.PriceSymbols) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.PriceSymbols)), ",")
		where = append(where, "price_range IN ("+placeholders+")")
		for _, sym := range q.PriceSymbols {
			args = append(args, sym)
		}
	}

	query := "SELECT id, food_name, restaurant_name, photos, price_range, cuisine_type, dietary_tags, description FROM food_items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query food items: %w", err)
	}
	defer rows.Close()

	items = []*FoodItem{}
	for rows.Next() {
		var (
			item                    FoodItem
			photos, cuisine, dietary string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.RestaurantName, &photos,
			&item.PriceRange, &cuisine, &dietary, &item.Description); err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		item.Photos = NormalizeTags(photos)
		if q.Columns == ColumnsAll {
			item.CuisineTypes = NormalizeTags(cuisine)
			item.DietaryTags = NormalizeTags(dietary)
		} else {
			item.Description = ""
		}
		items = append(items, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}
	return items, nil
}

// RestaurantsByName implements CatalogStore.
func (s *SQLiteStore) RestaurantsByName(ctx context.Context, names []string) (restaurants []*Restaurant, err error) {
	if len(names) == 0 {
		return []*Restaurant{}, nil
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemSQLite, "restaurants", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	query := "SELECT restaurant_name, latitude, longitude FROM restaurants WHERE restaurant_name IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(names)), ",") + ") ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) ReviewsForItems(ctx context.Context, itemIDs []string) (reviews []*Review, err error) {
	if len(itemIDs) == 0 {
		return []*Review{}, nil
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemSQLite, "reviews", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}
	query := "SELECT food_item_id, rating, review_date FROM reviews WHERE food_item_id IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",") + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews = []*Review{}
	for rows.Next() {
		var (
			r    Review
			date string
		)
		if err := rows.Scan(&r.FoodItemID, &r.Rating, &date); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.ReviewDate, err = time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse review date %q: %w", date, err)
		}
		reviews = append(reviews, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, nil
}

// Seed inserts the fixture in a single transaction.
func (s *SQLiteStore) Seed(ctx context.Context, fixture *Fixture) (err error) {
	if fixture == nil {
		return ErrNilFixture
	}
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemSQLite, "food_items", tracing.DBOperationInsert)
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
			"INSERT INTO restaurants (restaurant_name, latitude, longitude) VALUES (?, ?, ?)",
			r.Name, r.Latitude, r.Longitude,
		); err != nil {
			return fmt.Errorf("failed to insert restaurant %q: %w", r.Name, err)
		}
	}

	for _, item := range fixture.Items {
		photos, cuisine, dietary, jerr := encodeTagColumns(item)
		if jerr != nil {
			err = jerr
			return err
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO food_items (id, food_name, restaurant_name, photos, price_range, cuisine_type, dietary_tags, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.Name, item.RestaurantName, photos, item.PriceRange, cuisine, dietary, item.Description,
		); err != nil {
			return fmt.Errorf("failed to insert food item %s: %w", item.ID, err)
		}
	}

	for _, review := range fixture.Reviews {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO reviews (food_item_id, rating, review_date) VALUES (?, ?, ?)",
			review.FoodItemID, review.Rating, review.ReviewDate.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to insert review for %s: %w", review.FoodItemID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return nil
}

func encodeTagColumns(item *FoodItem) (photos, cuisine, dietary string, err error) {
	enc := func(v []string) (string, error) {
		b, err := json.Marshal(nonNil(v))
		if err != nil {
			return "", fmt.Errorf("failed to encode tags for %s: %w", item.ID, err)
		}
		return string(b), nil
	}
	if photos, err = enc(item.Photos); err != nil {
		return
	}
	if cuisine, err = enc(item.CuisineTypes); err != nil {
		return
	}
	dietary, err = enc(item.DietaryTags)
	return
}
