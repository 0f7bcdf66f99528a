package ranking

import (
	"time"

	"github.com/onnwee/forkful/internal/food"
)

// RatingData is the aggregated review state of one food item.
type RatingData struct {
	Average      float64    `json:"average"`
	Count        int        `json:"count"`
	NewestReview *time.Time `json:"newest_review,omitempty"`
}

// ProcessRatingData groups reviews by item id and computes the arithmetic
// mean rating, the review count and the newest review date of each item.
// Items without reviews are absent from the result.
func ProcessRatingData(reviews []*food.Review) map[string]*RatingData {
	sums := make(map[string]float64)
	out := make(map[string]*RatingData)

	for _, r := range reviews {
		if r == nil {
			continue
		}
		data, ok := out[r.FoodItemID]
		if !ok {
			data = &RatingData{}
			out[r.FoodItemID] = data
		}
		data.Count++
		sums[r.FoodItemID] += r.Rating

		if !r.ReviewDate.IsZero() && (data.NewestReview == nil || r.ReviewDate.After(*data.NewestReview)) {
			d := r.ReviewDate
			data.NewestReview = &d
		}
	}

	for id, data := range out {
		data.Average = sums[id] / float64(data.Count)
	}
	return out
}
