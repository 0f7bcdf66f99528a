// Package ranking turns review statistics and user preferences into a single
// score per food item.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		logger.Warn("using default weights", "error", err)
//	}
//
//	ratings := ranking.ProcessRatingData(reviews)
//	score := ranking.CalculateRankingScore(item, ratings[item.ID], prefs, weights, time.Now())
//
// Components:
//
// Every component function returns a value in [0, 1]:
//
//   - RatingComponent: average / 5
//   - ReviewCountComponent: min(log10(count+1)/2, 1), 0 with no reviews
//   - RecencyComponent: 1.0 today, 0.5 at 30 days, 0.1 from 90 days, 0.5 with no reviews
//   - PreferenceComponent: weighted mean of cuisine, dietary and price matches, 0.5 if none apply
//
// The final score is the weighted sum of the four components. Weights are not
// renormalized, so custom weight sets may produce scores outside [0, 1].
//
// Calibration:
//
// Weights can be tuned at deploy time through a JSON calibration file loaded
// at startup. Zero values in the file keep the default for that weight. See
// configs/ranking.calibration.json for the default configuration.
package ranking
