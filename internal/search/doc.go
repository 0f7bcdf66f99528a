// Package search implements the food search pipeline: a windowed catalog
// query, predicate filters (cuisine, dietary, price, distance), rating
// aggregation, ranking and sorting.
//
// Store failures never surface as errors. A failed stage contributes nothing
// and the response is marked Partial so callers can tell "no matches" apart
// from "a fetch failed".
package search
