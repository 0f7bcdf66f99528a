package geo

import "strings"

// DefaultPrecision is the geohash length attached to search results.
// Six characters is roughly a 1.2 km x 0.6 km cell.
const DefaultPrecision = 6

// base32 is the geohash base32 alphabet.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode encodes latitude and longitude into a geohash of the given length.
// A precision below 1 uses DefaultPrecision.
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = DefaultPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var b strings.Builder
	b.Grow(precision)

	bit := 0
	var ch uint
	even := true
	for b.Len() < precision {
		rng, v := &latRange, lat
		if even {
			rng, v = &lngRange, lng
		}
		mid := (rng[0] + rng[1]) / 2
		if v > mid {
			ch |= 1 << (4 - bit)
			rng[0] = mid
		} else {
			rng[1] = mid
		}

		even = !even
		bit++
		if bit == 5 {
			b.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return b.String()
}

// Decode returns the center point of a geohash cell. It reports false for an
// empty hash or one containing characters outside the geohash alphabet.
func Decode(hash string) (lat, lng float64, ok bool) {
	if hash == "" {
		return 0, 0, false
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}
	even := true

	for _, c := range strings.ToLower(hash) {
		idx := strings.IndexRune(base32, c)
		if idx < 0 {
			return 0, 0, false
		}
		for bit := 4; bit >= 0; bit-- {
			rng := &latRange
			if even {
				rng = &lngRange
			}
			mid := (rng[0] + rng[1]) / 2
			if idx&(1<<bit) != 0 {
				rng[0] = mid
			} else {
				rng[1] = mid
			}
			even = !even
		}
	}

	return (latRange[0] + latRange[1]) / 2, (lngRange[0] + lngRange[1]) / 2, true
}
