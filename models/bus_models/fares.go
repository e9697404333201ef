package bus_models

import "fmt"

// Stop is a named point along a route. Distance is cumulative from the
// route's first stop.
type Stop struct {
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// FareEntry is the precomputed fare for one ordered stop pair. The full fare
// table for a route with n stops has exactly n*(n-1)/2 entries.
type FareEntry struct {
	Name       string `json:"name"` // "<from> to <to>"
	FromStop   string `json:"from_stop"`
	ToStop     string `json:"to_stop"`
	Distance   int    `json:"distance"`
	FareNormal int    `json:"fare_normal"`
	FareLuxury int    `json:"fare_luxury"`
}

// Fare returns the fare for the given bus class.
func (f *FareEntry) Fare(busType string) int {
	if busType == "luxury" {
		return f.FareLuxury
	}
	return f.FareNormal
}

// StopPairName builds the canonical fare-table key for a pair of stop names.
func StopPairName(from, to string) string {
	return fmt.Sprintf("%s to %s", from, to)
}

// GenerateFareMatrix derives the full pairwise fare table from an ordered
// stop list and the two full-route base prices. Fares are proportional to
// distance, rounded up to the nearest currency unit.
//
// The function is pure and deterministic; callers regenerate the whole table
// on any stop or price edit instead of patching individual entries.
func GenerateFareMatrix(stops []Stop, priceNormal, priceLuxury int) ([]FareEntry, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("%w: need at least two stops, got %d", ErrInvalidRoute, len(stops))
	}
	if priceNormal <= 0 || priceLuxury <= 0 {
		return nil, fmt.Errorf("%w: base prices must be positive", ErrInvalidRoute)
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].Distance <= stops[i-1].Distance {
			return nil, fmt.Errorf("%w: stop %q does not increase distance", ErrInvalidRoute, stops[i].Name)
		}
	}
	if stops[0].Distance < 0 {
		return nil, fmt.Errorf("%w: negative distance for stop %q", ErrInvalidRoute, stops[0].Name)
	}

	totalDistance := stops[len(stops)-1].Distance - stops[0].Distance
	if totalDistance == 0 {
		return nil, fmt.Errorf("%w: total route distance is zero", ErrInvalidRoute)
	}

	entries := make([]FareEntry, 0, len(stops)*(len(stops)-1)/2)
	for i := 0; i < len(stops); i++ {
		for j := i + 1; j < len(stops); j++ {
			distance := stops[j].Distance - stops[i].Distance
			entries = append(entries, FareEntry{
				Name:       StopPairName(stops[i].Name, stops[j].Name),
				FromStop:   stops[i].Name,
				ToStop:     stops[j].Name,
				Distance:   distance,
				FareNormal: ceilFare(priceNormal, distance, totalDistance),
				FareLuxury: ceilFare(priceLuxury, distance, totalDistance),
			})
		}
	}
	return entries, nil
}

// ceilFare computes ceil(basePrice * distance / totalDistance) in integer
// arithmetic.
func ceilFare(basePrice, distance, totalDistance int) int {
	return (basePrice*distance + totalDistance - 1) / totalDistance
}

// FindFareEntry resolves a stop-pair name against a generated fare table.
func FindFareEntry(entries []FareEntry, pairName string) (*FareEntry, error) {
	for i := range entries {
		if entries[i].Name == pairName {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStopPair, pairName)
}
