package bus_models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFareMatrix(t *testing.T) {
	stops := []Stop{
		{Name: "A", Distance: 0},
		{Name: "B", Distance: 10},
		{Name: "C", Distance: 30},
	}

	entries, err := GenerateFareMatrix(stops, 100, 200)
	require.NoError(t, err)

	// n stops produce exactly n*(n-1)/2 pairs.
	require.Len(t, entries, 3)

	byName := make(map[string]FareEntry)
	for _, e := range entries {
		byName[e.Name] = e
	}

	ab := byName["A to B"]
	assert.Equal(t, 10, ab.Distance)
	assert.Equal(t, 34, ab.FareNormal) // ceil(100*10/30)
	assert.Equal(t, 67, ab.FareLuxury) // ceil(200*10/30)

	ac := byName["A to C"]
	assert.Equal(t, 30, ac.Distance)
	assert.Equal(t, 100, ac.FareNormal)
	assert.Equal(t, 200, ac.FareLuxury)

	bc := byName["B to C"]
	assert.Equal(t, 20, bc.Distance)
	assert.Equal(t, 67, bc.FareNormal) // ceil(100*20/30)
	assert.Equal(t, 134, bc.FareLuxury)
}

func TestGenerateFareMatrixPairCount(t *testing.T) {
	stops := []Stop{
		{Name: "S1", Distance: 0},
		{Name: "S2", Distance: 5},
		{Name: "S3", Distance: 12},
		{Name: "S4", Distance: 20},
		{Name: "S5", Distance: 33},
	}

	entries, err := GenerateFareMatrix(stops, 250, 400)
	require.NoError(t, err)
	assert.Len(t, entries, 5*4/2)

	for _, e := range entries {
		assert.Greater(t, e.FareNormal, 0, "fare for %s", e.Name)
		assert.Greater(t, e.FareLuxury, 0, "fare for %s", e.Name)
	}
}

func TestGenerateFareMatrixMonotonicWithDistance(t *testing.T) {
	stops := []Stop{
		{Name: "A", Distance: 0},
		{Name: "B", Distance: 7},
		{Name: "C", Distance: 19},
		{Name: "D", Distance: 42},
	}

	entries, err := GenerateFareMatrix(stops, 180, 300)
	require.NoError(t, err)

	for _, a := range entries {
		for _, b := range entries {
			if a.Distance <= b.Distance {
				assert.LessOrEqual(t, a.FareNormal, b.FareNormal,
					"%s (%dkm) should not cost more than %s (%dkm)", a.Name, a.Distance, b.Name, b.Distance)
				assert.LessOrEqual(t, a.FareLuxury, b.FareLuxury)
			}
		}
	}
}

func TestGenerateFareMatrixFullRouteFareEqualsBasePrice(t *testing.T) {
	stops := []Stop{
		{Name: "Origin", Distance: 0},
		{Name: "Mid", Distance: 13},
		{Name: "End", Distance: 45},
	}

	entries, err := GenerateFareMatrix(stops, 500, 900)
	require.NoError(t, err)

	full, err := FindFareEntry(entries, "Origin to End")
	require.NoError(t, err)
	assert.Equal(t, 500, full.FareNormal)
	assert.Equal(t, 900, full.FareLuxury)
}

func TestGenerateFareMatrixRejectsInvalidInput(t *testing.T) {
	valid := []Stop{{Name: "A", Distance: 0}, {Name: "B", Distance: 10}}

	cases := []struct {
		name        string
		stops       []Stop
		priceNormal int
		priceLuxury int
	}{
		{"single stop", []Stop{{Name: "A", Distance: 0}}, 100, 200},
		{"no stops", nil, 100, 200},
		{"non-increasing distance", []Stop{{Name: "A", Distance: 0}, {Name: "B", Distance: 0}}, 100, 200},
		{"decreasing distance", []Stop{{Name: "A", Distance: 10}, {Name: "B", Distance: 5}}, 100, 200},
		{"zero normal price", valid, 0, 200},
		{"negative luxury price", valid, 100, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateFareMatrix(tc.stops, tc.priceNormal, tc.priceLuxury)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRoute), "expected ErrInvalidRoute, got %v", err)
		})
	}
}

func TestFindFareEntryUnknownPair(t *testing.T) {
	entries, err := GenerateFareMatrix([]Stop{{Name: "A", Distance: 0}, {Name: "B", Distance: 10}}, 100, 200)
	require.NoError(t, err)

	_, err = FindFareEntry(entries, "B to A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStopPair))
}

func TestFareByBusType(t *testing.T) {
	entry := FareEntry{FareNormal: 40, FareLuxury: 75}
	assert.Equal(t, 40, entry.Fare("normal"))
	assert.Equal(t, 75, entry.Fare("luxury"))
}
