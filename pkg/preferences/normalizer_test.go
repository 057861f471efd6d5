package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/beacon/pkg/models"
)

func TestNormalize_BudgetRange(t *testing.T) {
	tests := []struct {
		name        string
		budget      string
		expectedMin *float64
		expectedMax *float64
	}{
		{name: "valid range", budget: "150000-400000", expectedMin: f(150000), expectedMax: f(400000)},
		{name: "missing max falls back", budget: "150000-", expectedMin: f(150000), expectedMax: f(1_000_000)},
		{name: "missing min falls back", budget: "-400000", expectedMin: f(0), expectedMax: f(400000)},
		{name: "garbage falls back to defaults", budget: "cheap-ish", expectedMin: f(0), expectedMax: f(1_000_000)},
		{name: "no hyphen uses min only", budget: "250000", expectedMin: f(250000), expectedMax: f(1_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria, err := Normalize(models.RawPreferences{BudgetRange: tt.budget})
			require.NoError(t, err)
			require.NotNil(t, criteria.MinBudget)
			require.NotNil(t, criteria.MaxBudget)
			assert.Equal(t, *tt.expectedMin, *criteria.MinBudget)
			assert.Equal(t, *tt.expectedMax, *criteria.MaxBudget)
		})
	}
}

func TestNormalize_NoBudgetMeansNoBudgetCriteria(t *testing.T) {
	criteria, err := Normalize(models.RawPreferences{})
	require.NoError(t, err)
	assert.Nil(t, criteria.MinBudget)
	assert.Nil(t, criteria.MaxBudget)
	assert.Equal(t, 0, criteria.Count())
}

func TestNormalize_EncodedFactsExtractedFromAreas(t *testing.T) {
	criteria, err := Normalize(models.RawPreferences{
		PreferredAreas: []string{"Mawson Lakes, Australia", "bedrooms:3", "bathrooms:2", "garages:1", "  Salisbury  "},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mawson lakes, australia", "salisbury"}, criteria.PreferredAreas)
	require.NotNil(t, criteria.MinBedrooms)
	assert.Equal(t, 3, *criteria.MinBedrooms)
	require.NotNil(t, criteria.MinBathrooms)
	assert.Equal(t, 2, *criteria.MinBathrooms)
	require.NotNil(t, criteria.MinGarages)
	assert.Equal(t, 1, *criteria.MinGarages)
}

func TestNormalize_ZeroFactIsStillACriterion(t *testing.T) {
	criteria, err := Normalize(models.RawPreferences{
		PreferredAreas: []string{"garages:0"},
	})
	require.NoError(t, err)
	require.NotNil(t, criteria.MinGarages)
	assert.Equal(t, 0, *criteria.MinGarages)
	assert.Empty(t, criteria.PreferredAreas)
	assert.Equal(t, 1, criteria.Count())
}

func TestNormalize_InvalidEncodedFact(t *testing.T) {
	_, err := Normalize(models.RawPreferences{
		PreferredAreas: []string{"bedrooms:lots"},
	})
	assert.Error(t, err)
}

func TestNormalize_FreeTextLoweredAndTrimmed(t *testing.T) {
	criteria, err := Normalize(models.RawPreferences{
		PropertyTypes:     []string{" House ", "APARTMENT", ""},
		PreferredFeatures: []string{"Pool", "  Solar Panels "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"house", "apartment"}, criteria.PreferredPropertyTypes)
	assert.Equal(t, []string{"pool", "solar panels"}, criteria.PreferredFeatures)
}

func f(v float64) *float64 { return &v }
