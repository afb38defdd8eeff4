package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTier(t *testing.T) {
	tiers := []Tier{
		{Quantity: 1000, Price: "8.00"},
		{Quantity: 100, Price: "9.00"},
	}

	tests := []struct {
		name      string
		unitsSold int
		wantPrice string
		wantOK    bool
	}{
		{"between tiers", 150, "9.00", true},
		{"exactly at highest tier", 1000, "8.00", true},
		{"above highest tier", 5000, "8.00", true},
		{"exactly at first tier", 100, "9.00", true},
		{"below every tier", 50, "", false},
		{"nothing sold", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			tier, ok := ResolveTier(tiers, tt.unitsSold)

			// Assert
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPrice, tier.Price)
		})
	}
}

func TestNextTier(t *testing.T) {
	tiers := []Tier{
		{Quantity: 100, Price: "9.00"},
		{Quantity: 1000, Price: "8.00"},
	}

	next, ok := NextTier(tiers, 150)
	require.True(t, ok)
	assert.Equal(t, Tier{Quantity: 1000, Price: "8.00"}, next)

	_, ok = NextTier(tiers, 1000)
	assert.False(t, ok)

	next, ok = NextTier(tiers, 0)
	require.True(t, ok)
	assert.Equal(t, 100, next.Quantity)
}

func TestResolveTier_SkipsInertTiers(t *testing.T) {
	// Arrange
	tiers := []Tier{
		{Quantity: 10, Price: "9.50"},
		{Quantity: 50, Price: ""},
		{Quantity: 80, Price: "not-a-price"},
	}

	// Act
	tier, ok := ResolveTier(tiers, 100)
	next, nextOK := NextTier(tiers, 20)

	// Assert
	require.True(t, ok)
	assert.Equal(t, "9.50", tier.Price)
	assert.False(t, nextOK, "inert tiers must not be offered as next tier: %+v", next)
}

func TestResolveTier_EqualQuantitiesLowestPriceWins(t *testing.T) {
	tiers := []Tier{
		{Quantity: 100, Price: "9.00"},
		{Quantity: 100, Price: "8.50"},
		{Quantity: 100, Price: "8.75"},
	}

	tier, ok := ResolveTier(tiers, 120)
	require.True(t, ok)
	assert.Equal(t, "8.50", tier.Price)

	next, ok := NextTier(tiers, 10)
	require.True(t, ok)
	assert.Equal(t, "8.50", next.Price)
}

func TestResolveTier_DoesNotMutateInput(t *testing.T) {
	tiers := []Tier{{Quantity: 5, Price: "1"}, {Quantity: 1, Price: "2"}}

	ResolveTier(tiers, 10)

	assert.Equal(t, 5, tiers[0].Quantity)
	assert.Equal(t, 1, tiers[1].Quantity)
}

func TestDecodeTiers(t *testing.T) {
	tiers, err := DecodeTiers(`[{"quantity":"100","price":"9.00"},{"quantity":1000,"price":8},{"quantity":"x","price":"1"}]`)

	require.NoError(t, err)
	assert.Equal(t, []Tier{
		{Quantity: 100, Price: "9.00"},
		{Quantity: 1000, Price: "8"},
	}, tiers)

	empty, err := DecodeTiers("")
	assert.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeTiers("{broken")
	assert.Error(t, err)
}

func TestEncodeTiers_RoundTripsThroughProduct(t *testing.T) {
	raw, err := EncodeTiers([]Tier{{Quantity: 10, Price: "4.99"}})
	require.NoError(t, err)

	p := &Product{Meta: map[string]string{MetaTiers: raw}}

	assert.Equal(t, []Tier{{Quantity: 10, Price: "4.99"}}, p.Tiers())
}

func TestSanitizeTiers(t *testing.T) {
	// Arrange
	inputs := []TierInput{
		{Quantity: "1000", Price: "8.00"},
		{Quantity: "", Price: "7.00"},
		{Quantity: "-100", Price: "9,50"},
		{Quantity: "0", Price: "1.00"},
		{Quantity: "500", Price: ""},
	}

	// Act
	tiers, err := SanitizeTiers(inputs)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []Tier{
		{Quantity: 100, Price: "9.50"},
		{Quantity: 500, Price: ""},
		{Quantity: 1000, Price: "8.00"},
	}, tiers)
}

func TestSanitizeTiers_RejectsGarbage(t *testing.T) {
	_, err := SanitizeTiers([]TierInput{{Quantity: "ten", Price: "1"}})
	assert.ErrorIs(t, err, ErrInvalidTier)

	_, err = SanitizeTiers([]TierInput{{Quantity: "10", Price: "cheap"}})
	assert.ErrorIs(t, err, ErrInvalidTier)
}
