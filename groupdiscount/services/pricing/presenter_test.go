package main

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFormatter() PriceFormatter {
	return NewPriceFormatter(CurrencyConfig{
		Symbol:            "$",
		Decimals:          2,
		DecimalSeparator:  ".",
		ThousandSeparator: ",",
	})
}

func TestReloadHints(t *testing.T) {
	tests := []struct {
		name            string
		last, total     int
		wantSignificant bool
		wantForce       bool
	}{
		{"delta 20", 100, 120, true, false},
		{"delta 60", 100, 160, true, true},
		{"negative delta 60", 160, 100, true, true},
		{"exactly 10", 100, 110, false, false},
		{"exactly 50", 100, 150, true, false},
		{"no previous total", 0, 500, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			significant, force := ReloadHints(tt.last, tt.total)

			assert.Equal(t, tt.wantSignificant, significant)
			assert.Equal(t, tt.wantForce, force)
		})
	}
}

func TestPriceFormatter(t *testing.T) {
	f := testFormatter()

	assert.Equal(t, "1234.50", f.Decimal(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "1,234,567.89", f.Number(decimal.RequireFromString("1234567.891")))
	assert.Equal(t, "-12.00", f.Number(decimal.NewFromInt(-12)))
	assert.Equal(t,
		`<span class="woocommerce-Price-amount amount"><bdi><span class="woocommerce-Price-currencySymbol">$</span>9.00</bdi></span>`,
		f.HTML(decimal.NewFromInt(9)))

	euro := NewPriceFormatter(CurrencyConfig{Symbol: "€", Decimals: 0, DecimalSeparator: ",", ThousandSeparator: "."})
	assert.Equal(t, "12.346", euro.Number(decimal.RequireFromString("12345.6")))
}

func TestFalseOr_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A FalseOr[string] `json:"a"`
		B FalseOr[Tier]   `json:"b"`
	}{B: Some(Tier{Quantity: 10, Price: "1.00"})})

	require.NoError(t, err)
	assert.JSONEq(t, `{"a":false,"b":{"quantity":10,"price":"1.00"}}`, string(b))
}

func exampleView(variant Variant) PriceView {
	return PriceView{
		ProductID:    7,
		TotalSold:    150,
		LastTotal:    90,
		RegularPrice: decimal.RequireFromString("10.00"),
		Current:      Some(Tier{Quantity: 100, Price: "9.00"}),
		Next:         Some(Tier{Quantity: 1000, Price: "8.00"}),
		Variant:      variant,
		Language:     variant.Code(),
	}
}

func TestPresenter_RefreshPayload(t *testing.T) {
	// Arrange
	presenter := NewPresenter(testFormatter(), NewTranslator())

	// Act
	payload := presenter.RefreshPayload(exampleView(VariantDefault))

	// Assert
	assert.Equal(t, 150, payload.TotalSold)
	assert.Equal(t, "10.00", payload.RegularPrice)
	assert.Equal(t, Some("9.00"), payload.TierPrice)
	assert.Equal(t, "1.00", payload.SavingsAmount)
	assert.InDelta(t, 10.0, payload.SavingsPercent, 0.0001)
	assert.True(t, payload.SignificantChange)
	assert.True(t, payload.ForceReload)
	assert.Equal(t, 1000, payload.NextTierQuantity)
	assert.Equal(t, 850, payload.UnitsNeeded)
	assert.Equal(t, Some("8.00"), payload.NextTierPrice)
	assert.InDelta(t, 20.0, payload.NextTierSavingsPercent, 0.0001)
	assert.Equal(t, "<strong>150</strong> units already sold", payload.UnitsSoldText)
	assert.Equal(t, "Save <strong>10.00%</strong>", payload.SavingsBadgeText)
	assert.Equal(t, "Next discount at <strong>1,000</strong> units", payload.NextTierText)
	assert.Contains(t, payload.NextTierPriceText, "Only <strong>850</strong> more units needed")
	assert.Contains(t, payload.PriceComparisonText, "Original price: ")
	assert.Contains(t, payload.FormattedPrice, "9.00")
	assert.Equal(t, "Sales count refreshed: 150 units sold", payload.Message)
	assert.Empty(t, payload.NextTierPriceFormatted)
}

func TestPresenter_RefreshPayload_TraditionalChinese(t *testing.T) {
	presenter := NewPresenter(testFormatter(), NewTranslator())

	payload := presenter.RefreshPayload(exampleView(VariantTraditional))

	assert.Equal(t, "zh_TW", payload.Language)
	assert.Equal(t, "原價", payload.OriginalPriceLabel)
	assert.Equal(t, "現價", payload.CurrentPriceLabel)
	assert.Equal(t, "每件節省", payload.YouSaveText)
	assert.Empty(t, payload.PerUnitText)
	assert.Equal(t, "下一個折扣在 <strong>1,000</strong> 件", payload.NextTierText)
	assert.Equal(t, "節省 <strong>20.00%</strong>", payload.NextTierSavingsBadge)
	assert.Contains(t, payload.NextTierPriceText, "只需再購買 <strong>850</strong> 件即可解鎖價格：每件")
	assert.Contains(t, payload.PriceComparisonText, "(每件節省 ")
	assert.Equal(t, payload.FormattedNextTierPrice, payload.NextTierPriceFormatted)
}

func TestPresenter_RefreshPayload_SimplifiedChinese(t *testing.T) {
	presenter := NewPresenter(testFormatter(), NewTranslator())

	payload := presenter.RefreshPayload(exampleView(VariantSimplified))

	assert.Equal(t, "原价", payload.OriginalPriceLabel)
	assert.Equal(t, "已售出 <strong>150</strong> 件", payload.UnitsSoldText)
}

func TestPresenter_RefreshPayload_NoTier(t *testing.T) {
	// Arrange
	presenter := NewPresenter(testFormatter(), nil)
	view := PriceView{TotalSold: 5, RegularPrice: decimal.NewFromInt(10)}

	// Act
	payload := presenter.RefreshPayload(view)
	raw, err := json.Marshal(payload)

	// Assert
	require.NoError(t, err)
	assert.False(t, payload.TierPrice.Valid)
	assert.Equal(t, "0.00", payload.SavingsAmount)
	assert.Zero(t, payload.SavingsPercent)
	assert.False(t, payload.SignificantChange)
	assert.Empty(t, payload.NextTierText)
	assert.Contains(t, string(raw), `"tier_price":false`)
	assert.Contains(t, string(raw), `"next_tier":false`)
}

func TestPresenter_BannerHTML(t *testing.T) {
	presenter := NewPresenter(testFormatter(), NewTranslator())

	banner := presenter.BannerHTML(exampleView(VariantDefault))

	assert.Contains(t, banner, `<div class="group-discount-label">`)
	assert.Contains(t, banner, "<strong>150</strong> units already sold")
	assert.Contains(t, banner, `<div class="group-discount-next-tier">`)
	assert.Contains(t, banner, "Only <strong>850</strong> more units needed to unlock price")
}

func TestPresenter_BannerHTML_TraditionalChinese(t *testing.T) {
	presenter := NewPresenter(testFormatter(), NewTranslator())

	banner := presenter.BannerHTML(exampleView(VariantTraditional))

	assert.Contains(t, banner, "原價: ")
	assert.Contains(t, banner, "現價: ")
	assert.Contains(t, banner, "下一個折扣在 <strong>1,000</strong> 件 ")
	assert.NotContains(t, banner, "Original price")
}

func TestPresenter_BannerHTML_NothingToShow(t *testing.T) {
	presenter := NewPresenter(testFormatter(), nil)

	assert.Empty(t, presenter.BannerHTML(PriceView{RegularPrice: decimal.NewFromInt(10)}))
}
