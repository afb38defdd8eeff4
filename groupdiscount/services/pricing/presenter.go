package main

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Limiares de variação do total vendido desde o último valor conhecido pelo cliente
const (
	significantChangeThreshold = 10
	forceReloadThreshold       = 50
)

// ReloadHints calcula as flags de recarga. Sem valor anterior (last <= 0) nada é sinalizado.
func ReloadHints(lastTotal, totalSold int) (significant, force bool) {
	if lastTotal <= 0 {
		return false, false
	}
	delta := totalSold - lastTotal
	if delta < 0 {
		delta = -delta
	}
	return delta > significantChangeThreshold, delta > forceReloadThreshold
}

// PriceFormatter formata valores monetários com as configurações da loja
type PriceFormatter struct {
	symbol            string
	decimals          int32
	decimalSeparator  string
	thousandSeparator string
}

// NewPriceFormatter cria uma nova instância de PriceFormatter
func NewPriceFormatter(cfg CurrencyConfig) PriceFormatter {
	f := PriceFormatter{
		symbol:            cfg.Symbol,
		decimals:          int32(max(cfg.Decimals, 0)),
		decimalSeparator:  cfg.DecimalSeparator,
		thousandSeparator: cfg.ThousandSeparator,
	}
	if f.decimalSeparator == "" {
		f.decimalSeparator = "."
	}
	return f
}

// Decimal devolve o valor com as casas decimais da loja e ponto como separador
func (f PriceFormatter) Decimal(d decimal.Decimal) string {
	return d.StringFixed(f.decimals)
}

// Number devolve o valor com os separadores da loja
func (f PriceFormatter) Number(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(f.decimals)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(f.decimals).IsZero() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(f.thousandSeparator)
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteString(f.decimalSeparator)
		b.WriteString(fracPart)
	}
	return b.String()
}

// HTML devolve o preço no markup de preço da loja
func (f PriceFormatter) HTML(d decimal.Decimal) string {
	return `<span class="woocommerce-Price-amount amount"><bdi>` +
		`<span class="woocommerce-Price-currencySymbol">` + html.EscapeString(f.symbol) + `</span>` +
		f.Number(d) + `</bdi></span>`
}

// FalseOr serializa como false quando não há valor
type FalseOr[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) FalseOr[T] {
	return FalseOr[T]{Value: v, Valid: true}
}

func (o FalseOr[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("false"), nil
	}
	return json.Marshal(o.Value)
}

// RefreshPayload é a resposta do refresh_price
type RefreshPayload struct {
	TotalSold              int             `json:"total_sold"`
	RegularPrice           string          `json:"regular_price"`
	FormattedRegularPrice  string          `json:"formatted_regular_price"`
	TierPrice              FalseOr[string] `json:"tier_price"`
	CurrentTier            FalseOr[Tier]   `json:"current_tier"`
	FormattedPrice         string          `json:"formatted_price"`
	DecimalSeparator       string          `json:"decimal_separator"`
	SavingsAmount          string          `json:"savings_amount"`
	FormattedSavingsAmount string          `json:"formatted_savings_amount"`
	SavingsPercent         float64         `json:"savings_percent"`
	PriceComparisonText    string          `json:"price_comparison_text"`
	SignificantChange      bool            `json:"significant_change"`
	ForceReload            bool            `json:"force_reload"`
	Message                string          `json:"message"`
	UnitsSoldText          string          `json:"units_sold_text"`
	SavingsBadgeText       string          `json:"savings_badge_text"`
	NextTier               FalseOr[Tier]   `json:"next_tier"`
	NextTierQuantity       int             `json:"next_tier_quantity"`
	UnitsNeeded            int             `json:"units_needed"`
	NextTierPrice          FalseOr[string] `json:"next_tier_price"`
	FormattedNextTierPrice string          `json:"formatted_next_tier_price"`
	NextTierSavingsPercent float64         `json:"next_tier_savings_percent"`
	NextTierText           string          `json:"next_tier_text"`
	NextTierSavingsBadge   string          `json:"next_tier_savings_badge"`
	NextTierPriceText      string          `json:"next_tier_price_text"`
	Language               string          `json:"language"`
	OriginalPriceLabel     string          `json:"original_price_label"`
	CurrentPriceLabel      string          `json:"current_price_label"`
	YouSaveText            string          `json:"you_save_text"`
	PerUnitText            string          `json:"per_unit_text"`
	NextTierPriceFormatted string          `json:"next_tier_price_formatted,omitempty"`
}

// PriceView reúne o estado de preço de um produto para apresentação
type PriceView struct {
	ProductID    int64
	TotalSold    int
	LastTotal    int
	RegularPrice decimal.Decimal
	Current      FalseOr[Tier]
	Next         FalseOr[Tier]
	Variant      Variant
	Language     string
}

var hundred = decimal.NewFromInt(100)

// savings devolve a economia por unidade e o percentual sobre o preço regular
func savings(regular, price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !regular.IsPositive() || !regular.GreaterThan(price) {
		return decimal.Zero, decimal.Zero
	}
	amount := regular.Sub(price)
	return amount, amount.Div(regular).Mul(hundred)
}

// Presenter monta os textos e o payload exibidos ao cliente
type Presenter struct {
	money      PriceFormatter
	translator *Translator
}

// NewPresenter cria uma nova instância de Presenter
func NewPresenter(money PriceFormatter, translator *Translator) *Presenter {
	return &Presenter{money: money, translator: translator}
}

func strong(s string) string { return "<strong>" + s + "</strong>" }

func count(p *message.Printer, n int) string {
	return p.Sprint(number.Decimal(n))
}

func percent(p *message.Printer, d decimal.Decimal) string {
	return p.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2))) + "%"
}

// RefreshPayload monta a resposta do refresh_price
func (pr *Presenter) RefreshPayload(view PriceView) RefreshPayload {
	p := pr.translator.Printer(view.Variant)
	regular := view.RegularPrice
	formattedRegular := pr.money.HTML(regular)

	payload := RefreshPayload{
		TotalSold:             view.TotalSold,
		RegularPrice:          pr.money.Decimal(regular),
		FormattedRegularPrice: formattedRegular,
		CurrentTier:           view.Current,
		FormattedPrice:        formattedRegular,
		DecimalSeparator:      pr.money.decimalSeparator,
		NextTier:              view.Next,
		Language:              view.Language,
		Message:               p.Sprintf("Sales count refreshed: %d units sold", view.TotalSold),
		OriginalPriceLabel:    p.Sprintf("Original price"),
		CurrentPriceLabel:     p.Sprintf("Current price"),
		YouSaveText:           p.Sprintf("You save"),
		PerUnitText:           p.Sprintf("per unit"),
	}
	payload.SignificantChange, payload.ForceReload = ReloadHints(view.LastTotal, view.TotalSold)

	currentPriceHTML := formattedRegular
	savingsAmount, savingsPercent := decimal.Zero, decimal.Zero
	if view.Current.Valid {
		tierPrice := view.Current.Value.PriceDecimal()
		payload.TierPrice = Some(pr.money.Decimal(tierPrice))
		currentPriceHTML = pr.money.HTML(tierPrice)
		payload.FormattedPrice = currentPriceHTML
		savingsAmount, savingsPercent = savings(regular, tierPrice)
	}
	payload.SavingsAmount = pr.money.Decimal(savingsAmount)
	payload.FormattedSavingsAmount = pr.money.HTML(savingsAmount)
	payload.SavingsPercent = savingsPercent.Round(4).InexactFloat64()

	payload.UnitsSoldText = p.Sprintf("%s units already sold", strong(count(p, view.TotalSold)))
	payload.SavingsBadgeText = p.Sprintf("Save %s", strong(percent(p, savingsPercent)))

	var nextPercent decimal.Decimal
	if view.Next.Valid {
		next := view.Next.Value
		nextPrice := next.PriceDecimal()
		payload.NextTierQuantity = next.Quantity
		payload.UnitsNeeded = next.Quantity - view.TotalSold
		payload.NextTierPrice = Some(pr.money.Decimal(nextPrice))
		payload.FormattedNextTierPrice = pr.money.HTML(nextPrice)
		_, nextPercent = savings(regular, nextPrice)
		payload.NextTierSavingsPercent = nextPercent.Round(4).InexactFloat64()

		payload.NextTierText = p.Sprintf("Next discount at %s units", strong(count(p, next.Quantity)))
		payload.NextTierSavingsBadge = p.Sprintf("Save %s", strong(percent(p, nextPercent)))
		payload.NextTierPriceText = p.Sprintf("Only %[1]s more units needed to unlock price: %[2]s per unit",
			strong(count(p, payload.UnitsNeeded)), strong(payload.FormattedNextTierPrice))
	}

	savingsHTML := `<span class="savings-text">(` + payload.YouSaveText + " " + payload.FormattedSavingsAmount + " " + payload.PerUnitText + `)</span>`

	if view.Variant == VariantTraditional {
		payload.OriginalPriceLabel = "原價"
		payload.CurrentPriceLabel = "現價"
		payload.YouSaveText = "每件節省"
		payload.PerUnitText = ""
		savingsHTML = `<span class="savings-text">(每件節省 ` + payload.FormattedSavingsAmount + `)</span>`

		if view.Next.Valid {
			payload.NextTierText = "下一個折扣在 " + strong(count(p, payload.NextTierQuantity)) + " 件"
			payload.NextTierSavingsBadge = "節省 " + strong(percent(p, nextPercent))
			payload.NextTierPriceText = "只需再購買 " + strong(count(p, payload.UnitsNeeded)) +
				" 件即可解鎖價格：每件 " + strong(payload.FormattedNextTierPrice)
			payload.NextTierPriceFormatted = payload.FormattedNextTierPrice
		}
	}

	payload.PriceComparisonText =
		`<span class="gd-original-price-row">` + payload.OriginalPriceLabel + `: <span class="original-price">` + formattedRegular + `</span></span>` +
			`<span class="gd-current-price-row">` + payload.CurrentPriceLabel + ": " + strong(currentPriceHTML) + " " + savingsHTML + `</span>`

	return payload
}

// BannerHTML monta o bloco de desconto exibido na página do produto
func (pr *Presenter) BannerHTML(view PriceView) string {
	p := pr.translator.Printer(view.Variant)
	traditional := view.Variant == VariantTraditional
	regular := view.RegularPrice

	var b strings.Builder

	if view.Current.Valid {
		tierPrice := view.Current.Value.PriceDecimal()
		amount, pct := savings(regular, tierPrice)

		b.WriteString(`<div class="group-discount-label">`)
		b.WriteString(`<p class="group-discount-units-sold">`)
		b.WriteString(p.Sprintf("%s units already sold", strong(count(p, view.TotalSold))))
		b.WriteString(` <span class="group-discount-savings-badge">`)
		b.WriteString(p.Sprintf("Save %s", strong(percent(p, pct))))
		b.WriteString(`</span></p>`)

		originalLabel := p.Sprintf("Original price")
		currentLabel := p.Sprintf("Current price")
		savingsHTML := `<span class="savings-text">(` + p.Sprintf("You save") + " " + pr.money.HTML(amount) + " " + p.Sprintf("per unit") + `)</span>`
		if traditional {
			originalLabel = "原價"
			currentLabel = "現價"
			savingsHTML = `<span class="savings-text">(每件節省 ` + pr.money.HTML(amount) + `)</span>`
		}

		b.WriteString(`<p class="group-discount-price-comparison gd-two-row">`)
		b.WriteString(`<span class="gd-original-price-row">` + originalLabel + `: <span class="original-price">` + pr.money.HTML(regular) + `</span></span>`)
		b.WriteString(`<span class="gd-current-price-row">` + currentLabel + ": " + strong(pr.money.HTML(tierPrice)) + " " + savingsHTML + `</span>`)
		b.WriteString(`</p></div>`)
	}

	if view.Next.Valid {
		next := view.Next.Value
		nextPrice := next.PriceDecimal()
		remaining := next.Quantity - view.TotalSold
		_, pct := savings(regular, nextPrice)

		b.WriteString(`<div class="group-discount-next-tier">`)
		b.WriteString(`<p class="group-discount-next-tier-info">`)
		if traditional {
			b.WriteString("下一個折扣在 " + strong(count(p, next.Quantity)) + " 件 ")
			b.WriteString(`<span class="group-discount-savings-badge group-discount-next-savings-badge">`)
			b.WriteString("節省 " + strong(percent(p, pct)))
		} else {
			b.WriteString(p.Sprintf("Next discount at %s units", strong(count(p, next.Quantity))))
			b.WriteString(` <span class="group-discount-savings-badge group-discount-next-savings-badge">`)
			b.WriteString(p.Sprintf("Save %s", strong(percent(p, pct))))
		}
		b.WriteString(`</span></p>`)

		b.WriteString(`<p class="group-discount-next-tier-price">`)
		if traditional {
			b.WriteString("只需再購買 " + strong(count(p, remaining)) + " 件即可解鎖價格：每件 " + strong(pr.money.HTML(nextPrice)))
		} else {
			b.WriteString(p.Sprintf("Only %[1]s more units needed to unlock price: %[2]s per unit",
				strong(count(p, remaining)), strong(pr.money.HTML(nextPrice))))
		}
		b.WriteString(`</p></div>`)
	}

	return b.String()
}
