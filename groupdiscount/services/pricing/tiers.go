package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier representa uma faixa de desconto: a partir de Quantity unidades vendidas, o preço é Price
type Tier struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Active indica se a faixa participa da resolução. Faixas com preço vazio
// (ou que não é decimal) ficam inertes.
func (t Tier) Active() bool {
	if t.Quantity <= 0 {
		return false
	}
	_, ok := parseDecimal(t.Price)
	return ok
}

// PriceDecimal devolve o preço da faixa como decimal
func (t Tier) PriceDecimal() decimal.Decimal {
	d, _ := parseDecimal(t.Price)
	return d
}

// TierInput é uma linha de faixa vinda do formulário de administração
type TierInput struct {
	Quantity string `json:"quantity" form:"quantity"`
	Price    string `json:"price" form:"price"`
}

// UnmarshalJSON aceita quantidade e preço tanto como número quanto como string
func (in *TierInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Quantity json.RawMessage `json:"quantity"`
		Price    json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	in.Quantity = rawScalar(raw.Quantity)
	in.Price = rawScalar(raw.Price)
	return nil
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// DecodeTiers decodifica o meta de faixas. Quantidades e preços podem estar
// gravados como número ou string.
func DecodeTiers(raw string) ([]Tier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var inputs []TierInput
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, fmt.Errorf("failed to decode tiers: %w", err)
	}

	tiers := make([]Tier, 0, len(inputs))
	for _, in := range inputs {
		qty, err := strconv.Atoi(strings.TrimSpace(in.Quantity))
		if err != nil {
			continue
		}
		tiers = append(tiers, Tier{Quantity: qty, Price: strings.TrimSpace(in.Price)})
	}
	return tiers, nil
}

// EncodeTiers serializa as faixas para o meta do produto
func EncodeTiers(tiers []Tier) (string, error) {
	if tiers == nil {
		tiers = []Tier{}
	}
	b, err := json.Marshal(tiers)
	if err != nil {
		return "", fmt.Errorf("failed to encode tiers: %w", err)
	}
	return string(b), nil
}

// SanitizeTiers normaliza as faixas recebidas no salvamento do produto:
// descarta linhas sem quantidade, usa o valor absoluto da quantidade,
// normaliza o preço e ordena por quantidade crescente.
func SanitizeTiers(inputs []TierInput) ([]Tier, error) {
	tiers := make([]Tier, 0, len(inputs))
	for i, in := range inputs {
		qtyStr := strings.TrimSpace(in.Quantity)
		if qtyStr == "" || qtyStr == "0" {
			continue
		}

		qty, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d quantity %q", ErrInvalidTier, i, in.Quantity)
		}
		if qty < 0 {
			qty = -qty
		}

		price := strings.TrimSpace(in.Price)
		if price != "" {
			price = strings.ReplaceAll(price, ",", ".")
			if _, err := decimal.NewFromString(price); err != nil {
				return nil, fmt.Errorf("%w: row %d price %q", ErrInvalidTier, i, in.Price)
			}
		}

		tiers = append(tiers, Tier{Quantity: qty, Price: price})
	}

	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].Quantity < tiers[j].Quantity
	})
	return tiers, nil
}

// activeTiers filtra as faixas inertes e ordena. Empates de quantidade
// são resolvidos pelo menor preço.
func activeTiers(tiers []Tier, descending bool) []Tier {
	active := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.Active() {
			active = append(active, t)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Quantity != active[j].Quantity {
			if descending {
				return active[i].Quantity > active[j].Quantity
			}
			return active[i].Quantity < active[j].Quantity
		}
		return active[i].PriceDecimal().LessThan(active[j].PriceDecimal())
	})
	return active
}

// ResolveTier devolve a faixa de maior quantidade cujo limite já foi atingido
func ResolveTier(tiers []Tier, unitsSold int) (Tier, bool) {
	for _, t := range activeTiers(tiers, true) {
		if t.Quantity <= unitsSold {
			return t, true
		}
	}
	return Tier{}, false
}

// NextTier devolve a primeira faixa ainda não atingida
func NextTier(tiers []Tier, unitsSold int) (Tier, bool) {
	for _, t := range activeTiers(tiers, false) {
		if t.Quantity > unitsSold {
			return t, true
		}
	}
	return Tier{}, false
}
