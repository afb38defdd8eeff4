package main

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Chaves de meta persistidas por produto
const (
	MetaEnabled      = "_group_discount_enabled"
	MetaDebugMode    = "_group_discount_debug_mode"
	MetaTiers        = "_group_discount_tiers"
	MetaRegularPrice = "_regular_price"
)

// ProductType representa os tipos de produto da loja
const (
	ProductTypeSimple    = "simple"
	ProductTypeVariable  = "variable"
	ProductTypeVariation = "variation"
)

// OrderStatus representa os possíveis status de um pedido (sem o prefixo "wc-")
const (
	OrderStatusCompleted  = "completed"
	OrderStatusProcessing = "processing"
	OrderStatusOnHold     = "on-hold"
	OrderStatusPending    = "pending"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
	OrderStatusFailed     = "failed"
)

// legacyStatusPrefix is how the legacy post storage prefixes order statuses.
const legacyStatusPrefix = "wc-"

// CountableStatuses são os status cujas quantidades contam para liberar faixas
var CountableStatuses = []string{
	OrderStatusCompleted,
	OrderStatusProcessing,
	OrderStatusOnHold,
	OrderStatusPending,
}

// AllOrderStatuses lista todos os status reportados no diagnóstico
var AllOrderStatuses = []string{
	OrderStatusCompleted,
	OrderStatusProcessing,
	OrderStatusOnHold,
	OrderStatusPending,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusFailed,
}

var (
	ErrInvalidProductID    = errors.New("invalid product ID")
	ErrProductNotFound     = errors.New("product not found or invalid")
	ErrCommerceUnavailable = errors.New("commerce store unavailable")
	ErrInvalidTier         = errors.New("invalid tier")
	ErrInvalidNonce        = errors.New("invalid nonce")
)

// IsCountableStatus verifica se o status conta para o total vendido.
// Aceita o status com ou sem o prefixo "wc-".
func IsCountableStatus(status string) bool {
	status = strings.TrimPrefix(status, legacyStatusPrefix)
	for _, s := range CountableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// LegacyStatuses devolve os status com o prefixo usado pela storage legada
func LegacyStatuses(statuses []string) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, legacyStatusPrefix+strings.TrimPrefix(s, legacyStatusPrefix))
	}
	return out
}

// Product representa um produto da loja com os atributos de desconto em grupo
type Product struct {
	ID           int64             `json:"id"`
	ParentID     int64             `json:"parent_id"`
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	RegularPrice string            `json:"regular_price"`
	Price        string            `json:"price"`
	Meta         map[string]string `json:"meta"`
}

// MetaValue devolve o valor de uma chave de meta ou "" se ausente
func (p *Product) MetaValue(key string) string {
	if p == nil || p.Meta == nil {
		return ""
	}
	return p.Meta[key]
}

// DiscountEnabled indica se o desconto em grupo está habilitado
func (p *Product) DiscountEnabled() bool {
	return p.MetaValue(MetaEnabled) == "yes"
}

// DebugMode indica se o modo de depuração do produto está ligado
func (p *Product) DebugMode() bool {
	return p.MetaValue(MetaDebugMode) == "yes"
}

// IsVariable indica se o produto é variável (possui variações)
func (p *Product) IsVariable() bool {
	return p.Type == ProductTypeVariable
}

// Tiers decodifica a lista de faixas persistida no meta do produto
func (p *Product) Tiers() []Tier {
	tiers, err := DecodeTiers(p.MetaValue(MetaTiers))
	if err != nil {
		return nil
	}
	return tiers
}

// DiscountSettings é o payload de edição do produto (aba de desconto em grupo)
type DiscountSettings struct {
	Enabled   bool        `json:"enabled" form:"enabled"`
	DebugMode bool        `json:"debug_mode" form:"debug_mode"`
	Tiers     []TierInput `json:"tiers"`
}

// parseDecimal converte um preço armazenado como string; "" é inválido
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
