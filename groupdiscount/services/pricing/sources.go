package main

import (
	"context"
)

// SourceKind define como uma fonte de quantidade entra no total
type SourceKind int

const (
	// SourceRedundant mede as mesmas vendas que as outras fontes redundantes; vale o maior valor
	SourceRedundant SourceKind = iota
	// SourceAdditive mede unidades que nenhuma outra fonte vê; é somada
	SourceAdditive
	// SourceCeiling substitui o total quando for maior
	SourceCeiling
)

func (k SourceKind) String() string {
	switch k {
	case SourceRedundant:
		return "redundant"
	case SourceAdditive:
		return "additive"
	case SourceCeiling:
		return "ceiling"
	default:
		return "unknown"
	}
}

// Nomes das fontes padrão
const (
	SourceLineItems     = "line_items"
	SourceOrderStats    = "order_stats"
	SourceRawOrders     = "raw_orders"
	SourceCart          = "cart"
	SourceCheckoutOrder = "checkout_order"
	SourceDirectCount   = "direct_count"
)

// QuantityRequest identifica o produto e o contexto do visitante
type QuantityRequest struct {
	ProductID  int64
	SessionID  string
	InCheckout bool
}

// QuantitySource é uma fonte nomeada de quantidade vendida
type QuantitySource interface {
	Name() string
	Kind() SourceKind
	Quantity(ctx context.Context, req QuantityRequest) (int, error)
}

type sourceFunc struct {
	name string
	kind SourceKind
	fn   func(ctx context.Context, req QuantityRequest) (int, error)
}

func (s sourceFunc) Name() string     { return s.name }
func (s sourceFunc) Kind() SourceKind { return s.kind }

func (s sourceFunc) Quantity(ctx context.Context, req QuantityRequest) (int, error) {
	return s.fn(ctx, req)
}

// NewSource cria uma fonte a partir de uma função
func NewSource(name string, kind SourceKind, fn func(ctx context.Context, req QuantityRequest) (int, error)) QuantitySource {
	return sourceFunc{name: name, kind: kind, fn: fn}
}

// NewDefaultSources monta as seis fontes sobre o repositório da loja
func NewDefaultSources(repo SalesRepository) []QuantitySource {
	return []QuantitySource{
		NewSource(SourceLineItems, SourceRedundant, func(ctx context.Context, req QuantityRequest) (int, error) {
			return repo.CountableLineItemQuantity(ctx, req.ProductID)
		}),
		NewSource(SourceOrderStats, SourceRedundant, func(ctx context.Context, req QuantityRequest) (int, error) {
			return repo.ReportedQuantity(ctx, req.ProductID)
		}),
		NewSource(SourceRawOrders, SourceRedundant, func(ctx context.Context, req QuantityRequest) (int, error) {
			return repo.RawLineItemQuantity(ctx, req.ProductID)
		}),
		NewSource(SourceCart, SourceAdditive, func(ctx context.Context, req QuantityRequest) (int, error) {
			return repo.CartQuantity(ctx, req.SessionID, req.ProductID)
		}),
		NewSource(SourceCheckoutOrder, SourceAdditive, func(ctx context.Context, req QuantityRequest) (int, error) {
			if !req.InCheckout {
				return 0, nil
			}
			return repo.CheckoutOrderQuantity(ctx, req.SessionID, req.ProductID)
		}),
		NewSource(SourceDirectCount, SourceCeiling, func(ctx context.Context, req QuantityRequest) (int, error) {
			return repo.DirectItemQuantity(ctx, req.ProductID)
		}),
	}
}
