package main

import (
	"context"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// QuantityBreakdown detalha o cálculo do total vendido
type QuantityBreakdown struct {
	ProductID int64          `json:"product_id"`
	Sources   map[string]int `json:"sources"`
	Failed    []string       `json:"failed,omitempty"`
	Redundant int            `json:"redundant"`
	Additive  int            `json:"additive"`
	Ceiling   int            `json:"ceiling"`
	Total     int            `json:"total"`
}

// QuantityAggregator combina as fontes de quantidade:
// total = max(redundantes) + soma(aditivas), nunca negativo; uma fonte teto maior substitui o total.
type QuantityAggregator struct {
	sources []QuantitySource
	cache   *DiscountCache
	soldTTL time.Duration
	metrics *Metrics
	debug   debugLogger
}

// NewQuantityAggregator cria uma nova instância de QuantityAggregator
func NewQuantityAggregator(sources []QuantitySource, cache *DiscountCache, soldTTL time.Duration, metrics *Metrics, debug bool) *QuantityAggregator {
	if soldTTL <= 0 {
		soldTTL = 10 * time.Second
	}
	return &QuantityAggregator{
		sources: sources,
		cache:   cache,
		soldTTL: soldTTL,
		metrics: metrics,
		debug:   debugLogger{enabled: debug},
	}
}

// settledCount é a parte do total que não depende do visitante; é a única
// parte guardada em cache, pois a chave não carrega a sessão
type settledCount struct {
	Redundant int
	Ceiling   int
}

// total soma a demanda do visitante e reaplica o teto
func (s settledCount) total(additive int) int {
	return max(0, s.Redundant+additive, s.Ceiling)
}

func (s settledCount) encode() string {
	return strconv.Itoa(s.Redundant) + ":" + strconv.Itoa(s.Ceiling)
}

func decodeSettled(raw string) (settledCount, bool) {
	redundant, ceiling, ok := strings.Cut(raw, ":")
	if !ok {
		return settledCount{}, false
	}
	r, err := strconv.Atoi(redundant)
	if err != nil || r < 0 {
		return settledCount{}, false
	}
	c, err := strconv.Atoi(ceiling)
	if err != nil || c < 0 {
		return settledCount{}, false
	}
	return settledCount{Redundant: r, Ceiling: c}, true
}

func (a *QuantityAggregator) cachedSettled(ctx context.Context, productID int64) (settledCount, bool) {
	return a.readSettled(ctx, productID, false)
}

// peekSettled ignora o desvio aleatório; usado para não sobrescrever um total maior
func (a *QuantityAggregator) peekSettled(ctx context.Context, productID int64) (settledCount, bool) {
	return a.readSettled(ctx, productID, true)
}

func (a *QuantityAggregator) readSettled(ctx context.Context, productID int64, peek bool) (settledCount, bool) {
	if a.cache == nil {
		return settledCount{}, false
	}
	read := a.cache.Get
	if peek {
		read = a.cache.Peek
	}
	raw, ok := read(ctx, SoldCountKey(productID))
	if !ok {
		return settledCount{}, false
	}
	return decodeSettled(raw)
}

func (a *QuantityAggregator) storeSettled(ctx context.Context, productID int64, settled settledCount, ttl time.Duration) {
	if a.cache == nil {
		return
	}
	a.cache.Set(ctx, SoldCountKey(productID), settled.encode(), ttl)
}

// TotalSold devolve o total vendido. A parte compartilhada vem do cache
// quando possível; a demanda do visitante é sempre consultada na hora.
func (a *QuantityAggregator) TotalSold(ctx context.Context, req QuantityRequest) int {
	if settled, ok := a.cachedSettled(ctx, req.ProductID); ok {
		demand := a.collect(ctx, "quantity.demand", req, SourceAdditive)
		total := settled.total(demand.Additive)
		a.debug.Printf("Returning cached total for product %d: %d (settled %d, ceiling %d, demand %d)",
			req.ProductID, total, settled.Redundant, settled.Ceiling, demand.Additive)
		return total
	}

	breakdown := a.Compute(ctx, req)
	a.storeSettled(ctx, req.ProductID, settledCount{Redundant: breakdown.Redundant, Ceiling: breakdown.Ceiling}, a.soldTTL)
	return breakdown.Total
}

// Compute consulta todas as fontes sem passar pelo cache
func (a *QuantityAggregator) Compute(ctx context.Context, req QuantityRequest) QuantityBreakdown {
	breakdown := a.collect(ctx, "quantity.compute", req, SourceRedundant, SourceAdditive, SourceCeiling)

	total := settledCount{Redundant: breakdown.Redundant, Ceiling: breakdown.Ceiling}.total(breakdown.Additive)
	if breakdown.Ceiling > max(0, breakdown.Redundant+breakdown.Additive) {
		a.debug.Printf("Using ceiling count for product %d: %d", req.ProductID, breakdown.Ceiling)
	}
	breakdown.Total = total

	a.debug.Printf("Final total for product %d: %d (redundant %d, additive %d, ceiling %d)",
		req.ProductID, total, breakdown.Redundant, breakdown.Additive, breakdown.Ceiling)
	return breakdown
}

// collect consulta as fontes dos tipos pedidos; uma fonte que falha conta zero
func (a *QuantityAggregator) collect(ctx context.Context, spanName string, req QuantityRequest, kinds ...SourceKind) QuantityBreakdown {
	ctx, span := startSpan(ctx, spanName, attribute.Int64("product_id", req.ProductID))
	defer span.End()

	breakdown := QuantityBreakdown{
		ProductID: req.ProductID,
		Sources:   make(map[string]int, len(a.sources)),
	}

	for _, source := range a.sources {
		if !slices.Contains(kinds, source.Kind()) {
			continue
		}
		qty, err := source.Quantity(ctx, req)
		if err != nil {
			log.Printf("⚠️  [QUANTITY] source %s failed for product %d: %v", source.Name(), req.ProductID, err)
			span.RecordError(err)
			a.metrics.SourceFailure(ctx, source.Name())
			breakdown.Failed = append(breakdown.Failed, source.Name())
			qty = 0
		}
		breakdown.Sources[source.Name()] = qty

		switch source.Kind() {
		case SourceRedundant:
			breakdown.Redundant = max(breakdown.Redundant, qty)
		case SourceAdditive:
			breakdown.Additive += qty
		case SourceCeiling:
			breakdown.Ceiling = max(breakdown.Ceiling, qty)
		}
	}

	span.SetAttributes(
		attribute.Int("redundant", breakdown.Redundant),
		attribute.Int("additive", breakdown.Additive),
		attribute.Int("ceiling", breakdown.Ceiling),
	)
	return breakdown
}
