package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RefreshRequest são os parâmetros do refresh_price
type RefreshRequest struct {
	ProductID  int64
	Lang       string
	LastTotal  int
	SessionID  string
	InCheckout bool
}

// FlushRequest são os parâmetros do flush_cache
type FlushRequest struct {
	ProductID int64
	DebugMode bool
	Lang      string
}

// FlushDebugInfo é o diagnóstico devolvido pelo flush_cache em modo debug
type FlushDebugInfo struct {
	TotalSold   int               `json:"total_sold"`
	DirectCount int               `json:"direct_count"`
	OrderStats  map[string]int    `json:"order_stats"`
	Breakdown   QuantityBreakdown `json:"breakdown"`
	Tiers       []Tier            `json:"tiers"`
	CurrentTier FalseOr[Tier]     `json:"current_tier"`
	NextTier    FalseOr[Tier]     `json:"next_tier"`
}

// FlushResult é a resposta do flush_cache
type FlushResult struct {
	TotalSold int             `json:"total_sold"`
	Message   string          `json:"message"`
	DebugInfo *FlushDebugInfo `json:"debug_info"`
}

// OrderEvent é a notificação de mudança de status de pedido
type OrderEvent struct {
	OrderID    int64   `json:"order_id" binding:"required,gt=0"`
	Status     string  `json:"status"`
	ProductIDs []int64 `json:"product_ids"`
}

// PricingUseCase contém a lógica de negócio do desconto em grupo
type PricingUseCase struct {
	repository Repository
	aggregator *QuantityAggregator
	cache      *DiscountCache
	presenter  *Presenter
	site       SiteConfig
	warmTTL    time.Duration
	debug      debugLogger
}

// NewPricingUseCase cria uma nova instância de PricingUseCase
func NewPricingUseCase(
	repository Repository,
	aggregator *QuantityAggregator,
	cache *DiscountCache,
	presenter *Presenter,
	site SiteConfig,
	warmTTL time.Duration,
	debug bool,
) *PricingUseCase {
	if warmTTL <= 0 {
		warmTTL = 60 * time.Second
	}
	return &PricingUseCase{
		repository: repository,
		aggregator: aggregator,
		cache:      cache,
		presenter:  presenter,
		site:       site,
		warmTTL:    warmTTL,
		debug:      debugLogger{enabled: debug},
	}
}

func (uc *PricingUseCase) loadProduct(ctx context.Context, productID int64) (*Product, error) {
	if productID <= 0 {
		return nil, ErrInvalidProductID
	}
	product, err := uc.repository.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// resolve devolve a faixa atual e a próxima para o total vendido
func resolve(tiers []Tier, totalSold int) (FalseOr[Tier], FalseOr[Tier]) {
	var current, next FalseOr[Tier]
	if t, ok := ResolveTier(tiers, totalSold); ok {
		current = Some(t)
	}
	if t, ok := NextTier(tiers, totalSold); ok {
		next = Some(t)
	}
	return current, next
}

// ApplyDiscount devolve o preço da faixa atingida ou o preço base inalterado.
// Vale igualmente para leituras de price e regular_price.
func (uc *PricingUseCase) ApplyDiscount(ctx context.Context, productID int64, basePrice, sessionID string) (string, error) {
	product, err := uc.loadProduct(ctx, productID)
	if err != nil {
		return basePrice, err
	}

	if !product.DiscountEnabled() || strings.TrimSpace(basePrice) == "" {
		return basePrice, nil
	}
	tiers := product.Tiers()
	if len(tiers) == 0 {
		return basePrice, nil
	}

	totalSold := uc.aggregator.TotalSold(ctx, QuantityRequest{ProductID: productID, SessionID: sessionID})
	tier, ok := ResolveTier(tiers, totalSold)
	if !ok {
		uc.aggregator.metrics.TierResolution(ctx, "none")
		return basePrice, nil
	}

	uc.aggregator.metrics.TierResolution(ctx, "tier")
	uc.debug.Printf("Product %d: %d sold, tier %d applies (%s -> %s)", productID, totalSold, tier.Quantity, basePrice, tier.Price)
	return tier.Price, nil
}

// IsOnSale marca o produto em promoção quando a faixa atual é menor que o preço regular real
func (uc *PricingUseCase) IsOnSale(ctx context.Context, productID int64, onSale bool, sessionID string) (bool, error) {
	if onSale {
		return true, nil
	}

	product, err := uc.loadProduct(ctx, productID)
	if err != nil {
		return onSale, err
	}
	if !product.DiscountEnabled() {
		return onSale, nil
	}
	tiers := product.Tiers()
	if len(tiers) == 0 {
		return onSale, nil
	}

	totalSold := uc.aggregator.TotalSold(ctx, QuantityRequest{ProductID: productID, SessionID: sessionID})
	tier, ok := ResolveTier(tiers, totalSold)
	if !ok {
		return onSale, nil
	}

	regular, err := uc.TrueRegularPrice(ctx, product)
	if err != nil {
		return onSale, err
	}
	return tier.PriceDecimal().LessThan(regular), nil
}

// TrueRegularPrice lê o preço regular sem passar pelo filtro de desconto:
// meta _regular_price, coluna regular_price, menor preço das variações, preço atual.
func (uc *PricingUseCase) TrueRegularPrice(ctx context.Context, product *Product) (decimal.Decimal, error) {
	if d, ok := parseDecimal(product.MetaValue(MetaRegularPrice)); ok && !d.IsZero() {
		return d, nil
	}
	if d, ok := parseDecimal(product.RegularPrice); ok && !d.IsZero() {
		return d, nil
	}
	if product.IsVariable() {
		minPrice, err := uc.repository.MinVariationRegularPrice(ctx, product.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to resolve regular price: %w", err)
		}
		if d, ok := parseDecimal(minPrice); ok && !d.IsZero() {
			return d, nil
		}
	}

	d, _ := parseDecimal(product.Price)
	uc.debug.Printf("Using fallback price for product %d: %s", product.ID, d)
	return d, nil
}

func (uc *PricingUseCase) variant(lang string) Variant {
	return DetectVariant(uc.site.Locale, uc.site.ContentSample(), lang)
}

// Translate traduz uma mensagem para a variante de idioma da requisição
func (uc *PricingUseCase) Translate(lang, key string, args ...any) string {
	return uc.presenter.translator.Printer(uc.variant(lang)).Sprintf(key, args...)
}

func responseLanguage(v Variant, lang string) string {
	if v.IsChinese() {
		return v.Code()
	}
	return NormalizeLocale(lang)
}

func (uc *PricingUseCase) priceView(ctx context.Context, product *Product, totalSold, lastTotal int, lang string) (PriceView, error) {
	regular, err := uc.TrueRegularPrice(ctx, product)
	if err != nil {
		return PriceView{}, err
	}
	current, next := resolve(product.Tiers(), totalSold)
	variant := uc.variant(lang)

	return PriceView{
		ProductID:    product.ID,
		TotalSold:    totalSold,
		LastTotal:    lastTotal,
		RegularPrice: regular,
		Current:      current,
		Next:         next,
		Variant:      variant,
		Language:     responseLanguage(variant, lang),
	}, nil
}

// RefreshPrice recalcula o total vendido e monta o payload do cliente
func (uc *PricingUseCase) RefreshPrice(ctx context.Context, req RefreshRequest) (RefreshPayload, error) {
	product, err := uc.loadProduct(ctx, req.ProductID)
	if err != nil {
		return RefreshPayload{}, err
	}

	uc.cache.Delete(ctx, SoldCountKey(req.ProductID))
	totalSold := uc.aggregator.TotalSold(ctx, QuantityRequest{
		ProductID:  req.ProductID,
		SessionID:  req.SessionID,
		InCheckout: req.InCheckout,
	})

	view, err := uc.priceView(ctx, product, totalSold, req.LastTotal, req.Lang)
	if err != nil {
		return RefreshPayload{}, err
	}

	payload := uc.presenter.RefreshPayload(view)
	log.Printf("🔄 [REFRESH PRICE] ProductID: %d | TotalSold: %d | Language: %s", req.ProductID, totalSold, payload.Language)
	return payload, nil
}

// Banner devolve o HTML do bloco de desconto; vazio quando o desconto não se aplica
func (uc *PricingUseCase) Banner(ctx context.Context, productID int64, lang, sessionID string) (string, error) {
	product, err := uc.loadProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	if !product.DiscountEnabled() || len(product.Tiers()) == 0 {
		return "", nil
	}

	totalSold := uc.aggregator.TotalSold(ctx, QuantityRequest{ProductID: productID, SessionID: sessionID})
	view, err := uc.priceView(ctx, product, totalSold, 0, lang)
	if err != nil {
		return "", err
	}
	return uc.presenter.BannerHTML(view), nil
}

// FlushProduct limpa o cache do produto e recalcula o total vendido
func (uc *PricingUseCase) FlushProduct(ctx context.Context, req FlushRequest) (FlushResult, error) {
	product, err := uc.loadProduct(ctx, req.ProductID)
	if err != nil {
		return FlushResult{}, err
	}

	log.Printf("🧹 [FLUSH CACHE] ProductID: %d", req.ProductID)
	uc.cache.Delete(ctx, SoldCountKey(req.ProductID))

	directCount, err := uc.repository.DirectItemQuantity(ctx, req.ProductID)
	if err != nil {
		log.Printf("⚠️  [FLUSH CACHE] direct count failed for product %d: %v", req.ProductID, err)
		directCount = 0
	}

	qreq := QuantityRequest{ProductID: req.ProductID}
	totalSold := uc.aggregator.TotalSold(ctx, qreq)
	if directCount > totalSold {
		uc.debug.Printf("Using direct count for product %d as it's higher: %d", req.ProductID, directCount)
		totalSold = directCount
	}

	result := FlushResult{
		TotalSold: totalSold,
		Message:   uc.Translate(req.Lang, "Sales count refreshed: %d units sold", totalSold),
	}

	if req.DebugMode || product.DebugMode() {
		breakdown := uc.aggregator.Compute(ctx, qreq)
		tiers := product.Tiers()
		current, next := resolve(tiers, totalSold)
		result.DebugInfo = &FlushDebugInfo{
			TotalSold:   totalSold,
			DirectCount: directCount,
			OrderStats:  uc.orderStats(ctx, req.ProductID, breakdown),
			Breakdown:   breakdown,
			Tiers:       tiers,
			CurrentTier: current,
			NextTier:    next,
		}
	}
	return result, nil
}

// orderStats monta o diagnóstico por status
func (uc *PricingUseCase) orderStats(ctx context.Context, productID int64, breakdown QuantityBreakdown) map[string]int {
	stats, err := uc.repository.StatusQuantities(ctx, productID)
	if err != nil {
		log.Printf("⚠️  [ORDER STATS] failed for product %d: %v", productID, err)
		stats = map[string]int{}
	}

	counted := breakdown.Sources[SourceCart]
	for _, status := range CountableStatuses {
		counted += stats[status]
	}
	stats["cart-current"] = breakdown.Sources[SourceCart]
	stats["fallback_total"] = breakdown.Sources[SourceDirectCount]
	stats["counted_total"] = counted
	return stats
}

// ClearAll limpa todos os caches do desconto em grupo
func (uc *PricingUseCase) ClearAll(ctx context.Context, lang string) (string, error) {
	if _, err := uc.cache.ForceClearAll(ctx, "manual"); err != nil {
		return "", err
	}
	return uc.Translate(lang, "All caches cleared successfully."), nil
}

// SaveSettings valida e grava a configuração de desconto do produto
func (uc *PricingUseCase) SaveSettings(ctx context.Context, productID int64, settings DiscountSettings) ([]Tier, error) {
	if productID <= 0 {
		return nil, ErrInvalidProductID
	}

	tiers, err := SanitizeTiers(settings.Tiers)
	if err != nil {
		return nil, err
	}

	if err := uc.repository.SaveDiscountSettings(ctx, productID, settings.Enabled, settings.DebugMode, tiers); err != nil {
		return nil, fmt.Errorf("failed to save group discount settings: %w", err)
	}

	uc.cache.Delete(ctx, SoldCountKey(productID))
	log.Printf("💾 [SAVE SETTINGS] ProductID: %d | Enabled: %v | Tiers: %d", productID, settings.Enabled, len(tiers))
	return tiers, nil
}

// InvalidateForOrder reage a uma mudança de status de pedido: limpa todos os
// caches e o total vendido de cada produto do pedido
func (uc *PricingUseCase) InvalidateForOrder(ctx context.Context, event OrderEvent) ([]int64, error) {
	log.Printf("📦 [ORDER STATUS] OrderID: %d | Status: %s", event.OrderID, event.Status)

	if _, err := uc.cache.ForceClearAll(ctx, "order_status"); err != nil {
		return nil, err
	}

	productIDs := event.ProductIDs
	if len(productIDs) == 0 {
		ids, err := uc.repository.OrderProductIDs(ctx, event.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load products of order %d: %w", event.OrderID, err)
		}
		productIDs = ids
	}

	for _, id := range productIDs {
		uc.cache.Delete(ctx, SoldCountKey(id))
	}
	return productIDs, nil
}

// CartsChanged limpa os caches quando um carrinho muda
func (uc *PricingUseCase) CartsChanged(ctx context.Context) error {
	_, err := uc.cache.ForceClearAll(ctx, "cart")
	return err
}

// Warm grava a contagem direta dos produtos habilitados quando não há valor
// em cache ou quando ela é maior que o valor em cache
func (uc *PricingUseCase) Warm(ctx context.Context) (int, error) {
	ids, err := uc.repository.EnabledProductIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list enabled products: %w", err)
	}

	warmed := 0
	for _, id := range ids {
		direct, err := uc.repository.DirectItemQuantity(ctx, id)
		if err != nil {
			log.Printf("⚠️  [WARM] direct count failed for product %d: %v", id, err)
			continue
		}

		cached, ok := uc.aggregator.peekSettled(ctx, id)
		if ok && direct <= cached.total(0) {
			continue
		}
		cached.Ceiling = direct
		uc.aggregator.storeSettled(ctx, id, cached, uc.warmTTL)
		warmed++
	}
	uc.debug.Printf("Warmed %d of %d enabled products", warmed, len(ids))
	return warmed, nil
}
