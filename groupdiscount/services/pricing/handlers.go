package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const internalTokenHeader = "X-Internal-Token"

// PricingUseCaseInterface define a interface para o use case
type PricingUseCaseInterface interface {
	ApplyDiscount(ctx context.Context, productID int64, basePrice, sessionID string) (string, error)
	IsOnSale(ctx context.Context, productID int64, onSale bool, sessionID string) (bool, error)
	RefreshPrice(ctx context.Context, req RefreshRequest) (RefreshPayload, error)
	Banner(ctx context.Context, productID int64, lang, sessionID string) (string, error)
	FlushProduct(ctx context.Context, req FlushRequest) (FlushResult, error)
	ClearAll(ctx context.Context, lang string) (string, error)
	SaveSettings(ctx context.Context, productID int64, settings DiscountSettings) ([]Tier, error)
	InvalidateForOrder(ctx context.Context, event OrderEvent) ([]int64, error)
	CartsChanged(ctx context.Context) error
	Translate(lang, key string, args ...any) string
}

// NonceService emite e valida nonces
type NonceService interface {
	Issue() (string, time.Time, error)
	Verify(nonce string) error
}

// RefreshPriceRequest é o corpo do refresh_price (form ou JSON)
type RefreshPriceRequest struct {
	Nonce      string `json:"nonce" form:"nonce"`
	ProductID  int64  `json:"product_id" form:"product_id"`
	Lang       string `json:"lang" form:"lang"`
	LastTotal  int    `json:"last_total" form:"last_total"`
	SessionID  string `json:"session_id" form:"session_id"`
	InCheckout bool   `json:"in_checkout" form:"in_checkout"`
}

// FlushCacheRequest é o corpo do flush_cache
type FlushCacheRequest struct {
	Nonce     string `json:"nonce" form:"nonce"`
	ProductID int64  `json:"product_id" form:"product_id"`
	DebugMode bool   `json:"debug_mode" form:"debug_mode"`
	Lang      string `json:"lang" form:"lang"`
}

// ClearCachesRequest é o corpo do clear_all_caches
type ClearCachesRequest struct {
	Nonce string `json:"nonce" form:"nonce"`
	Lang  string `json:"lang" form:"lang"`
}

// SaveSettingsRequest é o corpo da edição de produto
type SaveSettingsRequest struct {
	Nonce string `json:"nonce"`
	DiscountSettings
}

// PricingHandler contém os handlers HTTP
type PricingHandler struct {
	useCase PricingUseCaseInterface
	nonces  NonceService
	tracer  trace.Tracer
}

// NewPricingHandler cria uma nova instância de PricingHandler
func NewPricingHandler(useCase PricingUseCaseInterface, nonces NonceService, tracer trace.Tracer) *PricingHandler {
	return &PricingHandler{
		useCase: useCase,
		nonces:  nonces,
		tracer:  tracer,
	}
}

// Register registra as rotas do serviço; pageLoad roda antes das rotas da vitrine
func (h *PricingHandler) Register(r gin.IRouter, pageLoad gin.HandlerFunc, internalToken string) {
	if pageLoad == nil {
		pageLoad = func(c *gin.Context) { c.Next() }
	}

	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/pricing")
	api.GET("/nonce", h.IssueNonce)
	api.POST("/refresh-price", pageLoad, h.RefreshPrice)
	api.POST("/flush-cache", h.FlushCache)
	api.POST("/clear-all-caches", h.ClearAllCaches)

	products := r.Group("/api/products/:id")
	products.GET("/price", pageLoad, h.FilterPrice)
	products.GET("/on-sale", pageLoad, h.FilterOnSale)
	products.GET("/banner", pageLoad, h.Banner)
	products.PUT("/group-discount", h.SaveSettings)

	internal := r.Group("/internal", RequireInternalToken(internalToken))
	internal.POST("/orders/status-changed", h.OrderStatusChanged)
	internal.POST("/carts/changed", h.CartsChanged)
}

// RequireInternalToken protege as rotas chamadas apenas por outros serviços
func RequireInternalToken(token string) gin.HandlerFunc {
	if token == "" {
		log.Printf("⚠️  [INTERNAL] no internal token configured, internal routes are open")
	}
	return func(c *gin.Context) {
		if token != "" && c.GetHeader(internalTokenHeader) != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "data": "unauthorized"})
			return
		}
		c.Next()
	}
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// errorStatus mapeia os erros de domínio para status HTTP
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidNonce):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidProductID), errors.Is(err, ErrInvalidTier):
		return http.StatusBadRequest
	case errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCommerceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorMessage devolve a mensagem traduzida para os erros conhecidos
func (h *PricingHandler) errorMessage(err error, lang string) string {
	switch {
	case errors.Is(err, ErrInvalidNonce):
		return h.useCase.Translate(lang, "Invalid nonce")
	case errors.Is(err, ErrInvalidProductID):
		return h.useCase.Translate(lang, "Invalid product ID")
	case errors.Is(err, ErrProductNotFound):
		return h.useCase.Translate(lang, "Product not found or invalid")
	}
	return err.Error()
}

func (h *PricingHandler) fail(c *gin.Context, span trace.Span, err error, lang string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.JSON(errorStatus(err), gin.H{"success": false, "data": h.errorMessage(err, lang)})
}

func (h *PricingHandler) verifyNonce(nonce string) error {
	if h.nonces == nil {
		return nil
	}
	return h.nonces.Verify(nonce)
}

func productIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidProductID
	}
	return id, nil
}

// HealthCheck verifica a saúde do serviço
func (h *PricingHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricing-service",
	})
}

// IssueNonce emite um nonce para as chamadas AJAX
func (h *PricingHandler) IssueNonce(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "pricing.issue_nonce")
	defer span.End()

	if h.nonces == nil {
		success(c, gin.H{"nonce": ""})
		return
	}

	nonce, expiresAt, err := h.nonces.Issue()
	if err != nil {
		h.fail(c, span, err, "")
		return
	}
	success(c, gin.H{"nonce": nonce, "expires_at": expiresAt})
}

// RefreshPrice recalcula o preço atual do produto para o cliente
func (h *PricingHandler) RefreshPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.refresh_price")
	defer span.End()

	var req RefreshPriceRequest
	if err := c.ShouldBind(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": err.Error()})
		return
	}
	if err := h.verifyNonce(req.Nonce); err != nil {
		h.fail(c, span, err, req.Lang)
		return
	}

	span.SetAttributes(
		attribute.Int64("product_id", req.ProductID),
		attribute.String("lang", req.Lang),
		attribute.Int("last_total", req.LastTotal),
	)

	payload, err := h.useCase.RefreshPrice(ctx, RefreshRequest{
		ProductID:  req.ProductID,
		Lang:       req.Lang,
		LastTotal:  req.LastTotal,
		SessionID:  req.SessionID,
		InCheckout: req.InCheckout,
	})
	if err != nil {
		h.fail(c, span, err, req.Lang)
		return
	}

	span.SetAttributes(attribute.Int("total_sold", payload.TotalSold))
	success(c, payload)
}

// FlushCache limpa o cache do produto e devolve o total atualizado
func (h *PricingHandler) FlushCache(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.flush_cache")
	defer span.End()

	var req FlushCacheRequest
	if err := c.ShouldBind(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": err.Error()})
		return
	}
	if err := h.verifyNonce(req.Nonce); err != nil {
		h.fail(c, span, err, req.Lang)
		return
	}

	span.SetAttributes(attribute.Int64("product_id", req.ProductID))

	result, err := h.useCase.FlushProduct(ctx, FlushRequest{
		ProductID: req.ProductID,
		DebugMode: req.DebugMode,
		Lang:      req.Lang,
	})
	if err != nil {
		h.fail(c, span, err, req.Lang)
		return
	}
	success(c, result)
}

// ClearAllCaches limpa todos os caches do desconto em grupo
func (h *PricingHandler) ClearAllCaches(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.clear_all_caches")
	defer span.End()

	var req ClearCachesRequest
	if err := c.ShouldBind(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": err.Error()})
		return
	}
	if err := h.verifyNonce(req.Nonce); err != nil {
		h.fail(c, span, err, req.Lang)
		return
	}

	msg, err := h.useCase.ClearAll(ctx, req.Lang)
	if err != nil {
		h.fail(c, span, err, req.Lang)
		return
	}
	success(c, msg)
}

// FilterPrice aplica o desconto a uma leitura de preço (price ou regular_price)
func (h *PricingHandler) FilterPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.filter_price")
	defer span.End()

	productID, err := productIDParam(c)
	if err != nil {
		h.fail(c, span, err, "")
		return
	}

	field := c.DefaultQuery("field", "price")
	if field != "price" && field != "regular_price" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": "field must be price or regular_price"})
		return
	}
	base := c.Query("base")

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.String("field", field),
	)

	price, err := h.useCase.ApplyDiscount(ctx, productID, base, c.Query("session_id"))
	if err != nil {
		h.fail(c, span, err, "")
		return
	}

	success(c, gin.H{
		"product_id": productID,
		"field":      field,
		"base":       base,
		"price":      price,
	})
}

// FilterOnSale decide se o produto aparece como em promoção
func (h *PricingHandler) FilterOnSale(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.filter_on_sale")
	defer span.End()

	productID, err := productIDParam(c)
	if err != nil {
		h.fail(c, span, err, "")
		return
	}
	onSale, _ := strconv.ParseBool(c.DefaultQuery("on_sale", "false"))

	result, err := h.useCase.IsOnSale(ctx, productID, onSale, c.Query("session_id"))
	if err != nil {
		h.fail(c, span, err, "")
		return
	}
	success(c, gin.H{"product_id": productID, "on_sale": result})
}

// Banner devolve o HTML do bloco de desconto da página do produto
func (h *PricingHandler) Banner(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.banner")
	defer span.End()

	lang := c.Query("lang")
	productID, err := productIDParam(c)
	if err != nil {
		h.fail(c, span, err, lang)
		return
	}

	html, err := h.useCase.Banner(ctx, productID, lang, c.Query("session_id"))
	if err != nil {
		h.fail(c, span, err, lang)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// SaveSettings grava a configuração de desconto em grupo do produto
func (h *PricingHandler) SaveSettings(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.save_settings")
	defer span.End()

	productID, err := productIDParam(c)
	if err != nil {
		h.fail(c, span, err, "")
		return
	}

	var req SaveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": err.Error()})
		return
	}
	if err := h.verifyNonce(req.Nonce); err != nil {
		h.fail(c, span, err, "")
		return
	}

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Bool("enabled", req.Enabled),
		attribute.Int("tiers", len(req.Tiers)),
	)

	tiers, err := h.useCase.SaveSettings(ctx, productID, req.DiscountSettings)
	if err != nil {
		h.fail(c, span, err, "")
		return
	}
	success(c, gin.H{
		"product_id": productID,
		"enabled":    req.Enabled,
		"debug_mode": req.DebugMode,
		"tiers":      tiers,
	})
}

// OrderStatusChanged recebe a notificação de mudança de status de pedido.
// Pode ser entregue mais de uma vez.
func (h *PricingHandler) OrderStatusChanged(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.order_status_changed")
	defer span.End()

	var event OrderEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int64("order_id", event.OrderID),
		attribute.String("status", event.Status),
	)

	productIDs, err := h.useCase.InvalidateForOrder(ctx, event)
	if err != nil {
		h.fail(c, span, err, "")
		return
	}
	success(c, gin.H{"order_id": event.OrderID, "product_ids": productIDs})
}

// CartsChanged recebe a notificação de alteração de carrinho
func (h *PricingHandler) CartsChanged(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "pricing.carts_changed")
	defer span.End()

	if err := h.useCase.CartsChanged(ctx); err != nil {
		h.fail(c, span, err, "")
		return
	}
	success(c, gin.H{"result": "success"})
}
