package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/dtm-labs/client/dtmcli"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderUseCaseInterface define a interface para o use case
type OrderUseCaseInterface interface {
	ChangeStatus(ctx context.Context, orderID int64, req UpdateStatusRequest) (StatusChangedEvent, string, error)
	UpdateCartItem(ctx context.Context, sessionID string, req CartItemRequest) (CartItem, error)
}

// OrderHandler contém os handlers HTTP
type OrderHandler struct {
	useCase   OrderUseCaseInterface
	barrierDB *sql.DB
	tracer    trace.Tracer
}

// NewOrderHandler cria uma nova instância de OrderHandler
func NewOrderHandler(useCase OrderUseCaseInterface, barrierDB *sql.DB, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{
		useCase:   useCase,
		barrierDB: barrierDB,
		tracer:    tracer,
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidOrderID), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidStorage), errors.Is(err, ErrInvalidCartItem):
		return http.StatusBadRequest
	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ChangeStatus muda o status de um pedido
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "change_order_status")
	defer span.End()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidOrderID.Error()})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", req.Status),
		attribute.String("storage", req.Storage),
	)

	event, gid, err := h.useCase.ChangeStatus(ctx, orderID, req)
	if err != nil {
		span.RecordError(err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("dtm_gid", gid))
	c.JSON(http.StatusOK, gin.H{
		"order_id":    event.OrderID,
		"status":      event.Status,
		"product_ids": event.ProductIDs,
		"dtm_gid":     gid,
		"message":     "Order status updated",
	})
}

// UpdateCartItem grava uma linha de carrinho
func (h *OrderHandler) UpdateCartItem(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_cart_item")
	defer span.End()

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.Param("session_id")
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int64("product_id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	)

	item, err := h.useCase.UpdateCartItem(ctx, sessionID, req)
	if err != nil {
		span.RecordError(err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, item)
}

// QueryPrepared é consultado pelo DTM para saber se a transação local de uma mensagem foi commitada
func (h *OrderHandler) QueryPrepared(c *gin.Context) {
	bb, err := dtmcli.BarrierFromQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, span := StartQueryPreparedSpan(c.Request.Context(), bb)
	defer span.End()

	if h.barrierDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "barrier database not configured"})
		return
	}

	err = bb.QueryPrepared(h.barrierDB)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"dtm_result": dtmcli.ResultSuccess})
	case errors.Is(err, dtmcli.ErrFailure):
		log.Printf("↩️ [QUERY PREPARED] GID %s rolled back", bb.Gid)
		c.JSON(http.StatusConflict, gin.H{"dtm_result": dtmcli.ResultFailure})
	default:
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// HealthCheck verifica a saúde do serviço
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "orders-service",
	})
}
