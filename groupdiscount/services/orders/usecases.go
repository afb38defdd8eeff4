package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// OrderUseCase contém a lógica de negócio dos pedidos e carrinhos
type OrderUseCase struct {
	repository Repository
	publisher  InvalidationPublisher
}

// NewOrderUseCase cria uma nova instância de OrderUseCase
func NewOrderUseCase(
	repository Repository,
	publisher InvalidationPublisher,
) *OrderUseCase {
	return &OrderUseCase{
		repository: repository,
		publisher:  publisher,
	}
}

// ChangeStatus grava o novo status do pedido e avisa o serviço de preços.
// Devolve o evento publicado e o gid DTM (vazio sem coordenador).
func (uc *OrderUseCase) ChangeStatus(ctx context.Context, orderID int64, req UpdateStatusRequest) (StatusChangedEvent, string, error) {
	change, err := NewStatusChange(orderID, req.Status, req.Storage)
	if err != nil {
		return StatusChangedEvent{}, "", err
	}

	log.Printf("➡️ [ORDER STATUS] OrderID: %d | Status: %s | Storage: %s", change.OrderID, change.Status, change.Storage)

	productIDs, err := uc.repository.OrderProductIDs(ctx, change.OrderID)
	if err != nil {
		log.Printf("⚠️  Could not list products of order %d, pricing will look them up: %v", change.OrderID, err)
		productIDs = nil
	}

	event := StatusChangedEvent{
		OrderID:    change.OrderID,
		Status:     change.Status,
		ProductIDs: productIDs,
	}

	gid, err := uc.publisher.PublishStatusChange(ctx, event, func(tx *sql.Tx) error {
		return uc.repository.UpdateOrderStatus(ctx, tx, change)
	})
	if err != nil {
		log.Printf("❌ Failed to change order status: %v", err)
		return StatusChangedEvent{}, gid, fmt.Errorf("failed to change order status: %w", err)
	}

	log.Printf("✅ Order %d status changed to %s", change.OrderID, change.Status)
	return event, gid, nil
}

// UpdateCartItem grava a linha do carrinho e avisa o serviço de preços
func (uc *OrderUseCase) UpdateCartItem(ctx context.Context, sessionID string, req CartItemRequest) (CartItem, error) {
	item, err := NewCartItem(sessionID, req.ProductID, req.Quantity)
	if err != nil {
		return CartItem{}, err
	}

	if err := uc.repository.UpsertCartItem(ctx, item); err != nil {
		log.Printf("❌ Failed to save cart item: %v", err)
		return CartItem{}, err
	}

	if err := uc.publisher.PublishCartChange(ctx, item.SessionID); err != nil {
		log.Printf("⚠️  Pricing cart notification failed for session %s: %v", item.SessionID, err)
	}

	log.Printf("🛒 [CART] Session: %s | ProductID: %d | Quantity: %d", item.SessionID, item.ProductID, item.Quantity)
	return item, nil
}
