package main

import (
	"errors"
	"strings"
)

// OrderStatus representa os possíveis status de um pedido (sem o prefixo "wc-")
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusOnHold     = "on-hold"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
	OrderStatusFailed     = "failed"
)

const legacyStatusPrefix = "wc-"

var knownStatuses = map[string]bool{
	OrderStatusPending:    true,
	OrderStatusProcessing: true,
	OrderStatusOnHold:     true,
	OrderStatusCompleted:  true,
	OrderStatusCancelled:  true,
	OrderStatusRefunded:   true,
	OrderStatusFailed:     true,
}

// OrderStorage identifica onde o pedido está persistido
type OrderStorage string

const (
	StorageLegacy OrderStorage = "legacy"
	StorageHPOS   OrderStorage = "hpos"
)

var (
	ErrInvalidOrderID  = errors.New("invalid order ID")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrInvalidStorage  = errors.New("invalid order storage")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidCartItem = errors.New("invalid cart item")
)

// StatusChange é uma transição de status validada
type StatusChange struct {
	OrderID int64
	Status  string
	Storage OrderStorage
}

// NewStatusChange valida e normaliza uma transição de status.
// Aceita o status com ou sem "wc-"; storage vazio significa HPOS.
func NewStatusChange(orderID int64, status, storage string) (StatusChange, error) {
	if orderID <= 0 {
		return StatusChange{}, ErrInvalidOrderID
	}

	status = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(status)), legacyStatusPrefix)
	if !knownStatuses[status] {
		return StatusChange{}, ErrInvalidStatus
	}

	s := OrderStorage(strings.ToLower(strings.TrimSpace(storage)))
	switch s {
	case "":
		s = StorageHPOS
	case StorageLegacy, StorageHPOS:
	default:
		return StatusChange{}, ErrInvalidStorage
	}

	return StatusChange{OrderID: orderID, Status: status, Storage: s}, nil
}

// LegacyStatus devolve o status como a storage legada grava ("wc-completed")
func (s StatusChange) LegacyStatus() string {
	return legacyStatusPrefix + s.Status
}

// StatusChangedEvent é a notificação enviada ao serviço de preços
type StatusChangedEvent struct {
	OrderID    int64   `json:"order_id"`
	Status     string  `json:"status"`
	ProductIDs []int64 `json:"product_ids,omitempty"`
}

// UpdateStatusRequest representa a requisição de mudança de status
type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Storage string `json:"storage"`
}

// CartItemRequest representa a requisição de alteração de carrinho
type CartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"gte=0"`
}

// CartItem é uma linha de carrinho de uma sessão
type CartItem struct {
	SessionID string `json:"session_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewCartItem valida uma linha de carrinho; quantidade zero remove a linha
func NewCartItem(sessionID string, productID int64, quantity int) (CartItem, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || productID <= 0 || quantity < 0 {
		return CartItem{}, ErrInvalidCartItem
	}
	return CartItem{SessionID: sessionID, ProductID: productID, Quantity: quantity}, nil
}
