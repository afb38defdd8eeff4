package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// execer é o subconjunto de *sql.DB / *sql.Tx usado pelas escritas
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository define a interface para operações de banco de dados de pedidos
type Repository interface {
	// OrderProductIDs lista os produtos e variações de um pedido
	OrderProductIDs(ctx context.Context, orderID int64) ([]int64, error)

	// UpdateOrderStatus grava o novo status na storage do pedido e na tabela de relatórios
	UpdateOrderStatus(ctx context.Context, tx execer, change StatusChange) error

	// UpsertCartItem grava (ou remove, com quantidade zero) uma linha de carrinho
	UpsertCartItem(ctx context.Context, item CartItem) error
}

// OrderRepository implementa Repository usando PostgreSQL via database/sql
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository cria uma nova instância de OrderRepository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{
		db: db,
	}
}

// OrderProductIDs lista os produtos e variações de um pedido
func (r *OrderRepository) OrderProductIDs(ctx context.Context, orderID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id FROM order_items WHERE order_id = $1 AND item_type = 'line_item'
		UNION
		SELECT variation_id FROM order_items
		 WHERE order_id = $1 AND item_type = 'line_item' AND variation_id IS NOT NULL AND variation_id <> 0
		ORDER BY 1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product of order %d: %w", orderID, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const (
	updateLegacyStatusSQL = `
		UPDATE posts SET post_status = $1
		WHERE id = $2 AND post_type = 'shop_order'
	`
	updateHPOSStatusSQL = `
		UPDATE wc_orders SET status = $1
		WHERE id = $2 AND type = 'shop_order'
	`
	updateLookupStatusSQL = `
		UPDATE order_product_lookup SET status = $1
		WHERE order_id = $2
	`
)

// UpdateOrderStatus grava o novo status na storage do pedido e na tabela de relatórios.
// Deve rodar dentro de uma transação; um pedido inexistente devolve ErrOrderNotFound.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, tx execer, change StatusChange) error {
	query, status := updateHPOSStatusSQL, change.Status
	if change.Storage == StorageLegacy {
		query, status = updateLegacyStatusSQL, change.LegacyStatus()
	}

	res, err := tx.ExecContext(ctx, query, status, change.OrderID)
	if err != nil {
		return fmt.Errorf("failed to update order %d status: %w", change.OrderID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order %d status: %w", change.OrderID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrOrderNotFound, change.OrderID)
	}

	if _, err := tx.ExecContext(ctx, updateLookupStatusSQL, change.LegacyStatus(), change.OrderID); err != nil {
		return fmt.Errorf("failed to update order %d reporting status: %w", change.OrderID, err)
	}
	return nil
}

const (
	upsertCartItemSQL = `
		INSERT INTO cart_items (session_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`
	deleteCartItemSQL = `
		DELETE FROM cart_items WHERE session_id = $1 AND product_id = $2
	`
)

// UpsertCartItem grava (ou remove, com quantidade zero) uma linha de carrinho
func (r *OrderRepository) UpsertCartItem(ctx context.Context, item CartItem) error {
	return upsertCartItem(ctx, r.db, item)
}

func upsertCartItem(ctx context.Context, db execer, item CartItem) error {
	var err error
	if item.Quantity == 0 {
		_, err = db.ExecContext(ctx, deleteCartItemSQL, item.SessionID, item.ProductID)
	} else {
		_, err = db.ExecContext(ctx, upsertCartItemSQL, item.SessionID, item.ProductID, item.Quantity)
	}
	if err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

// runInTx executa fn numa transação, com rollback em caso de erro
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	if db == nil {
		return errors.New("database not configured")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
