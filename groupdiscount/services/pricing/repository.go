package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepository define a interface para leitura e escrita de produtos
type ProductRepository interface {
	// GetProduct busca o produto com todo o meta
	GetProduct(ctx context.Context, productID int64) (*Product, error)

	// MinVariationRegularPrice devolve o menor preço regular entre as variações
	MinVariationRegularPrice(ctx context.Context, parentID int64) (string, error)

	// SaveDiscountSettings grava habilitação, modo debug e faixas do produto
	SaveDiscountSettings(ctx context.Context, productID int64, enabled, debugMode bool, tiers []Tier) error

	// EnabledProductIDs lista os produtos com desconto em grupo habilitado
	EnabledProductIDs(ctx context.Context) ([]int64, error)
}

// SalesRepository define as consultas de quantidade vendida
type SalesRepository interface {
	CountableLineItemQuantity(ctx context.Context, productID int64) (int, error)
	ReportedQuantity(ctx context.Context, productID int64) (int, error)
	RawLineItemQuantity(ctx context.Context, productID int64) (int, error)
	DirectItemQuantity(ctx context.Context, productID int64) (int, error)
	CartQuantity(ctx context.Context, sessionID string, productID int64) (int, error)
	CheckoutOrderQuantity(ctx context.Context, sessionID string, productID int64) (int, error)
	StatusQuantities(ctx context.Context, productID int64) (map[string]int, error)
	OrderProductIDs(ctx context.Context, orderID int64) ([]int64, error)
}

// Repository é a união das consultas usadas pelo serviço
type Repository interface {
	ProductRepository
	SalesRepository
}

// dbtx é o subconjunto do pgxpool.Pool usado pelo repositório
type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// StoreRepository implementa Repository sobre o schema PostgreSQL da loja
type StoreRepository struct {
	db dbtx
}

// NewStoreRepository cria uma nova instância de StoreRepository
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	if pool == nil {
		return &StoreRepository{}
	}
	return &StoreRepository{db: pool}
}

func (r *StoreRepository) conn() (dbtx, error) {
	if r == nil || r.db == nil {
		return nil, ErrCommerceUnavailable
	}
	return r.db, nil
}

const selectProductSQL = `
	SELECT p.id,
	       COALESCE(p.parent_id, 0),
	       p.type,
	       p.name,
	       COALESCE(p.regular_price::text, ''),
	       COALESCE(p.price::text, ''),
	       COALESCE(
	           (SELECT jsonb_object_agg(m.meta_key, m.meta_value)
	              FROM product_meta m
	             WHERE m.product_id = p.id),
	           '{}'::jsonb
	       )::text
	FROM products p
	WHERE p.id = $1
`

// GetProduct busca o produto com todo o meta
func (r *StoreRepository) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var (
		product Product
		rawMeta string
	)
	err = db.QueryRow(ctx, selectProductSQL, productID).Scan(
		&product.ID, &product.ParentID, &product.Type, &product.Name,
		&product.RegularPrice, &product.Price, &rawMeta,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	product.Meta = map[string]string{}
	if err := json.Unmarshal([]byte(rawMeta), &product.Meta); err != nil {
		return nil, fmt.Errorf("failed to decode meta of product %d: %w", productID, err)
	}
	return &product, nil
}

// MinVariationRegularPrice devolve "" quando nenhuma variação tem preço
func (r *StoreRepository) MinVariationRegularPrice(ctx context.Context, parentID int64) (string, error) {
	db, err := r.conn()
	if err != nil {
		return "", err
	}

	var price string
	err = db.QueryRow(ctx, `
		SELECT COALESCE(MIN(regular_price)::text, '')
		FROM products
		WHERE parent_id = $1 AND type = 'variation' AND regular_price IS NOT NULL
	`, parentID).Scan(&price)
	if err != nil {
		return "", fmt.Errorf("failed to load variation prices of %d: %w", parentID, err)
	}
	return price, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

const upsertMetaSQL = `
	INSERT INTO product_meta (product_id, meta_key, meta_value)
	VALUES ($1, $2, $3)
	ON CONFLICT (product_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value
`

// SaveDiscountSettings grava os três metas na mesma transação
func (r *StoreRepository) SaveDiscountSettings(ctx context.Context, productID int64, enabled, debugMode bool, tiers []Tier) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	encoded, err := EncodeTiers(tiers)
	if err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check product %d: %w", productID, err)
	}
	if !exists {
		return ErrProductNotFound
	}

	values := []struct{ key, value string }{
		{MetaEnabled, yesNo(enabled)},
		{MetaDebugMode, yesNo(debugMode)},
		{MetaTiers, encoded},
	}
	for _, v := range values {
		if _, err := tx.Exec(ctx, upsertMetaSQL, productID, v.key, v.value); err != nil {
			return fmt.Errorf("failed to save %s of product %d: %w", v.key, productID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settings of product %d: %w", productID, err)
	}
	return nil
}

// EnabledProductIDs lista os produtos com desconto em grupo habilitado
func (r *StoreRepository) EnabledProductIDs(ctx context.Context) ([]int64, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `
		SELECT product_id FROM product_meta
		WHERE meta_key = $1 AND meta_value = 'yes'
		ORDER BY product_id
	`, MetaEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled products: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled products: %w", err)
	}
	return ids, nil
}

func (r *StoreRepository) sum(ctx context.Context, name, sql string, args ...any) (int, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s query failed: %w", name, err)
	}
	if total < 0 {
		total = -total
	}
	return int(total), nil
}

// CountableLineItemQuantity soma as linhas de pedidos com status contável,
// tanto na storage legada quanto na HPOS
func (r *StoreRepository) CountableLineItemQuantity(ctx context.Context, productID int64) (int, error) {
	return r.sum(ctx, "line items", `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		WHERE oi.item_type = 'line_item'
		  AND (oi.product_id = $1 OR oi.variation_id = $1)
		  AND (
		      EXISTS (SELECT 1 FROM posts p
		               WHERE p.id = oi.order_id AND p.post_type = 'shop_order' AND p.post_status = ANY($2))
		   OR EXISTS (SELECT 1 FROM wc_orders o
		               WHERE o.id = oi.order_id AND o.type = 'shop_order' AND o.status = ANY($3))
		  )
	`, productID, LegacyStatuses(CountableStatuses), CountableStatuses)
}

// ReportedQuantity soma a tabela de relatórios (order_product_lookup)
func (r *StoreRepository) ReportedQuantity(ctx context.Context, productID int64) (int, error) {
	statuses := append(LegacyStatuses(CountableStatuses), CountableStatuses...)
	return r.sum(ctx, "order stats", `
		SELECT COALESCE(SUM(product_qty), 0)
		FROM order_product_lookup
		WHERE (product_id = $1 OR variation_id = $1)
		  AND status = ANY($2)
	`, productID, statuses)
}

// RawLineItemQuantity soma as linhas de pedidos em qualquer status
func (r *StoreRepository) RawLineItemQuantity(ctx context.Context, productID int64) (int, error) {
	return r.sum(ctx, "raw orders", `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		WHERE oi.item_type = 'line_item'
		  AND (oi.product_id = $1 OR oi.variation_id = $1)
		  AND (
		      EXISTS (SELECT 1 FROM posts p WHERE p.id = oi.order_id AND p.post_type = 'shop_order')
		   OR EXISTS (SELECT 1 FROM wc_orders o WHERE o.id = oi.order_id AND o.type = 'shop_order')
		  )
	`, productID)
}

// DirectItemQuantity soma as linhas do produto sem nenhum join
func (r *StoreRepository) DirectItemQuantity(ctx context.Context, productID int64) (int, error) {
	return r.sum(ctx, "direct count", `
		SELECT COALESCE(SUM(quantity), 0) FROM order_items WHERE product_id = $1
	`, productID)
}

// CartQuantity soma a quantidade do produto no carrinho da sessão
func (r *StoreRepository) CartQuantity(ctx context.Context, sessionID string, productID int64) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	return r.sum(ctx, "cart", `
		SELECT COALESCE(SUM(quantity), 0) FROM cart_items
		WHERE session_id = $1 AND product_id = $2
	`, sessionID, productID)
}

// CheckoutOrderQuantity soma o produto no pedido aguardando pagamento da sessão
func (r *StoreRepository) CheckoutOrderQuantity(ctx context.Context, sessionID string, productID int64) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	return r.sum(ctx, "checkout order", `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM sessions s
		JOIN order_items oi ON oi.order_id = s.order_awaiting_payment
		WHERE s.session_id = $1
		  AND oi.item_type = 'line_item'
		  AND oi.product_id = $2
	`, sessionID, productID)
}

// StatusQuantities devolve a quantidade vendida por status (sem o prefixo "wc-")
func (r *StoreRepository) StatusQuantities(ctx context.Context, productID int64) (map[string]int, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `
		SELECT status, SUM(quantity)::bigint FROM (
		    SELECT regexp_replace(p.post_status, '^wc-', '') AS status, oi.quantity
		      FROM order_items oi JOIN posts p ON p.id = oi.order_id
		     WHERE p.post_type = 'shop_order' AND oi.item_type = 'line_item'
		       AND (oi.product_id = $1 OR oi.variation_id = $1)
		    UNION ALL
		    SELECT o.status, oi.quantity
		      FROM order_items oi JOIN wc_orders o ON o.id = oi.order_id
		     WHERE o.type = 'shop_order' AND oi.item_type = 'line_item'
		       AND (oi.product_id = $1 OR oi.variation_id = $1)
		       AND NOT EXISTS (SELECT 1 FROM posts p WHERE p.id = o.id)
		) s
		GROUP BY status
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("status counts query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(AllOrderStatuses))
	for _, s := range AllOrderStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			status string
			qty    int64
		)
		if err := rows.Scan(&status, &qty); err != nil {
			return nil, fmt.Errorf("status counts scan failed: %w", err)
		}
		counts[status] += int(qty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status counts query failed: %w", err)
	}
	return counts, nil
}

// OrderProductIDs lista os produtos e variações de um pedido
func (r *StoreRepository) OrderProductIDs(ctx context.Context, orderID int64) ([]int64, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, `
		SELECT product_id FROM order_items WHERE order_id = $1 AND item_type = 'line_item'
		UNION
		SELECT variation_id FROM order_items
		 WHERE order_id = $1 AND item_type = 'line_item' AND variation_id IS NOT NULL AND variation_id <> 0
		ORDER BY 1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products of order %d: %w", orderID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to list products of order %d: %w", orderID, err)
	}
	return ids, nil
}
