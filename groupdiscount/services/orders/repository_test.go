package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExecer simula a transação SQL
type MockExecer struct {
	mock.Mock
}

func (m *MockExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	mockArgs := m.Called(ctx, query, args)
	result, _ := mockArgs.Get(0).(sql.Result)
	return result, mockArgs.Error(1)
}

// MockRepository para testes que não precisam de banco real
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) OrderProductIDs(ctx context.Context, orderID int64) ([]int64, error) {
	args := m.Called(ctx, orderID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockRepository) UpdateOrderStatus(ctx context.Context, tx execer, change StatusChange) error {
	args := m.Called(ctx, tx, change)
	return args.Error(0)
}

func (m *MockRepository) UpsertCartItem(ctx context.Context, item CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func TestNewOrderRepository(t *testing.T) {
	// Arrange
	var db *sql.DB

	// Act
	repo := NewOrderRepository(db)

	// Assert
	assert.NotNil(t, repo)
}

func TestOrderRepository_UpdateOrderStatus_HPOS(t *testing.T) {
	// Arrange
	ctx := context.Background()
	tx := new(MockExecer)
	tx.On("ExecContext", ctx, updateHPOSStatusSQL, []any{"completed", int64(42)}).Return(driver.RowsAffected(1), nil)
	tx.On("ExecContext", ctx, updateLookupStatusSQL, []any{"wc-completed", int64(42)}).Return(driver.RowsAffected(3), nil)

	// Act
	err := NewOrderRepository(nil).UpdateOrderStatus(ctx, tx, StatusChange{OrderID: 42, Status: OrderStatusCompleted, Storage: StorageHPOS})

	// Assert
	require.NoError(t, err)
	tx.AssertExpectations(t)
}

func TestOrderRepository_UpdateOrderStatus_Legacy(t *testing.T) {
	ctx := context.Background()
	tx := new(MockExecer)
	tx.On("ExecContext", ctx, updateLegacyStatusSQL, []any{"wc-cancelled", int64(42)}).Return(driver.RowsAffected(1), nil)
	tx.On("ExecContext", ctx, updateLookupStatusSQL, []any{"wc-cancelled", int64(42)}).Return(driver.RowsAffected(0), nil)

	err := NewOrderRepository(nil).UpdateOrderStatus(ctx, tx, StatusChange{OrderID: 42, Status: OrderStatusCancelled, Storage: StorageLegacy})

	require.NoError(t, err)
	tx.AssertExpectations(t)
}

func TestOrderRepository_UpdateOrderStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	tx := new(MockExecer)
	tx.On("ExecContext", ctx, updateHPOSStatusSQL, mock.Anything).Return(driver.RowsAffected(0), nil)

	err := NewOrderRepository(nil).UpdateOrderStatus(ctx, tx, StatusChange{OrderID: 7, Status: OrderStatusCompleted, Storage: StorageHPOS})

	assert.ErrorIs(t, err, ErrOrderNotFound)
	tx.AssertNotCalled(t, "ExecContext", ctx, updateLookupStatusSQL, mock.Anything)
}

func TestOrderRepository_UpdateOrderStatus_ExecError(t *testing.T) {
	ctx := context.Background()
	tx := new(MockExecer)
	tx.On("ExecContext", ctx, updateHPOSStatusSQL, mock.Anything).Return(nil, errors.New("connection reset"))

	err := NewOrderRepository(nil).UpdateOrderStatus(ctx, tx, StatusChange{OrderID: 7, Status: OrderStatusCompleted, Storage: StorageHPOS})

	assert.ErrorContains(t, err, "connection reset")
}

func TestUpsertCartItem(t *testing.T) {
	ctx := context.Background()
	db := new(MockExecer)
	db.On("ExecContext", ctx, upsertCartItemSQL, []any{"abc", int64(7), 2}).Return(driver.RowsAffected(1), nil)
	db.On("ExecContext", ctx, deleteCartItemSQL, []any{"abc", int64(8)}).Return(driver.RowsAffected(1), nil)

	require.NoError(t, upsertCartItem(ctx, db, CartItem{SessionID: "abc", ProductID: 7, Quantity: 2}))
	require.NoError(t, upsertCartItem(ctx, db, CartItem{SessionID: "abc", ProductID: 8, Quantity: 0}))
	db.AssertExpectations(t)
}

func TestRunInTx_NoDatabase(t *testing.T) {
	err := runInTx(context.Background(), nil, func(*sql.Tx) error { return nil })

	assert.Error(t, err)
}
