package main

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher executa a transação local com um tx nulo, como faria após o BEGIN
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishStatusChange(ctx context.Context, event StatusChangedEvent, local func(tx *sql.Tx) error) (string, error) {
	args := m.Called(ctx, event)
	if err := local(nil); err != nil {
		return "", err
	}
	return args.String(0), args.Error(1)
}

func (m *MockPublisher) PublishCartChange(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func TestOrderUseCase_ChangeStatus(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockRepository)
	publisher := new(MockPublisher)
	change := StatusChange{OrderID: 42, Status: OrderStatusCompleted, Storage: StorageLegacy}
	event := StatusChangedEvent{OrderID: 42, Status: OrderStatusCompleted, ProductIDs: []int64{7, 9}}

	repo.On("OrderProductIDs", ctx, int64(42)).Return([]int64{7, 9}, nil)
	repo.On("UpdateOrderStatus", ctx, mock.Anything, change).Return(nil)
	publisher.On("PublishStatusChange", ctx, event).Return("gid-1", nil)

	useCase := NewOrderUseCase(repo, publisher)

	// Act
	got, gid, err := useCase.ChangeStatus(ctx, 42, UpdateStatusRequest{Status: "wc-completed", Storage: "legacy"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, event, got)
	assert.Equal(t, "gid-1", gid)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOrderUseCase_ChangeStatus_ProductLookupFailureStillPublishes(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	publisher := new(MockPublisher)
	repo.On("OrderProductIDs", ctx, int64(42)).Return(nil, errors.New("timeout"))
	repo.On("UpdateOrderStatus", ctx, mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishStatusChange", ctx, StatusChangedEvent{OrderID: 42, Status: OrderStatusCancelled}).Return("", nil)

	got, _, err := NewOrderUseCase(repo, publisher).ChangeStatus(ctx, 42, UpdateStatusRequest{Status: "cancelled"})

	require.NoError(t, err)
	assert.Empty(t, got.ProductIDs)
}

func TestOrderUseCase_ChangeStatus_LocalFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	publisher := new(MockPublisher)
	repo.On("OrderProductIDs", ctx, int64(42)).Return([]int64{7}, nil)
	repo.On("UpdateOrderStatus", ctx, mock.Anything, mock.Anything).Return(ErrOrderNotFound)
	publisher.On("PublishStatusChange", ctx, mock.Anything).Return("", nil)

	_, _, err := NewOrderUseCase(repo, publisher).ChangeStatus(ctx, 42, UpdateStatusRequest{Status: "completed"})

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderUseCase_ChangeStatus_InvalidStatus(t *testing.T) {
	repo := new(MockRepository)
	publisher := new(MockPublisher)

	_, _, err := NewOrderUseCase(repo, publisher).ChangeStatus(context.Background(), 42, UpdateStatusRequest{Status: "shipped"})

	assert.ErrorIs(t, err, ErrInvalidStatus)
	publisher.AssertNotCalled(t, "PublishStatusChange", mock.Anything, mock.Anything)
}

func TestOrderUseCase_UpdateCartItem(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockRepository)
	publisher := new(MockPublisher)
	item := CartItem{SessionID: "abc", ProductID: 7, Quantity: 3}
	repo.On("UpsertCartItem", ctx, item).Return(nil)
	publisher.On("PublishCartChange", ctx, "abc").Return(errors.New("pricing down"))

	// Act
	got, err := NewOrderUseCase(repo, publisher).UpdateCartItem(ctx, "abc", CartItemRequest{ProductID: 7, Quantity: 3})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, item, got)
	publisher.AssertExpectations(t)
}

func TestOrderUseCase_UpdateCartItem_Invalid(t *testing.T) {
	repo := new(MockRepository)
	publisher := new(MockPublisher)

	_, err := NewOrderUseCase(repo, publisher).UpdateCartItem(context.Background(), "", CartItemRequest{ProductID: 7, Quantity: 1})

	assert.ErrorIs(t, err, ErrInvalidCartItem)
	repo.AssertNotCalled(t, "UpsertCartItem", mock.Anything, mock.Anything)
}
