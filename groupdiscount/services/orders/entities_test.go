package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatusChange(t *testing.T) {
	tests := []struct {
		name    string
		orderID int64
		status  string
		storage string
		want    StatusChange
		wantErr error
	}{
		{"plain status", 10, "completed", "hpos", StatusChange{10, OrderStatusCompleted, StorageHPOS}, nil},
		{"legacy prefix", 10, "wc-on-hold", "legacy", StatusChange{10, OrderStatusOnHold, StorageLegacy}, nil},
		{"default storage", 10, " Processing ", "", StatusChange{10, OrderStatusProcessing, StorageHPOS}, nil},
		{"invalid order", 0, "completed", "", StatusChange{}, ErrInvalidOrderID},
		{"unknown status", 10, "shipped", "", StatusChange{}, ErrInvalidStatus},
		{"unknown storage", 10, "completed", "mongo", StatusChange{}, ErrInvalidStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got, err := NewStatusChange(tt.orderID, tt.status, tt.storage)

			// Assert
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusChange_LegacyStatus(t *testing.T) {
	change, err := NewStatusChange(1, "refunded", "legacy")

	require.NoError(t, err)
	assert.Equal(t, "wc-refunded", change.LegacyStatus())
}

func TestNewCartItem(t *testing.T) {
	item, err := NewCartItem(" abc ", 7, 3)
	require.NoError(t, err)
	assert.Equal(t, CartItem{SessionID: "abc", ProductID: 7, Quantity: 3}, item)

	removal, err := NewCartItem("abc", 7, 0)
	require.NoError(t, err)
	assert.Zero(t, removal.Quantity)

	for _, bad := range []struct {
		session string
		product int64
		qty     int
	}{
		{"", 7, 1},
		{"abc", 0, 1},
		{"abc", 7, -1},
	} {
		_, err := NewCartItem(bad.session, bad.product, bad.qty)
		assert.ErrorIs(t, err, ErrInvalidCartItem)
	}
}
