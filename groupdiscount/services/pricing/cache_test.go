package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fixedRandomizer devolve sempre o mesmo valor
type fixedRandomizer int

func (f fixedRandomizer) IntN(int) int { return int(f) }

// sequenceRandomizer devolve os valores em sequência, repetindo o último
type sequenceRandomizer struct {
	values []int
	calls  int
}

func (s *sequenceRandomizer) IntN(int) int {
	i := s.calls
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.calls++
	return s.values[i]
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// MockTransientStore simula falhas do armazenamento
type MockTransientStore struct {
	mock.Mock
}

func (m *MockTransientStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockTransientStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockTransientStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockTransientStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

func TestMemoryTransientStore_Expiry(t *testing.T) {
	// Arrange
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewMemoryTransientStore(clock.Now)
	ctx := context.Background()

	// Act
	require.NoError(t, store.Set(ctx, "gd_a", "1", 10*time.Second))
	v, ok, err := store.Get(ctx, "gd_a")

	// Assert
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	clock.now = clock.now.Add(10 * time.Second)
	_, ok, err = store.Get(ctx, "gd_a")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire at its deadline")
}

func TestMemoryTransientStore_DeletePrefix(t *testing.T) {
	store := NewMemoryTransientStore(nil)
	ctx := context.Background()
	_ = store.Set(ctx, "gd_total_sold_1", "5", time.Minute)
	_ = store.Set(ctx, "gd_other", "x", time.Minute)
	_ = store.Set(ctx, "session_1", "keep", time.Minute)

	deleted, err := store.DeletePrefix(ctx, "gd_")

	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	_, ok, _ := store.Get(ctx, "session_1")
	assert.True(t, ok)
}

func TestDiscountCache_PrefixesKeys(t *testing.T) {
	// Arrange
	store := NewMemoryTransientStore(nil)
	cache := NewDiscountCache(store, 0, false, fixedRandomizer(1), nil)
	ctx := context.Background()

	// Act
	cache.Set(ctx, "banner_7", "<div/>", 0)

	// Assert
	raw, ok, err := store.Get(ctx, "gd_banner_7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<div/>", raw)

	v, ok := cache.Get(ctx, "banner_7")
	assert.True(t, ok)
	assert.Equal(t, "<div/>", v)
}

func TestDiscountCache_SoldCountBypass(t *testing.T) {
	store := NewMemoryTransientStore(nil)
	ctx := context.Background()
	rnd := &sequenceRandomizer{values: []int{0, 1}}
	cache := NewDiscountCache(store, time.Minute, false, rnd, nil)
	cache.Set(ctx, SoldCountKey(9), "150:0", 10*time.Second)

	_, first := cache.Get(ctx, SoldCountKey(9))
	second, secondOK := cache.Get(ctx, SoldCountKey(9))

	assert.False(t, first, "draw 0 must bypass")
	assert.True(t, secondOK)
	assert.Equal(t, "150:0", second)
}

func TestDiscountCache_SoldCountAlwaysBypassedInDebug(t *testing.T) {
	store := NewMemoryTransientStore(nil)
	ctx := context.Background()
	cache := NewDiscountCache(store, time.Minute, true, fixedRandomizer(1), nil)
	cache.Set(ctx, SoldCountKey(9), "150:0", 0)
	cache.Set(ctx, "other", "v", 0)

	for i := 0; i < 5; i++ {
		_, ok := cache.Get(ctx, SoldCountKey(9))
		assert.False(t, ok)
	}
	_, ok := cache.Get(ctx, "other")
	assert.True(t, ok, "only sold-count keys are bypassed")
	peeked, ok := cache.Peek(ctx, SoldCountKey(9))
	assert.True(t, ok)
	assert.Equal(t, "150:0", peeked)
}

func TestDiscountCache_StoreErrorIsMiss(t *testing.T) {
	// Arrange
	store := new(MockTransientStore)
	ctx := context.Background()
	store.On("Get", ctx, "gd_banner_1").Return("", false, errors.New("connection refused"))
	store.On("Set", ctx, "gd_banner_1", "x", 120*time.Second).Return(errors.New("connection refused"))
	cache := NewDiscountCache(store, 0, false, nil, nil)

	// Act
	_, ok := cache.Get(ctx, "banner_1")
	cache.Set(ctx, "banner_1", "x", 0)

	// Assert
	assert.False(t, ok)
	store.AssertExpectations(t)
}

func TestDiscountCache_ForceClearAll(t *testing.T) {
	store := NewMemoryTransientStore(nil)
	ctx := context.Background()
	cache := NewDiscountCache(store, 0, false, fixedRandomizer(1), nil)
	cache.Set(ctx, SoldCountKey(1), "10:0", 0)
	cache.Set(ctx, SoldCountKey(2), "20:0", 0)
	_ = store.Set(ctx, "unrelated", "x", 0)

	deleted, err := cache.ForceClearAll(ctx, "test")

	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	_, ok := cache.Get(ctx, SoldCountKey(1))
	assert.False(t, ok)
}

func TestRedisTransientStore_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewRedisTransientStore(client)

	_, ok, err := store.Get(context.Background(), "gd_x")

	assert.Error(t, err)
	assert.False(t, ok)
}
