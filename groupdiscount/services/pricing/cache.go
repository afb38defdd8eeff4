package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	cachePrefix     = "gd_"
	soldCountPrefix = "total_sold_"
)

// SoldCountKey devolve a chave lógica do total vendido de um produto
func SoldCountKey(productID int64) string {
	return soldCountPrefix + strconv.FormatInt(productID, 10)
}

// TransientStore é um armazenamento chave/valor com expiração
type TransientStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix remove todas as chaves com o prefixo e devolve quantas foram removidas
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// RedisTransientStore implementa TransientStore sobre o Redis
type RedisTransientStore struct {
	client redis.Cmdable
}

// NewRedisTransientStore cria uma nova instância de RedisTransientStore
func NewRedisTransientStore(client redis.Cmdable) *RedisTransientStore {
	return &RedisTransientStore{client: client}
}

func (s *RedisTransientStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisTransientStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisTransientStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisTransientStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan %s*: %w", prefix, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del %s*: %w", prefix, err)
	}
	return int(deleted), nil
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryTransientStore mantém as entradas em memória; usado em testes e sem Redis
type MemoryTransientStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryTransientStore cria uma nova instância de MemoryTransientStore
func NewMemoryTransientStore(now func() time.Time) *MemoryTransientStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryTransientStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (s *MemoryTransientStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryTransientStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryTransientStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryTransientStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Randomizer sorteia inteiros em [0, n)
type Randomizer interface {
	IntN(n int) int
}

type globalRandomizer struct{}

func (globalRandomizer) IntN(n int) int { return rand.IntN(n) }

// DefaultRandomizer usa o gerador global de math/rand/v2
var DefaultRandomizer Randomizer = globalRandomizer{}

// DiscountCache é a camada de cache do desconto em grupo. Todas as chaves
// recebem o prefixo "gd_". Leituras do total vendido são ignoradas metade
// das vezes (sempre, em modo debug) para que o valor nunca fique velho por muito tempo.
type DiscountCache struct {
	store   TransientStore
	ttl     time.Duration
	debug   bool
	rnd     Randomizer
	metrics *Metrics
}

// NewDiscountCache cria uma nova instância de DiscountCache
func NewDiscountCache(store TransientStore, ttl time.Duration, debug bool, rnd Randomizer, metrics *Metrics) *DiscountCache {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	if rnd == nil {
		rnd = DefaultRandomizer
	}
	return &DiscountCache{
		store:   store,
		ttl:     ttl,
		debug:   debug,
		rnd:     rnd,
		metrics: metrics,
	}
}

func (c *DiscountCache) bypass(key string) bool {
	if !strings.HasPrefix(key, soldCountPrefix) {
		return false
	}
	return c.debug || c.rnd.IntN(2) == 0
}

// Get devolve o valor em cache. Falhas do armazenamento contam como ausência.
func (c *DiscountCache) Get(ctx context.Context, key string) (string, bool) {
	if c.bypass(key) {
		c.metrics.CacheLookup(ctx, "bypass")
		return "", false
	}
	return c.Peek(ctx, key)
}

// Peek lê o valor sem o desvio aleatório das chaves de total vendido
func (c *DiscountCache) Peek(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.store.Get(ctx, cachePrefix+key)
	if err != nil {
		log.Printf("⚠️  [CACHE] get %s failed: %v", key, err)
		ok = false
	}
	if !ok {
		c.metrics.CacheLookup(ctx, "miss")
		return "", false
	}
	c.metrics.CacheLookup(ctx, "hit")
	return value, true
}

// Set grava o valor; ttl <= 0 usa o TTL padrão
func (c *DiscountCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.store.Set(ctx, cachePrefix+key, value, ttl); err != nil {
		log.Printf("⚠️  [CACHE] set %s failed: %v", key, err)
	}
}

func (c *DiscountCache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, cachePrefix+key); err != nil {
		log.Printf("⚠️  [CACHE] delete %s failed: %v", key, err)
	}
}

// ForceClearAll remove todas as entradas do desconto em grupo
func (c *DiscountCache) ForceClearAll(ctx context.Context, reason string) (int, error) {
	deleted, err := c.store.DeletePrefix(ctx, cachePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to clear caches: %w", err)
	}
	c.metrics.CacheFlush(ctx, reason)
	log.Printf("🧹 [CACHE] Cleared %d entries (%s)", deleted, reason)
	return deleted, nil
}
