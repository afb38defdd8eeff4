package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// pageLoadFlushOdds é a chance (1 em N) de uma página da vitrine limpar os caches fora do modo debug
const pageLoadFlushOdds = 20

// CacheWarmer preenche o total vendido dos produtos habilitados
type CacheWarmer interface {
	Warm(ctx context.Context) (int, error)
}

// CacheJanitor agenda a limpeza dos caches do desconto em grupo
type CacheJanitor struct {
	cache    *DiscountCache
	warmer   CacheWarmer
	interval time.Duration
	debug    bool
	rnd      Randomizer
}

// NewCacheJanitor cria uma nova instância de CacheJanitor
func NewCacheJanitor(cache *DiscountCache, warmer CacheWarmer, interval time.Duration, debug bool, rnd Randomizer) *CacheJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if rnd == nil {
		rnd = DefaultRandomizer
	}
	return &CacheJanitor{
		cache:    cache,
		warmer:   warmer,
		interval: interval,
		debug:    debug,
		rnd:      rnd,
	}
}

// Activate limpa todos os caches na subida do serviço
func (j *CacheJanitor) Activate(ctx context.Context) error {
	_, err := j.cache.ForceClearAll(ctx, "activate")
	return err
}

// Deactivate limpa todos os caches na parada do serviço
func (j *CacheJanitor) Deactivate(ctx context.Context) error {
	_, err := j.cache.ForceClearAll(ctx, "deactivate")
	return err
}

// Run executa a limpeza periódica até o contexto ser cancelado
func (j *CacheJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Printf("⏰ [JANITOR] Cleanup scheduled every %s", j.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("🛑 [JANITOR] Stopped")
			return
		case <-ticker.C:
			if _, err := j.cache.ForceClearAll(ctx, "scheduled"); err != nil {
				log.Printf("❌ [JANITOR] Scheduled cleanup failed: %v", err)
			}
		}
	}
}

// OnPageLoad limpa os caches numa visita à vitrine: sempre em modo debug
// (seguido de um warm-up), senão com chance de 1 em 20
func (j *CacheJanitor) OnPageLoad(ctx context.Context) {
	if j.debug {
		if _, err := j.cache.ForceClearAll(ctx, "page_load_debug"); err != nil {
			log.Printf("❌ [JANITOR] Page load cleanup failed: %v", err)
			return
		}
		if j.warmer != nil {
			if _, err := j.warmer.Warm(ctx); err != nil {
				log.Printf("⚠️  [JANITOR] Warm-up failed: %v", err)
			}
		}
		return
	}

	if j.rnd.IntN(pageLoadFlushOdds) != 0 {
		return
	}
	if _, err := j.cache.ForceClearAll(ctx, "page_load"); err != nil {
		log.Printf("❌ [JANITOR] Page load cleanup failed: %v", err)
	}
}

// PageLoadMiddleware roda OnPageLoad antes dos handlers da vitrine
func (j *CacheJanitor) PageLoadMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		j.OnPageLoad(c.Request.Context())
		c.Next()
	}
}
