package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config reúne a configuração do serviço de preços.
// Ordem de precedência: valores padrão, arquivo YAML (CONFIG_FILE), variáveis de ambiente.
type Config struct {
	Port           string `yaml:"port"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`

	// Debug liga o bypass total do cache de vendas, a limpeza do cache em
	// todo carregamento de página e os logs detalhados.
	Debug bool `yaml:"debug"`

	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Site     SiteConfig     `yaml:"site"`
	Currency CurrencyConfig `yaml:"currency"`

	NonceSecret   string        `yaml:"nonce_secret"`
	NonceTTL      time.Duration `yaml:"nonce_ttl"`
	InternalToken string        `yaml:"internal_token"`
}

type DatabaseConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

// DSN monta a connection string do pgxpool
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&pool_max_conns=25&pool_min_conns=5",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

type CacheConfig struct {
	Backend         string        `yaml:"backend"` // redis | memory
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	TTL             time.Duration `yaml:"ttl"`
	SoldCountTTL    time.Duration `yaml:"sold_count_ttl"`
	WarmTTL         time.Duration `yaml:"warm_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// SiteConfig descreve a loja; usado na detecção da variante de chinês
type SiteConfig struct {
	Locale      string `yaml:"locale"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

// ContentSample concatena título, descrição e URL para as heurísticas de idioma
func (s SiteConfig) ContentSample() string {
	return strings.Join([]string{s.Title, s.Description, s.URL}, " ")
}

// CurrencyConfig espelha as configurações de moeda da loja
type CurrencyConfig struct {
	Symbol            string `yaml:"symbol"`
	Decimals          int    `yaml:"decimals"`
	DecimalSeparator  string `yaml:"decimal_separator"`
	ThousandSeparator string `yaml:"thousand_separator"`
}

func defaultConfig() Config {
	return Config{
		Port:           "8080",
		ServiceName:    "pricing-service",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   "localhost:4318",
		Database: DatabaseConfig{
			User:     "root",
			Password: "pass",
			Host:     "localhost",
			Port:     "5432",
			Name:     "store_db",
		},
		Cache: CacheConfig{
			Backend:         "redis",
			RedisAddr:       "localhost:6379",
			TTL:             120 * time.Second,
			SoldCountTTL:    10 * time.Second,
			WarmTTL:         60 * time.Second,
			CleanupInterval: time.Hour,
		},
		Site: SiteConfig{
			Locale: "en_US",
		},
		Currency: CurrencyConfig{
			Symbol:            "$",
			Decimals:          2,
			DecimalSeparator:  ".",
			ThousandSeparator: ",",
		},
		NonceSecret: "change-me",
		NonceTTL:    24 * time.Hour,
	}
}

// LoadConfig carrega a configuração do serviço
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.Debug = getEnvBool("GD_DEBUG", cfg.Debug)

	cfg.Database.User = getEnv("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.Host = getEnv("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DATABASE_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DATABASE_NAME", cfg.Database.Name)

	cfg.Cache.Backend = getEnv("CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = getEnvInt("REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.SoldCountTTL = getEnvDuration("SOLD_COUNT_TTL", cfg.Cache.SoldCountTTL)
	cfg.Cache.CleanupInterval = getEnvDuration("CACHE_CLEANUP_INTERVAL", cfg.Cache.CleanupInterval)
	cfg.Cache.WarmTTL = getEnvDuration("WARM_TTL", cfg.Cache.WarmTTL)

	cfg.Site.Locale = getEnv("SITE_LOCALE", cfg.Site.Locale)
	cfg.Site.Title = getEnv("SITE_TITLE", cfg.Site.Title)
	cfg.Site.Description = getEnv("SITE_DESCRIPTION", cfg.Site.Description)
	cfg.Site.URL = getEnv("SITE_URL", cfg.Site.URL)

	cfg.Currency.Symbol = getEnv("CURRENCY_SYMBOL", cfg.Currency.Symbol)
	cfg.Currency.Decimals = getEnvInt("PRICE_DECIMALS", cfg.Currency.Decimals)
	cfg.Currency.DecimalSeparator = getEnv("PRICE_DECIMAL_SEPARATOR", cfg.Currency.DecimalSeparator)
	cfg.Currency.ThousandSeparator = getEnv("PRICE_THOUSAND_SEPARATOR", cfg.Currency.ThousandSeparator)

	cfg.NonceSecret = getEnv("NONCE_SECRET", cfg.NonceSecret)
	cfg.NonceTTL = getEnvDuration("NONCE_TTL", cfg.NonceTTL)
	cfg.InternalToken = getEnv("INTERNAL_TOKEN", cfg.InternalToken)

	if cfg.Currency.Decimals < 0 {
		cfg.Currency.Decimals = 0
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️  Invalid boolean for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️  Invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
