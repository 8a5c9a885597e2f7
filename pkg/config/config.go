package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Currency modes decide what funds shop purchases.
const (
	CurrencyCrystals = "crystals"
	CurrencyXP       = "xp"

	// currencyLegacy is accepted as an alias of CurrencyXP.
	currencyLegacy = "legacy"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Game      GameConfig
	Standings StandingsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GameConfig holds the progression rules shared by grants, purchases and transfers.
type GameConfig struct {
	CurrencyMode      string
	CompletionBonusXP int
	CrystalStep       int
	TransfersPerPhase int
}

// CrystalBacked reports whether grants accrue crystals and purchases debit them.
func (g GameConfig) CrystalBacked() bool {
	return g.CurrencyMode != CurrencyXP
}

// StandingsConfig governs the room standings cache and its refresh workers.
type StandingsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	Workers      int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	currency, err := normaliseCurrency(v.GetString("GAME_CURRENCY_MODE"))
	if err != nil {
		return nil, err
	}
	cfg.Game = GameConfig{
		CurrencyMode:      currency,
		CompletionBonusXP: positiveOr(v.GetInt("GAME_COMPLETION_BONUS_XP"), 10),
		CrystalStep:       positiveOr(v.GetInt("GAME_CRYSTAL_STEP"), 10),
		TransfersPerPhase: v.GetInt("GAME_TRANSFERS_PER_PHASE"),
	}
	if cfg.Game.TransfersPerPhase < 0 {
		cfg.Game.TransfersPerPhase = 0
	}

	cfg.Standings = StandingsConfig{
		CacheEnabled: v.GetBool("ENABLE_STANDINGS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STANDINGS_CACHE_TTL"), 5*time.Minute),
		Workers:      positiveOr(v.GetInt("STANDINGS_WORKERS"), 2),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classquest")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "classquest")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GAME_CURRENCY_MODE", CurrencyCrystals)
	v.SetDefault("GAME_COMPLETION_BONUS_XP", 10)
	v.SetDefault("GAME_CRYSTAL_STEP", 10)
	v.SetDefault("GAME_TRANSFERS_PER_PHASE", 0)

	v.SetDefault("ENABLE_STANDINGS_CACHE", true)
	v.SetDefault("STANDINGS_CACHE_TTL", "5m")
	v.SetDefault("STANDINGS_WORKERS", 2)
}

func normaliseCurrency(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", CurrencyCrystals:
		return CurrencyCrystals, nil
	case CurrencyXP, currencyLegacy:
		return CurrencyXP, nil
	default:
		return "", fmt.Errorf("invalid GAME_CURRENCY_MODE %q: want %s or %s (alias %s)", raw, CurrencyCrystals, CurrencyXP, currencyLegacy)
	}
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// viper reports a missing explicit config file as a plain fs error.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
