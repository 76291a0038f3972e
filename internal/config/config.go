package config

import (
	"encoding/base64"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, BaseURL string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type SecurityCfg struct {
	AESKey     []byte // encrypts gateway credentials at rest
	AdminToken string
}

// CheckoutCfg bounds how long a checkout session (and its pending
// transaction reference) survives across the redirect round trip.
type CheckoutCfg struct {
	SessionTTLMinutes int
}

type Cfg struct {
	App      AppCfg
	DB       DBCfg
	Redis    RedisCfg
	Sec      SecurityCfg
	Checkout CheckoutCfg
}

func Load() Cfg {
	// Load .env into process env if present; real env wins.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("CHECKOUT_SESSION_TTL_MIN", 120)
	viper.SetDefault("ADMIN_TOKEN", "")

	keyB64 := viper.GetString("AES_256_KEY_BASE64")
	key, err := base64.StdEncoding.DecodeString(keyB64)

	cfg := Cfg{
		App: AppCfg{
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Sec: SecurityCfg{
			AESKey:     key,
			AdminToken: strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
		},
		Checkout: CheckoutCfg{
			SessionTTLMinutes: viper.GetInt("CHECKOUT_SESSION_TTL_MIN"),
		},
	}

	// Fail fast on required settings.
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if err != nil || len(cfg.Sec.AESKey) != 32 {
		log.Fatal().Msg("AES_256_KEY_BASE64 must be a valid 32-byte base64 key")
	}
	if cfg.App.BaseURL == "" {
		log.Fatal().Msg("APP_BASE_URL is required for gateway return URLs")
	}

	return cfg
}
