// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno (y un .env opcional en desarrollo).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
		// debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Challenges struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"challenges"`

	SMTP struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		From    string `yaml:"from"`
		User    string `yaml:"user"`
		Pass    string `yaml:"pass"`
	} `yaml:"smtp"`

	JWT struct {
		Issuer    string `yaml:"issuer"`
		Secret    string `yaml:"secret"`
		AccessTTL string `yaml:"access_ttl"` // ej: "15m"
	} `yaml:"jwt"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Limit   int    `yaml:"limit"`
		Window  string `yaml:"window"`
	} `yaml:"rate"`
}

// AccessTTL parsea jwt.access_ttl, con fallback al default.
func (c *Config) AccessTTL() time.Duration {
	if d, err := time.ParseDuration(c.JWT.AccessTTL); err == nil && d > 0 {
		return d
	}
	return 15 * time.Minute
}

// RateWindow parsea rate.window, con fallback al default.
func (c *Config) RateWindow() time.Duration {
	if d, err := time.ParseDuration(c.Rate.Window); err == nil && d > 0 {
		return d
	}
	return time.Minute
}

// Load lee el YAML en path (opcional) y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	// .env sólo pisa lo que no está ya seteado en el entorno.
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Env = "dev"
	cfg.App.LogLevel = "info"
	cfg.Server.Addr = ":8080"
	cfg.Storage.Driver = "memory"
	cfg.Challenges.Kind = "memory"
	cfg.SMTP.Port = 587
	cfg.JWT.Issuer = "aac"
	cfg.JWT.AccessTTL = "15m"
	cfg.Rate.Limit = 10
	cfg.Rate.Window = "1m"
	return cfg
}

func applyEnv(cfg *Config) {
	setStr(&cfg.App.Env, "AAC_ENV")
	setStr(&cfg.App.LogLevel, "AAC_LOG_LEVEL")
	setStr(&cfg.Server.Addr, "AAC_ADDR")
	setStr(&cfg.Storage.Driver, "AAC_STORAGE_DRIVER")
	setStr(&cfg.Storage.DSN, "AAC_STORAGE_DSN")
	setStr(&cfg.Challenges.Kind, "AAC_CHALLENGES_KIND")
	setStr(&cfg.Challenges.Redis.Addr, "AAC_REDIS_ADDR")
	setStr(&cfg.Challenges.Redis.Password, "AAC_REDIS_PASSWORD")
	setInt(&cfg.Challenges.Redis.DB, "AAC_REDIS_DB")
	setStr(&cfg.SMTP.Host, "AAC_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "AAC_SMTP_PORT")
	setStr(&cfg.SMTP.From, "AAC_SMTP_FROM")
	setStr(&cfg.SMTP.User, "AAC_SMTP_USER")
	setStr(&cfg.SMTP.Pass, "AAC_SMTP_PASS")
	setStr(&cfg.JWT.Issuer, "AAC_JWT_ISSUER")
	setStr(&cfg.JWT.Secret, "AAC_JWT_SECRET")
	setStr(&cfg.JWT.AccessTTL, "AAC_JWT_ACCESS_TTL")
	setInt(&cfg.Rate.Limit, "AAC_RATE_LIMIT")
	setStr(&cfg.Rate.Window, "AAC_RATE_WINDOW")
	if cfg.SMTP.Host != "" {
		cfg.SMTP.Enabled = true
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
