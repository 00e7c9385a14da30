package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SessionStoreDB    = "db"
	SessionStoreRedis = "redis"
)

type Config struct {
	Port           int             `json:"port" toml:"port"`
	JWTSecret      string          `json:"jwt_secret" toml:"jwt_secret"`
	JWTTTLHours    int             `json:"jwt_ttl_hours" toml:"jwt_ttl_hours"`
	UploadMaxBytes int64           `json:"upload_max_bytes" toml:"upload_max_bytes"`
	LogConfig      LogConfig       `json:"log_config" toml:"log_config"`
	Database       DatabaseConfig  `json:"database" toml:"database"`
	FileStore      FileStoreConfig `json:"file_store" toml:"file_store"`
	AI             AIConfig        `json:"ai" toml:"ai"`
	Extract        ExtractConfig   `json:"extract" toml:"extract"`
	Quota          QuotaConfig     `json:"quota" toml:"quota"`
	Session        SessionConfig   `json:"session" toml:"session"`
	CORS           CORSConfig      `json:"cors" toml:"cors"`
	RateLimit      RateLimitConfig `json:"rate_limit" toml:"rate_limit"`
}

type LogConfig struct {
	File      string `json:"file" toml:"file"`
	Level     string `json:"level" toml:"level"`
	FileCount int    `json:"file_count" toml:"file_count"`
	FileSize  int    `json:"file_size" toml:"file_size"`
	KeepDays  int    `json:"keep_days" toml:"keep_days"`
	Console   bool   `json:"console" toml:"console"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" toml:"driver"`
	DSN      string `json:"dsn" toml:"dsn"`
	Host     string `json:"host" toml:"host"`
	Port     int    `json:"port" toml:"port"`
	User     string `json:"user" toml:"user"`
	Password string `json:"password" toml:"password"`
	DBName   string `json:"dbname" toml:"dbname"`
	SSLMode  string `json:"sslmode" toml:"sslmode"`
	Path     string `json:"path" toml:"path"`
}

type FileStoreConfig struct {
	Type string      `json:"type" toml:"type"`
	Data interface{} `json:"data" toml:"data"`
}

type AIConfig struct {
	Providers          []AIProviderConfig `json:"providers" toml:"providers"`
	Timeout            int                `json:"timeout" toml:"timeout"`
	Temperature        float32            `json:"temperature" toml:"temperature"`
	MaxHistoryMessages int                `json:"max_history_messages" toml:"max_history_messages"`
	SummaryCacheSize   int                `json:"summary_cache_size" toml:"summary_cache_size"`
	SummaryCacheTTL    int                `json:"summary_cache_ttl" toml:"summary_cache_ttl"`
}

type AIProviderConfig struct {
	Name     string      `json:"name" toml:"name"`
	Provider string      `json:"provider" toml:"provider"`
	Model    string      `json:"model" toml:"model"`
	Data     interface{} `json:"data" toml:"data"`
}

type ExtractConfig struct {
	TesseractPath string `json:"tesseract_path" toml:"tesseract_path"`
	OCRLanguage   string `json:"ocr_language" toml:"ocr_language"`
	TempDir       string `json:"temp_dir" toml:"temp_dir"`
}

type QuotaConfig struct {
	MaxQuestions int `json:"max_questions" toml:"max_questions"`
}

type SessionConfig struct {
	Store       string      `json:"store" toml:"store"`
	TTLHours    int         `json:"ttl_hours" toml:"ttl_hours"`
	CookieName  string      `json:"cookie_name" toml:"cookie_name"`
	CSRFCookie  string      `json:"csrf_cookie" toml:"csrf_cookie"`
	CSRFHeader  string      `json:"csrf_header" toml:"csrf_header"`
	Secure      bool        `json:"secure" toml:"secure"`
	SameSite    string      `json:"same_site" toml:"same_site"`
	Domain      string      `json:"domain" toml:"domain"`
	CleanupCron string      `json:"cleanup_cron" toml:"cleanup_cron"`
	Redis       RedisConfig `json:"redis" toml:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" toml:"addr"`
	Password string `json:"password" toml:"password"`
	DB       int    `json:"db" toml:"db"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int `json:"burst" toml:"burst"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = 72
	}
	if c.UploadMaxBytes <= 0 {
		c.UploadMaxBytes = 20 * 1024 * 1024
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
	case DriverSQLite:
		if c.Database.Path == "" && c.Database.DSN == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.2
	}
	if c.AI.SummaryCacheSize == 0 {
		c.AI.SummaryCacheSize = 1000
	}
	if c.AI.SummaryCacheTTL == 0 {
		c.AI.SummaryCacheTTL = 3600
	}
	for i, p := range c.AI.Providers {
		if p.Provider == "" {
			return fmt.Errorf("ai.providers[%d].provider is required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("ai.providers[%d].model is required", i)
		}
		if p.Name == "" {
			c.AI.Providers[i].Name = p.Provider
		}
	}
	if c.Extract.TesseractPath == "" {
		c.Extract.TesseractPath = "tesseract"
	}
	if c.Extract.OCRLanguage == "" {
		c.Extract.OCRLanguage = "eng"
	}
	if c.Quota.MaxQuestions <= 0 {
		c.Quota.MaxQuestions = 3
	}
	if c.Session.Store == "" {
		c.Session.Store = SessionStoreDB
	}
	switch c.Session.Store {
	case SessionStoreDB:
	case SessionStoreRedis:
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required for redis session store")
		}
	default:
		return fmt.Errorf("session.store must be db or redis")
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24 * 14
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sessionid"
	}
	if c.Session.CSRFCookie == "" {
		c.Session.CSRFCookie = "csrftoken"
	}
	if c.Session.CSRFHeader == "" {
		c.Session.CSRFHeader = "X-CSRFToken"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "lax"
	}
	if c.Session.CleanupCron == "" {
		c.Session.CleanupCron = "0 * * * *"
	}
	if c.RateLimit.Burst == 0 && c.RateLimit.RequestsPerMinute > 0 {
		c.RateLimit.Burst = c.RateLimit.RequestsPerMinute
	}
	return nil
}
