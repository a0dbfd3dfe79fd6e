package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Webhook    WebhookConfig
	Pipeline   PipelineConfig
	Campaign   CampaignConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	Statics  string
	Media    string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type WebhookConfig struct {
	TimeoutSeconds     int
	Secret             string
	InsecureSkipVerify bool
}

type PipelineConfig struct {
	LoopGuardClearIntervalMs int
	AutoDownloadMedia        bool
}

type CampaignConfig struct {
	InterSendDelayMs int
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	debug := getEnvBool("APP_DEBUG", false)

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		Statics:  getEnv("PATH_STATICS", "statics"),
		Media:    getEnv("PATH_MEDIA", filepath.Join("statics", "media")),
		Storages: getEnv("PATH_STORAGES", "storages"),
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "crm.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azcrm:"),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Webhook: WebhookConfig{
			TimeoutSeconds:     getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10),
			Secret:             getEnv("WEBHOOK_SECRET", ""),
			InsecureSkipVerify: getEnvBool("WEBHOOK_INSECURE_SKIP_VERIFY", false),
		},
		Pipeline: PipelineConfig{
			LoopGuardClearIntervalMs: getEnvInt("LOOP_GUARD_CLEAR_INTERVAL_MS", 60000),
			AutoDownloadMedia:        getEnvBool("PIPELINE_AUTO_DOWNLOAD_MEDIA", true),
		},
		Campaign: CampaignConfig{
			InterSendDelayMs: getEnvInt("CAMPAIGN_INTER_SEND_DELAY_MS", 1200),
		},
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("EVENT_WORKER_POOL_SIZE", 20),
			QueueSize: getEnvInt("EVENT_WORKER_QUEUE_SIZE", 1000),
		},
	}

	if cfg.WorkerPool.Size <= 0 {
		return nil, fmt.Errorf("EVENT_WORKER_POOL_SIZE must be positive")
	}

	Global = cfg
	return cfg, nil
}
