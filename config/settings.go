package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var (
	AppVersion             = "v1.2.0"
	AppPort                = "3000"
	AppDebug               = false
	AppBasicAuthCredential []string
	AppBasePath            = ""
	AppTrustedProxies      []string

	PathMedia    = "statics/media"
	PathStorages = "storages"

	DBDriver = "sqlite"
	DBName   = "storages/crm.db"

	// Webhook dispatch settings
	WebhookTimeoutSeconds = 10
	WebhookSecret         = ""

	// Loop guard: the recently-sent set is fully cleared on this period,
	// not per entry. Bounds memory; in-flight flags cover the races.
	LoopGuardClearIntervalMs = 60000

	// Campaign pacing between sends, to avoid transport-side throttling.
	CampaignInterSendDelayMs = 1200

	// Event worker pool settings
	EventWorkerPoolSize  = 20
	EventWorkerQueueSize = 1000

	// Valkey (optional, distributed realtime broadcast)
	ValkeyEnabled   = false
	ValkeyAddress   = "localhost:6379"
	ValkeyPassword  = ""
	ValkeyDB        = 0
	ValkeyKeyPrefix = "azcrm:"
	ServerID        = ""
)

func init() {
	if v := strings.TrimSpace(os.Getenv("CAMPAIGN_INTER_SEND_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			CampaignInterSendDelayMs = n
		}
	}
	loadCampaignDelayFromDB()
	if v := strings.TrimSpace(os.Getenv("LOOP_GUARD_CLEAR_INTERVAL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			LoopGuardClearIntervalMs = n
		}
	}
	loadLoopGuardIntervalFromDB()

	if val := os.Getenv("EVENT_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			EventWorkerPoolSize = parsed
		}
	}
	if val := os.Getenv("EVENT_WORKER_QUEUE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			EventWorkerQueueSize = parsed
		}
	}
	if val := os.Getenv("WEBHOOK_SECRET"); val != "" {
		WebhookSecret = val
	}
}

func SetCampaignInterSendDelayMs(v int) {
	if v < 0 {
		v = 0
	}
	CampaignInterSendDelayMs = v
}

func SaveCampaignInterSendDelayMs(v int) error {
	SetCampaignInterSendDelayMs(v)
	return saveSetting("campaign_inter_send_delay_ms", fmt.Sprintf("%d", CampaignInterSendDelayMs))
}

func SetLoopGuardClearIntervalMs(v int) {
	if v <= 0 {
		return
	}
	LoopGuardClearIntervalMs = v
}

func SaveLoopGuardClearIntervalMs(v int) error {
	SetLoopGuardClearIntervalMs(v)
	return saveSetting("loop_guard_clear_interval_ms", fmt.Sprintf("%d", LoopGuardClearIntervalMs))
}

func openSettingsDB() (*sql.DB, error) {
	dbPath := fmt.Sprintf("%s/settings.db", PathStorages)
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_settings (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func loadSetting(key string) (string, bool) {
	db, err := openSettingsDB()
	if err != nil {
		return "", false
	}
	defer db.Close()

	var v sql.NullString
	if err := db.QueryRow(`SELECT value FROM global_settings WHERE key = ?`, key).Scan(&v); err != nil {
		return "", false
	}
	if !v.Valid {
		return "", false
	}
	return strings.TrimSpace(v.String), true
}

func saveSetting(key, value string) error {
	db, err := openSettingsDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO global_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func loadCampaignDelayFromDB() {
	if v, ok := loadSetting("campaign_inter_send_delay_ms"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			CampaignInterSendDelayMs = n
		}
	}
}

func loadLoopGuardIntervalFromDB() {
	if v, ok := loadSetting("loop_guard_clear_interval_ms"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			LoopGuardClearIntervalMs = n
		}
	}
}
