package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the dynamic settings currently loaded in
// memory, for the monitoring endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":                    Global.App.Debug,
		"app_version":                  Global.App.Version,
		"webhook_timeout_seconds":      Global.Webhook.TimeoutSeconds,
		"loop_guard_clear_interval_ms": Global.Pipeline.LoopGuardClearIntervalMs,
		"pipeline_auto_download_media": Global.Pipeline.AutoDownloadMedia,
		"campaign_inter_send_delay_ms": Global.Campaign.InterSendDelayMs,
		"event_worker_pool_size":       Global.WorkerPool.Size,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
