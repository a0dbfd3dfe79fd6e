package integration

import (
	"context"
	"sync"
)

// ConfigKey is the fixed logical key of the singleton configuration row.
const ConfigKey = "integration"

// Config mirrors the persisted automation/integration configuration.
// It is loaded at startup and refreshed on explicit save; readers always
// hit the in-process cache, never the database.
type Config struct {
	TestURL             string `json:"test_url"`
	ProdURL             string `json:"prod_url"`
	SentConfirmationURL string `json:"sent_confirmation_url"`
	InboundReceiveURL   string `json:"inbound_receive_url"`
	UseTestURL          bool   `json:"use_test_url"`
	IAEnabled           bool   `json:"ia_enabled"`
	MassDispatchBypass  bool   `json:"mass_dispatch_bypass"`
	PaymentWebhookUser  string `json:"payment_webhook_user"`
	PaymentWebhookToken string `json:"payment_webhook_token"`
}

// ActiveAutomationURL picks the automation endpoint for the current
// environment switch.
func (c Config) ActiveAutomationURL() string {
	if c.UseTestURL {
		return c.TestURL
	}
	return c.ProdURL
}

// IIntegrationRepository persists the singleton configuration.
type IIntegrationRepository interface {
	Load(ctx context.Context) (Config, error)
	Save(ctx context.Context, cfg Config) error
}

// IIntegrationUsecase exposes the configuration to the REST surface.
type IIntegrationUsecase interface {
	Get(ctx context.Context) Config
	Update(ctx context.Context, cfg Config) error
}

// Cache is the process-wide read-mostly mirror. Replace swaps the whole
// structure atomically so readers never see a half-updated config.
type Cache struct {
	mu  sync.RWMutex
	cfg Config
}

func NewCache(cfg Config) *Cache {
	return &Cache{cfg: cfg}
}

func (c *Cache) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *Cache) Replace(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}
