package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// integrationRecord is the single persisted row holding the automation
// configuration as a JSON document, keyed by the fixed logical key.
type integrationRecord struct {
	Key       string `gorm:"primaryKey;size:64"`
	Document  string
	UpdatedAt time.Time
}

func (integrationRecord) TableName() string {
	return "integration_settings"
}

// IntegrationRepository persists the singleton integration configuration.
type IntegrationRepository struct {
	db *gorm.DB
}

func NewIntegrationRepository(db *gorm.DB) (*IntegrationRepository, error) {
	if err := db.AutoMigrate(&integrationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate integration_settings table: %w", err)
	}
	return &IntegrationRepository{db: db}, nil
}

// Load returns the stored configuration, or the zero config when nothing
// has been saved yet.
func (r *IntegrationRepository) Load(ctx context.Context) (domainIntegration.Config, error) {
	var rec integrationRecord
	err := r.db.WithContext(ctx).Where("key = ?", domainIntegration.ConfigKey).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainIntegration.Config{}, nil
	}
	if err != nil {
		return domainIntegration.Config{}, err
	}

	var cfg domainIntegration.Config
	if err := json.Unmarshal([]byte(rec.Document), &cfg); err != nil {
		return domainIntegration.Config{}, fmt.Errorf("corrupt integration config document: %w", err)
	}
	return cfg, nil
}

func (r *IntegrationRepository) Save(ctx context.Context, cfg domainIntegration.Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	rec := integrationRecord{
		Key:      domainIntegration.ConfigKey,
		Document: string(doc),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&rec).Error
}
