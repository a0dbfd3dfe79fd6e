package usecase

import (
	"context"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/validations"
	"github.com/sirupsen/logrus"
)

type serviceIntegration struct {
	repo  domainIntegration.IIntegrationRepository
	cache *domainIntegration.Cache
}

func NewIntegrationService(repo domainIntegration.IIntegrationRepository, cache *domainIntegration.Cache) domainIntegration.IIntegrationUsecase {
	return &serviceIntegration{repo: repo, cache: cache}
}

// Get always serves the in-process mirror; the database is only touched on
// startup load and explicit updates.
func (service *serviceIntegration) Get(ctx context.Context) domainIntegration.Config {
	return service.cache.Get()
}

// Update persists first, then swaps the mirror, so a failed write never
// leaves readers with a config that was never stored.
func (service *serviceIntegration) Update(ctx context.Context, cfg domainIntegration.Config) error {
	if err := validations.ValidateIntegrationConfig(ctx, cfg); err != nil {
		return err
	}
	if err := service.repo.Save(ctx, cfg); err != nil {
		return err
	}
	service.cache.Replace(cfg)
	logrus.Info("[INTEGRATION] Configuration updated")
	return nil
}
