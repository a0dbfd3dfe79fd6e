package validations

import (
	"context"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateIntegrationConfig(ctx context.Context, cfg domainIntegration.Config) error {
	err := validation.ValidateStructWithContext(ctx, &cfg,
		validation.Field(&cfg.TestURL, is.URL),
		validation.Field(&cfg.ProdURL, is.URL),
		validation.Field(&cfg.SentConfirmationURL, is.URL),
		validation.Field(&cfg.InboundReceiveURL, is.URL),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
