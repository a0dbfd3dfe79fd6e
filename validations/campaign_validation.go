package validations

import (
	"context"

	domainCampaign "github.com/AzielCF/az-crm/domains/campaign"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCampaignStart(ctx context.Context, request domainCampaign.StartRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Numbers, validation.Required, validation.Length(1, 0)),
		validation.Field(&request.Message, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	spec := request.Message
	err = validation.ValidateStructWithContext(ctx, &spec,
		validation.Field(&spec.Kind, validation.Required, validation.In(
			domainCampaign.KindText, domainCampaign.KindMedia, domainCampaign.KindTemplate,
		)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	switch spec.Kind {
	case domainCampaign.KindText, domainCampaign.KindTemplate:
		if spec.Body == "" {
			return pkgError.ValidationError("message.body: cannot be blank.")
		}
	case domainCampaign.KindMedia:
		if spec.MediaPath == "" {
			return pkgError.ValidationError("message.media_path: cannot be blank.")
		}
	}

	return nil
}
