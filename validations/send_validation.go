package validations

import (
	"context"

	domainSend "github.com/AzielCF/az-crm/domains/send"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateSendText(ctx context.Context, request domainSend.TextRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.Body, validation.Required, validation.Length(1, 65536)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateSendMedia(ctx context.Context, request domainSend.MediaRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.MediaPath, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateAutomationSend(ctx context.Context, request domainSend.AutomationRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.Required),
		validation.Field(&request.Body, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
