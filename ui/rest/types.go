package rest

import (
	"errors"

	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// responseError maps typed errors onto their HTTP status and stable code;
// anything untyped degrades to a 500.
func responseError(c *fiber.Ctx, err error) error {
	var genericErr pkgError.GenericError
	if errors.As(err, &genericErr) {
		return c.Status(genericErr.StatusCode()).JSON(utils.ResponseData{
			Status:  genericErr.StatusCode(),
			Code:    genericErr.ErrCode(),
			Message: genericErr.Error(),
		})
	}
	return c.Status(500).JSON(utils.ResponseData{
		Status:  500,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	})
}

func responseSuccess(c *fiber.Ctx, message string, results any) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: results,
	})
}
