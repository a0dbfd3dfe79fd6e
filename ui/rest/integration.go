package rest

import (
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/gofiber/fiber/v2"
)

type Integration struct {
	Service domainIntegration.IIntegrationUsecase
}

func InitRestIntegration(app fiber.Router, service domainIntegration.IIntegrationUsecase) Integration {
	rest := Integration{Service: service}

	app.Get("/integration", rest.Get)
	app.Post("/integration", rest.Update)
	return rest
}

func (controller *Integration) Get(c *fiber.Ctx) error {
	return responseSuccess(c, "Integration config", controller.Service.Get(c.UserContext()))
}

func (controller *Integration) Update(c *fiber.Ctx) error {
	var request domainIntegration.Config
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": 400, "message": err.Error()})
	}

	if err := controller.Service.Update(c.UserContext(), request); err != nil {
		return responseError(c, err)
	}

	return responseSuccess(c, "Integration config updated", request)
}
