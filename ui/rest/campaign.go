package rest

import (
	domainCampaign "github.com/AzielCF/az-crm/domains/campaign"
	"github.com/gofiber/fiber/v2"
)

type Campaign struct {
	Service domainCampaign.ICampaignUsecase
}

func InitRestCampaign(app fiber.Router, service domainCampaign.ICampaignUsecase) Campaign {
	rest := Campaign{Service: service}

	app.Post("/campaign/start", rest.Start)
	app.Post("/campaign/:dispatch_id/stop", rest.Stop)
	app.Get("/campaign/status", rest.Status)
	return rest
}

func (controller *Campaign) Start(c *fiber.Ctx) error {
	var request domainCampaign.StartRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": 400, "message": err.Error()})
	}

	dispatchID, err := controller.Service.Start(c.UserContext(), request.Numbers, request.Message)
	if err != nil {
		return responseError(c, err)
	}

	return responseSuccess(c, "Campaign started", fiber.Map{"dispatch_id": dispatchID})
}

func (controller *Campaign) Stop(c *fiber.Ctx) error {
	dispatchID := c.Params("dispatch_id")
	stopped := controller.Service.RequestStop(dispatchID)
	if !stopped {
		return responseSuccess(c, "No matching campaign running", fiber.Map{"stopped": false})
	}
	return responseSuccess(c, "Campaign stop requested", fiber.Map{"stopped": true})
}

func (controller *Campaign) Status(c *fiber.Ctx) error {
	return responseSuccess(c, "Campaign status", controller.Service.Snapshot())
}
