package rest

import (
	domainSend "github.com/AzielCF/az-crm/domains/send"
	"github.com/gofiber/fiber/v2"
)

type Send struct {
	Service domainSend.ISendUsecase
}

func InitRestSend(app fiber.Router, service domainSend.ISendUsecase) Send {
	rest := Send{Service: service}

	app.Post("/send/message", rest.SendText)
	app.Post("/send/media", rest.SendMedia)
	// callback surface for the automation endpoint
	app.Post("/automation/reply", rest.SendFromAutomation)
	return rest
}

func (controller *Send) SendText(c *fiber.Ctx) error {
	var request domainSend.TextRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": 400, "message": err.Error()})
	}

	response, err := controller.Service.SendText(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}

	return responseSuccess(c, "Message sent successfully", response)
}

func (controller *Send) SendMedia(c *fiber.Ctx) error {
	var request domainSend.MediaRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": 400, "message": err.Error()})
	}

	response, err := controller.Service.SendMedia(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}

	return responseSuccess(c, "Media sent successfully", response)
}

func (controller *Send) SendFromAutomation(c *fiber.Ctx) error {
	var request domainSend.AutomationRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(fiber.Map{"status": 400, "message": err.Error()})
	}

	response, err := controller.Service.SendFromAutomation(c.UserContext(), request)
	if err != nil {
		return responseError(c, err)
	}

	return responseSuccess(c, "Automation reply sent", response)
}
