package rest

import (
	"strconv"

	domainMessage "github.com/AzielCF/az-crm/domains/message"
	"github.com/AzielCF/az-crm/pkg/phone"
	"github.com/gofiber/fiber/v2"
)

type Message struct {
	Repo domainMessage.IMessageRepository
}

func InitRestMessage(app fiber.Router, repo domainMessage.IMessageRepository) Message {
	rest := Message{Repo: repo}

	app.Get("/messages/:phone", rest.ListByPhone)
	app.Get("/message/:message_id", rest.GetByID)
	return rest
}

func (controller *Message) ListByPhone(c *fiber.Ctx) error {
	number := phone.Bare(c.Params("phone"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	messages, err := controller.Repo.ListByPhone(c.UserContext(), number, limit)
	if err != nil {
		return responseError(c, err)
	}

	return responseSuccess(c, "Messages found", messages)
}

func (controller *Message) GetByID(c *fiber.Ctx) error {
	msg, err := controller.Repo.GetByMessageID(c.UserContext(), c.Params("message_id"))
	if err != nil {
		return responseError(c, err)
	}
	return responseSuccess(c, "Message found", msg)
}
