package controller

import (
	"github.com/gofiber/fiber/v2"
)

type GroupCreateInput struct {
	Name           string `json:"name" validate:"required,min=1,max=128"`
	ParticipantIDs []uint `json:"participantIds" validate:"required,min=1"`
}

type GroupMessageInput struct {
	Content string `json:"content" validate:"required"`
}

func GroupCreate(c *fiber.Ctx) error {
	input := new(GroupCreateInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	// The creator is always a participant.
	ids := input.ParticipantIDs
	caller := callerID(c)
	found := false
	for _, id := range ids {
		if id == caller {
			found = true
			break
		}
	}
	if !found {
		ids = append(ids, caller)
	}

	group, err := Groups.Create(c.UserContext(), input.Name, ids)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, group)
}

func GroupSendMessage(c *fiber.Ctx) error {
	groupID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed group id")
	}

	input := new(GroupMessageInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	message, err := Groups.SendMessage(c.UserContext(), groupID, callerID(c), input.Content)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, message)
}

func GroupHistory(c *fiber.Ctx) error {
	groupID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed group id")
	}

	history, err := Groups.History(c.UserContext(), groupID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, history)
}
