package controller

import (
	"securechat-service/model"

	"github.com/gofiber/fiber/v2"
)

type EnvelopeInput struct {
	Ciphertext          string `json:"ciphertext" validate:"required"`
	SenderKey           string `json:"senderKey" validate:"required"`
	RecipientKey        string `json:"recipientKey" validate:"required"`
	IV                  string `json:"iv" validate:"required"`
	SenderKeyVersion    string `json:"senderKeyVersion"`
	RecipientKeyVersion string `json:"recipientKeyVersion"`
}

func (in EnvelopeInput) envelope() model.Envelope {
	return model.Envelope{
		Ciphertext:          in.Ciphertext,
		SenderKey:           in.SenderKey,
		RecipientKey:        in.RecipientKey,
		IV:                  in.IV,
		SenderKeyVersion:    in.SenderKeyVersion,
		RecipientKeyVersion: in.RecipientKeyVersion,
	}
}

type RequestSendInput struct {
	RecipientID uint          `json:"recipientId" validate:"required"`
	Envelope    EnvelopeInput `json:"envelope" validate:"required"`
}

type MessageSendInput struct {
	RecipientID uint          `json:"recipientId" validate:"required"`
	Envelope    EnvelopeInput `json:"envelope" validate:"required"`
	OneTime     bool          `json:"oneTime"`
	LocalID     string        `json:"localId"`
}

type MarkReadInput struct {
	MessageIDs []uint `json:"messageIds" validate:"required,min=1"`
}

func RequestSend(c *fiber.Ctx) error {
	input := new(RequestSendInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	request, err := Requests.Send(c.UserContext(), callerID(c), input.RecipientID, input.Envelope.envelope())
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, request)
}

func RequestList(c *fiber.Ctx) error {
	requests, err := Requests.ListPending(c.UserContext(), callerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, requests)
}

func RequestAccept(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed request id")
	}

	message, err := Requests.Accept(c.UserContext(), requestID, callerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, message)
}

func RequestReject(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed request id")
	}

	if err := Requests.Reject(c.UserContext(), requestID, callerID(c)); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func RequestCancel(c *fiber.Ctx) error {
	requestID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed request id")
	}

	if err := Requests.Cancel(c.UserContext(), requestID, callerID(c)); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func MessageSend(c *fiber.Ctx) error {
	input := new(MessageSendInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	message, err := Messages.Send(c.UserContext(), callerID(c), input.RecipientID, input.Envelope.envelope(), input.OneTime, input.LocalID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, message)
}

func MessageSummaries(c *fiber.Ctx) error {
	summaries, err := Messages.Summaries(c.UserContext(), callerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, summaries)
}

func MessageConversation(c *fiber.Ctx) error {
	partnerID, ok := paramID(c, "partnerId")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed partner id")
	}

	messages, err := Messages.Conversation(c.UserContext(), callerID(c), partnerID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, messages)
}

// MessageMarkRead is the request/response entry point; the socket router
// exposes the same operation as a fire-and-forget push.
func MessageMarkRead(c *fiber.Ctx) error {
	input := new(MarkReadInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	if err := Messages.MarkRead(c.UserContext(), callerID(c), input.MessageIDs); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func MessageDeleteConversation(c *fiber.Ctx) error {
	partnerID, ok := paramID(c, "partnerId")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed partner id")
	}

	if err := Messages.DeleteConversation(c.UserContext(), callerID(c), partnerID); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}
