package controller

import (
	"errors"
	"log"
	"strconv"

	"securechat-service/model"
	"securechat-service/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Services behind the REST surface, wired in main.
var (
	Blocks   *service.BlockService
	Presence *service.PresenceService
	Requests *service.ChatRequestService
	Messages *service.MessageService
	Groups   *service.GroupService
)

var validate = validator.New()

func Init(
	blocks *service.BlockService,
	presence *service.PresenceService,
	requests *service.ChatRequestService,
	messages *service.MessageService,
	groups *service.GroupService,
) {
	Blocks = blocks
	Presence = presence
	Requests = requests
	Messages = messages
	Groups = groups
}

func success(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

// serviceError maps the service error taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrForbidden):
		return fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrConflict):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, model.ErrBadRequest):
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	log.Printf("internal error: %v", err)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// callerID extracts the authenticated user id resolved by the JWT
// middleware.
func callerID(c *fiber.Ctx) uint {
	user := c.Locals("user").(*jwt.Token)
	claims := user.Claims.(jwt.MapClaims)
	id, _ := strconv.ParseUint(claims["id"].(string), 10, 64)
	return uint(id)
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
