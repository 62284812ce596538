package controller

import (
	"github.com/gofiber/fiber/v2"
)

func UserProfile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, fiber.Map{
		"id":       user.ID,
		"created":  user.CreatedAt.Unix(),
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
		"otp":      user.Otp_enabled,
		"online":   user.Online,
		"lastSeen": user.LastSeen,
	})
}

func UserBlock(c *fiber.Ctx) error {
	blockedID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed user id")
	}

	if err := Blocks.Block(c.UserContext(), callerID(c), blockedID); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func UserUnblock(c *fiber.Ctx) error {
	blockedID, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Malformed user id")
	}

	if err := Blocks.Unblock(c.UserContext(), callerID(c), blockedID); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func UserBlockedList(c *fiber.Ctx) error {
	ids, err := Blocks.List(c.UserContext(), callerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.Map{
		"blocked": ids,
	})
}

// UserPresence answers "is this user reachable right now" for UX purposes.
// The key is either a numeric id or a username.
func UserPresence(c *fiber.Ctx) error {
	snapshot, err := Presence.Get(c.UserContext(), c.Params("key"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, snapshot)
}
