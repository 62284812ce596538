package controller

import (
	"time"

	"securechat-service/service"

	"github.com/gofiber/fiber/v2"
)

// AdminRequestSweep triggers one expiration pass outside the scheduled
// cadence. RBAC-guarded.
func AdminRequestSweep(c *fiber.Ctx) error {
	count, err := Requests.ExpireStale(c.UserContext(), service.DefaultSweepRetention)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.Map{
		"expired": count,
		"sweptAt": time.Now(),
	})
}
