package router

import (
	"securechat-service/controller"
	"securechat-service/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Rest(app *fiber.App) {
	api := app.Group("/v1", logger.New())

	// Auth
	auth := api.Group("/auth")
	auth.Post("/signup", controller.AuthSignup)
	auth.Post("/signin", controller.AuthSignin)
	auth.Post("/token/renew", controller.AuthTokenRenew)
	auth.Post("/2fa/secret", middleware.JWT(), middleware.OTP(), controller.AuthOtpSecret)
	auth.Post("/2fa/verify", middleware.JWT(), middleware.OTP(), controller.AuthOtpVerify)
	auth.Post("/2fa/validate", middleware.JWT(), controller.AuthOtpValidate)
	auth.Post("/2fa/disable", middleware.JWT(), middleware.OTP(), controller.AuthOtpDisable)

	// User
	user := api.Group("/user", middleware.JWT(), middleware.OTP())
	user.Get("/profile", controller.UserProfile)
	user.Get("/blocked", controller.UserBlockedList)
	user.Post("/block/:id", controller.UserBlock)
	user.Delete("/block/:id", controller.UserUnblock)

	// Presence
	api.Get("/presence/:key", middleware.JWT(), middleware.OTP(), controller.UserPresence)

	// Chat requests
	requests := api.Group("/requests", middleware.JWT(), middleware.OTP())
	requests.Post("/", controller.RequestSend)
	requests.Get("/", controller.RequestList)
	requests.Post("/:id/accept", controller.RequestAccept)
	requests.Post("/:id/reject", controller.RequestReject)
	requests.Post("/:id/cancel", controller.RequestCancel)

	// Private messages
	messages := api.Group("/messages", middleware.JWT(), middleware.OTP())
	messages.Post("/", controller.MessageSend)
	messages.Get("/summaries", controller.MessageSummaries)
	messages.Post("/read", controller.MessageMarkRead)
	messages.Get("/:partnerId", controller.MessageConversation)
	messages.Delete("/:partnerId", controller.MessageDeleteConversation)

	// Groups
	groups := api.Group("/groups", middleware.JWT(), middleware.OTP())
	groups.Post("/", controller.GroupCreate)
	groups.Post("/:id/messages", controller.GroupSendMessage)
	groups.Get("/:id/messages", controller.GroupHistory)

	// Admin
	admin := api.Group("/admin", middleware.JWT(), middleware.OTP(), middleware.RBAC())
	admin.Post("/requests/sweep", controller.AdminRequestSweep)

	// Metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
