package controller

import (
	"net/mail"

	"securechat-service/config"
	"securechat-service/database"
	"securechat-service/model"
	"securechat-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

type AuthSignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type AuthLoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthRenewTokenInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthOtpValidateInput struct {
	Token string `json:"token" validate:"required"`
}

func AuthSignup(c *fiber.Ctx) error {
	input := new(AuthSignupInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	// If existing email is found, return error
	if count := database.Postgres.
		Where(&model.User{Email: input.Email}).
		First(new(model.User)).
		RowsAffected; count > 0 {
		return fail(c, fiber.StatusBadRequest, "Email is already registered")
	}

	// If existing username is found, return error
	if count := database.Postgres.
		Where(&model.User{Username: input.Username}).
		First(new(model.User)).
		RowsAffected; count > 0 {
		return fail(c, fiber.StatusBadRequest, "Username is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), 14)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	// Generate OTP secret
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      config.Config("OTP_ISSUER"),
		AccountName: input.Email,
		SecretSize:  15,
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	user := model.User{
		Username:   input.Username,
		Email:      input.Email,
		Password:   string(hash),
		Role:       "user",
		Otp_secret: key.Secret(),
	}
	if err := database.Postgres.Create(&user).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	// Add casbin policy
	database.Casbin().AddGroupingPolicy(utils.FormatID(user.ID), user.Role)

	return success(c, fiber.Map{
		"id": user.ID,
	})
}

func AuthSignin(c *fiber.Ctx) error {
	input := new(AuthLoginInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	// Login accepts username or email
	user := new(model.User)
	query := &model.User{Username: input.Login}
	if _, err := mail.ParseAddress(input.Login); err == nil {
		query = &model.User{Email: input.Login}
	}
	if err := database.Postgres.Where(query).First(user).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	// A user with 2FA enabled receives an intermediate token that only the
	// 2FA validate endpoint accepts.
	tokens, err := utils.GenerateTokens(utils.FormatID(user.ID), user.Otp_enabled)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, fiber.Map{
		"access_token":  tokens.Access,
		"refresh_token": tokens.Refresh,
		"otp":           user.Otp_enabled,
	})
}

func AuthTokenRenew(c *fiber.Ctx) error {
	input := new(AuthRenewTokenInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := validate.Struct(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	claims, err := utils.CheckAndExtractTokenMetadata(input.RefreshToken, "JWT_REFRESH_KEY")
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid or expired refresh token")
	}

	tokens, err := utils.GenerateTokens(claims.Id, claims.Otp)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, fiber.Map{
		"access_token":  tokens.Access,
		"refresh_token": tokens.Refresh,
	})
}

// AuthOtpSecret returns the provisioning secret so the client can enroll
// an authenticator app. 2FA itself stays off until verified.
func AuthOtpSecret(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, fiber.Map{
		"secret": user.Otp_secret,
		"issuer": config.Config("OTP_ISSUER"),
	})
}

// AuthOtpVerify turns 2FA on after the client proves it holds the secret.
func AuthOtpVerify(c *fiber.Ctx) error {
	input := new(AuthOtpValidateInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	user, err := currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	if !totp.Validate(input.Token, user.Otp_secret) {
		return fail(c, fiber.StatusBadRequest, "Invalid one-time password")
	}

	if err := database.Postgres.Model(user).Update("otp_enabled", true).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, nil)
}

// AuthOtpValidate exchanges the intermediate signin token plus a valid
// one-time password for full tokens.
func AuthOtpValidate(c *fiber.Ctx) error {
	input := new(AuthOtpValidateInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	user, err := currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	if !totp.Validate(input.Token, user.Otp_secret) {
		return fail(c, fiber.StatusBadRequest, "Invalid one-time password")
	}

	tokens, err := utils.GenerateTokens(utils.FormatID(user.ID), false)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, fiber.Map{
		"access_token":  tokens.Access,
		"refresh_token": tokens.Refresh,
	})
}

func AuthOtpDisable(c *fiber.Ctx) error {
	input := new(AuthOtpValidateInput)
	if err := c.BodyParser(input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Review your input")
	}

	user, err := currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	if !totp.Validate(input.Token, user.Otp_secret) {
		return fail(c, fiber.StatusBadRequest, "Invalid one-time password")
	}

	if err := database.Postgres.Model(user).Update("otp_enabled", false).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return success(c, nil)
}

func currentUser(c *fiber.Ctx) (*model.User, error) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)

	user := new(model.User)
	if err := database.Postgres.First(user, claims["id"]).Error; err != nil {
		return nil, err
	}
	return user, nil
}
