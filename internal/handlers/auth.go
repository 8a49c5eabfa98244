package handlers

import (
	"github.com/gofiber/fiber/v2"

	"kobapay/internal/pipeline"
	"kobapay/internal/services/auth"
)

// AuthHandler serves registration, login, OTP and password endpoints.
type AuthHandler struct {
	pipe *pipeline.Pipeline
	auth *auth.Service
}

func NewAuthHandler(pipe *pipeline.Pipeline, authService *auth.Service) *AuthHandler {
	return &AuthHandler{pipe: pipe, auth: authService}
}

type emailPayload struct {
	Email string `json:"email" validate:"required,email"`
}

type otpPayload struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=4"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type changePasswordPayload struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type refreshPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Register() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		DecryptRequest: true,
		SuccessStatus:  fiber.StatusAccepted,
		NewPayload:     func() any { return &auth.RegisterInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*auth.RegisterInput)
		return h.auth.Register(c.Fiber.Context(), *in)
	})
}

func (h *AuthHandler) Login() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		DecryptRequest:  true,
		EncryptResponse: true,
		NewPayload:      func() any { return &loginPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*loginPayload)
		return h.auth.Login(c.Fiber.Context(), in.Email, in.Password)
	})
}

func (h *AuthHandler) SendSignupOTP() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		NewPayload: func() any { return &emailPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*emailPayload)
		return h.auth.SendOTP(c.Fiber.Context(), in.Email, auth.OTPIntentSignup)
	})
}

func (h *AuthHandler) VerifyRegisterOTP() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		EncryptResponse: true,
		NewPayload:      func() any { return &otpPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*otpPayload)
		return h.auth.VerifyRegisterOTP(in.Email, in.OTP)
	})
}

func (h *AuthHandler) ForgotPassword() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		NewPayload: func() any { return &emailPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*emailPayload)
		return h.auth.ForgotPassword(c.Fiber.Context(), in.Email)
	})
}

func (h *AuthHandler) VerifyPasswordOTP() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		NewPayload: func() any { return &otpPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*otpPayload)
		return h.auth.VerifyPasswordOTP(in.Email, in.OTP)
	})
}

func (h *AuthHandler) ResetPassword() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		DecryptRequest: true,
		NewPayload:     func() any { return &resetPasswordPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*resetPasswordPayload)
		return h.auth.ResetPassword(in.Email, in.Password)
	})
}

func (h *AuthHandler) ChangePassword() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:   true,
		DecryptRequest: true,
		NewPayload:     func() any { return &changePasswordPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*changePasswordPayload)
		return h.auth.ChangePassword(c.Actor, in.OldPassword, in.NewPassword)
	})
}

func (h *AuthHandler) RefreshToken() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		NewPayload: func() any { return &refreshPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*refreshPayload)
		return h.auth.RefreshToken(in.RefreshToken)
	})
}

func (h *AuthHandler) Logout() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		return h.auth.Logout(c.Actor)
	})
}
