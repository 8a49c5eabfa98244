package handlers

import (
	"github.com/gofiber/fiber/v2"

	"kobapay/internal/apperr"
	"kobapay/internal/pipeline"
	"kobapay/internal/services/auth"
	"kobapay/internal/services/kyc"
	"kobapay/internal/services/user"
)

// ProfileHandler serves the signed-in user's own record and KYC submission.
type ProfileHandler struct {
	pipe  *pipeline.Pipeline
	users *user.Service
	auth  *auth.Service
	kyc   *kyc.Service
}

func NewProfileHandler(pipe *pipeline.Pipeline, users *user.Service, authService *auth.Service, kycService *kyc.Service) *ProfileHandler {
	return &ProfileHandler{pipe: pipe, users: users, auth: authService, kyc: kycService}
}

func (h *ProfileHandler) Fetch() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:    true,
		EncryptResponse: true,
	}, func(c *pipeline.Ctx) (any, error) {
		return h.users.Profile(c.Actor), nil
	})
}

func (h *ProfileHandler) Update() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:   true,
		DecryptRequest: true,
		NewPayload:     func() any { return &user.ProfileUpdateInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*user.ProfileUpdateInput)
		return h.users.UpdateProfile(c.Actor, *in)
	})
}

type profilePhotoPayload struct {
	UploadID uint `json:"upload_id" validate:"required"`
}

func (h *ProfileHandler) SetPhoto() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
		NewPayload:   func() any { return &profilePhotoPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*profilePhotoPayload)
		return h.users.SetProfilePhoto(c.Actor, in.UploadID)
	})
}

// UserData returns the token-stripped payload the mobile apps bootstrap from.
func (h *ProfileHandler) UserData() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:    true,
		EncryptResponse: true,
	}, func(c *pipeline.Ctx) (any, error) {
		data, err := h.auth.UserData(c.Actor)
		if err != nil {
			return nil, err
		}
		delete(data, "access_token")
		delete(data, "refresh_token")
		delete(data, "token_type")
		return data, nil
	})
}

func (h *ProfileHandler) SubmitKYC() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:   true,
		DecryptRequest: true,
		SuccessStatus:  fiber.StatusAccepted,
		NewPayload:     func() any { return &kyc.SubmitInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*kyc.SubmitInput)
		return h.kyc.Submit(c.Fiber.Context(), c.Actor, *in)
	})
}

func (h *ProfileHandler) KYCStatus() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		if c.Actor == nil {
			return nil, apperr.NotAuthorized("")
		}
		return fiber.Map{
			"status":  c.Actor.KYCVerificationStatus,
			"comment": c.Actor.KYCVerificationComment,
		}, nil
	})
}
