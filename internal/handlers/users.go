package handlers

import (
	"github.com/gofiber/fiber/v2"

	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/pipeline"
	"kobapay/internal/repositories"
	"kobapay/internal/services/user"
)

// UserHandler serves admin user management.
type UserHandler struct {
	cfg   config.Config
	pipe  *pipeline.Pipeline
	users *user.Service
}

func NewUserHandler(cfg config.Config, pipe *pipeline.Pipeline, users *user.Service) *UserHandler {
	return &UserHandler{cfg: cfg, pipe: pipe, users: users}
}

func (h *UserHandler) List() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermViewUsers},
		RawResponse: true,
	}, func(c *pipeline.Ctx) (any, error) {
		page, pageSize := Page(c.Fiber, h.cfg.DefaultPageSize)
		filter := repositories.UserFilter{
			Keyword:   c.Fiber.Query("keyword"),
			RoleLabel: c.Fiber.Query("role"),
			KYCStatus: c.Fiber.Query("kyc_status"),
			Page:      page,
			PageSize:  pageSize,
		}
		users, total, err := h.users.List(filter)
		if err != nil {
			return nil, err
		}
		return Paginated(c.Fiber, users, total, page, pageSize), nil
	})
}

func (h *UserHandler) Fetch() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermViewUsers},
	}, func(c *pipeline.Ctx) (any, error) {
		return h.users.FetchByPublicID(c.Fiber.Params("id"))
	})
}

func (h *UserHandler) Create() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions:   []string{authz.PermCreateUsers},
		SuccessStatus: fiber.StatusCreated,
		NewPayload:    func() any { return &user.CreateInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*user.CreateInput)
		return h.users.Create(c.Fiber.Context(), c.Actor, *in)
	})
}

func (h *UserHandler) Update() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermUpdateUsers},
		NewPayload:  func() any { return &user.UpdateInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*user.UpdateInput)
		return h.users.Update(c.Actor, c.Fiber.Params("id"), *in)
	})
}

type activatePayload struct {
	Status *bool `json:"status" validate:"required"`
}

func (h *UserHandler) SetActive() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermActivateDeactivateUsers},
		NewPayload:  func() any { return &activatePayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*activatePayload)
		return h.users.SetActive(c.Fiber.Context(), c.Actor, c.Fiber.Params("id"), *in.Status)
	})
}

// CreatableRoles lists the roles the actor may hand out.
func (h *UserHandler) CreatableRoles() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermCreateUsers, authz.PermUpdateUsers},
	}, func(c *pipeline.Ctx) (any, error) {
		return h.users.CreatableRoles(c.Actor)
	})
}
