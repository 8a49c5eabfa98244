package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"kobapay/internal/apperr"
	"kobapay/internal/authz"
	"kobapay/internal/pipeline"
	"kobapay/internal/services/role"
)

// RoleHandler serves role and permission management.
type RoleHandler struct {
	pipe  *pipeline.Pipeline
	roles *role.Service
}

func NewRoleHandler(pipe *pipeline.Pipeline, roles *role.Service) *RoleHandler {
	return &RoleHandler{pipe: pipe, roles: roles}
}

func roleID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, apperr.User("id is not a number")
	}
	return uint(id), nil
}

func (h *RoleHandler) List() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermViewRoles},
	}, func(c *pipeline.Ctx) (any, error) {
		return h.roles.List()
	})
}

func (h *RoleHandler) Fetch() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermViewRoles},
	}, func(c *pipeline.Ctx) (any, error) {
		id, err := roleID(c.Fiber)
		if err != nil {
			return nil, err
		}
		return h.roles.Fetch(c.Fiber.Context(), id)
	})
}

func (h *RoleHandler) Create() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions:   []string{authz.PermCreateRoles},
		SuccessStatus: fiber.StatusCreated,
		NewPayload:    func() any { return &role.Input{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*role.Input)
		return h.roles.Create(c.Fiber.Context(), c.Actor, *in)
	})
}

func (h *RoleHandler) Update() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermUpdateRoles},
		NewPayload:  func() any { return &role.Input{} },
	}, func(c *pipeline.Ctx) (any, error) {
		id, err := roleID(c.Fiber)
		if err != nil {
			return nil, err
		}
		in := c.Payload.(*role.Input)
		return h.roles.Update(c.Fiber.Context(), c.Actor, id, *in)
	})
}

func (h *RoleHandler) Delete() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermDeleteRoles},
	}, func(c *pipeline.Ctx) (any, error) {
		id, err := roleID(c.Fiber)
		if err != nil {
			return nil, err
		}
		if _, err := h.roles.Delete(c.Fiber.Context(), c.Actor, id); err != nil {
			return nil, err
		}
		return "Role deleted successfully", nil
	})
}

func (h *RoleHandler) Permissions() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		Permissions: []string{authz.PermViewRoles},
	}, func(c *pipeline.Ctx) (any, error) {
		return h.roles.GroupedPermissions()
	})
}
