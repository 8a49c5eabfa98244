// Package role implements role and permission management.
package role

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"kobapay/internal/apperr"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// Service wires role CRUD together.
type Service struct {
	cfg   config.Config
	roles *repositories.RoleRepository
	cache *repositories.Cache
	jobs  queue.Dispatcher
}

func NewService(cfg config.Config, roles *repositories.RoleRepository, cache *repositories.Cache, jobs queue.Dispatcher) *Service {
	return &Service{cfg: cfg, roles: roles, cache: cache, jobs: jobs}
}

func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ', r == '_', r == '-':
			out = append(out, '-')
		}
	}
	return string(out)
}

// Input is the role create/update payload.
type Input struct {
	Name               string `json:"name" validate:"required"`
	Description        string `json:"description"`
	PermissionIDs      []uint `json:"permission_ids"`
	UserCanBeCreatedBy []uint `json:"user_can_be_created_by"`
}

// Create adds a role with its permission bundle. Duplicate names are
// rejected.
func (s *Service) Create(ctx context.Context, actor *models.User, in Input) (*models.Role, error) {
	label := slugify(in.Name)
	if exists, err := s.roles.LabelExists(label, 0); err != nil {
		return nil, apperr.Server(err, "role.Create")
	} else if exists {
		return nil, apperr.User("A role named " + in.Name + " already exists")
	}

	perms, err := s.roles.FindPermissionsByIDs(in.PermissionIDs)
	if err != nil {
		return nil, apperr.Server(err, "role.Create")
	}

	role := &models.Role{
		Name:        in.Name,
		Label:       label,
		Description: in.Description,
		IsDefault:   false,
	}
	if len(in.UserCanBeCreatedBy) > 0 {
		role.UserCanBeCreatedBy, _ = marshalIDs(in.UserCanBeCreatedBy)
	}
	role.CreatedByID = &actor.ID

	if err := s.roles.Create(role); err != nil {
		return nil, apperr.Server(err, "role.Create")
	}
	if err := s.roles.ReplacePermissions(role, perms); err != nil {
		return nil, apperr.Server(err, "role.Create")
	}

	_ = s.jobs.Dispatch(ctx, queue.JobActivityReport, map[string]any{
		"user_id": actor.ID, "title": "create", "description": "Created role " + role.Name,
	})
	return s.roles.FindByID(role.ID)
}

func marshalIDs(ids []uint) (datatypes.JSON, error) {
	data, err := json.Marshal(ids)
	return datatypes.JSON(data), err
}

// Update edits a role and replaces its permission bundle. Cached copies are
// invalidated.
func (s *Service) Update(ctx context.Context, actor *models.User, id uint, in Input) (*models.Role, error) {
	role, err := s.roles.FindByID(id)
	if err != nil {
		return nil, apperr.NotFound("Role not found")
	}

	label := slugify(in.Name)
	if exists, err := s.roles.LabelExists(label, role.ID); err != nil {
		return nil, apperr.Server(err, "role.Update")
	} else if exists {
		return nil, apperr.User("A role named " + in.Name + " already exists")
	}

	role.Name = in.Name
	role.Label = label
	role.Description = in.Description
	role.UpdatedByID = &actor.ID
	if len(in.UserCanBeCreatedBy) > 0 {
		role.UserCanBeCreatedBy, _ = marshalIDs(in.UserCanBeCreatedBy)
	}
	if err := s.roles.Save(role); err != nil {
		return nil, apperr.Server(err, "role.Update")
	}

	if in.PermissionIDs != nil {
		perms, err := s.roles.FindPermissionsByIDs(in.PermissionIDs)
		if err != nil {
			return nil, apperr.Server(err, "role.Update")
		}
		if err := s.roles.ReplacePermissions(role, perms); err != nil {
			return nil, apperr.Server(err, "role.Update")
		}
	}

	_ = s.cache.Delete(ctx, s.cache.Key("role", role.ID))
	_ = s.jobs.Dispatch(ctx, queue.JobActivityReport, map[string]any{
		"user_id": actor.ID, "title": "update", "description": "Updated role " + role.Name,
	})
	return s.roles.FindByID(role.ID)
}

// Delete soft-deletes a role. Built-in roles cannot be removed.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uint) (*models.Role, error) {
	role, err := s.roles.FindByID(id)
	if err != nil {
		return nil, apperr.NotFound("Role not found")
	}
	if role.IsDefault {
		return nil, apperr.User("Built-in roles cannot be deleted")
	}

	now := time.Now()
	role.IsDeleted = true
	role.DeletedAt = &now
	role.DeletedByID = &actor.ID
	if err := s.roles.Save(role); err != nil {
		return nil, apperr.Server(err, "role.Delete")
	}

	_ = s.cache.Delete(ctx, s.cache.Key("role", role.ID))
	_ = s.jobs.Dispatch(ctx, queue.JobActivityReport, map[string]any{
		"user_id": actor.ID, "title": "delete", "description": "Deleted role " + role.Name,
	})
	return role, nil
}

// Fetch loads one role through the cache.
func (s *Service) Fetch(ctx context.Context, id uint) (*models.Role, error) {
	key := s.cache.Key("role", id)
	role, err := repositories.Cached(ctx, s.cache, key, s.cfg.DefaultCacheTTL, func() (*models.Role, error) {
		return s.roles.FindByID(id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Role not found")
		}
		return nil, apperr.Server(err, "role.Fetch")
	}
	return role, nil
}

// List returns every available role.
func (s *Service) List() ([]models.Role, error) {
	roles, err := s.roles.List()
	if err != nil {
		return nil, apperr.Server(err, "role.List")
	}
	return roles, nil
}

// GroupedPermissions lists every permission keyed by group name.
func (s *Service) GroupedPermissions() (map[string][]models.Permission, error) {
	perms, err := s.roles.ListPermissions()
	if err != nil {
		return nil, apperr.Server(err, "role.GroupedPermissions")
	}
	grouped := map[string][]models.Permission{}
	for _, p := range perms {
		grouped[p.GroupName] = append(grouped[p.GroupName], p)
	}
	return grouped, nil
}
