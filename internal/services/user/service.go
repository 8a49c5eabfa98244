// Package user implements profile self-service and admin user management
// with role-hierarchy enforcement.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"kobapay/internal/apperr"
	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/notification"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
	"kobapay/internal/services/auth"
)

// Service wires user management together.
type Service struct {
	cfg    config.Config
	users  *repositories.UserRepository
	roles  *repositories.RoleRepository
	engine *authz.Engine
	cache  *repositories.Cache
	jobs   queue.Dispatcher
}

func NewService(cfg config.Config, users *repositories.UserRepository, roles *repositories.RoleRepository,
	engine *authz.Engine, cache *repositories.Cache, jobs queue.Dispatcher) *Service {
	return &Service{cfg: cfg, users: users, roles: roles, engine: engine, cache: cache, jobs: jobs}
}

// Profile returns the caller's own record.
func (s *Service) Profile(user *models.User) *models.User {
	return user
}

// ProfileUpdateInput is the self-service profile payload.
type ProfileUpdateInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	DOB         string `json:"dob"`
	Language    string `json:"language"`
	CountryID   *uint  `json:"country_id"`
}

// UpdateProfile applies a partial self-service update.
func (s *Service) UpdateProfile(user *models.User, in ProfileUpdateInput) (*models.User, error) {
	fields := map[string]any{}
	if in.FirstName != "" {
		fields["first_name"] = in.FirstName
	}
	if in.LastName != "" {
		fields["last_name"] = in.LastName
	}
	if in.PhoneNumber != "" && in.PhoneNumber != user.PhoneNumber {
		taken, err := s.users.PhoneExists(in.PhoneNumber)
		if err != nil {
			return nil, apperr.Server(err, "user.UpdateProfile")
		}
		if taken {
			return nil, apperr.User("An account with this phone number already exists")
		}
		fields["phone_number"] = in.PhoneNumber
	}
	if in.DOB != "" {
		fields["dob"] = in.DOB
	}
	if in.Language != "" {
		fields["language"] = in.Language
	}
	if in.CountryID != nil {
		fields["country_id"] = *in.CountryID
	}

	if len(fields) > 0 {
		if err := s.users.Updates(user.ID, fields); err != nil {
			return nil, apperr.Server(err, "user.UpdateProfile")
		}
	}
	return s.fetchFresh(user.UserID)
}

// SetProfilePhoto points the profile at an uploaded media record.
func (s *Service) SetProfilePhoto(user *models.User, uploadID uint) (*models.User, error) {
	if err := s.users.Updates(user.ID, map[string]any{"profile_photo_id": uploadID}); err != nil {
		return nil, apperr.Server(err, "user.SetProfilePhoto")
	}
	return s.fetchFresh(user.UserID)
}

func (s *Service) fetchFresh(publicID string) (*models.User, error) {
	fresh, err := s.users.FindByPublicID(publicID)
	if err != nil {
		return nil, apperr.Server(err, "user.fetchFresh")
	}
	return fresh, nil
}

// FetchByPublicID loads a user for admin viewing.
func (s *Service) FetchByPublicID(publicID string) (*models.User, error) {
	user, err := s.users.FindByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Server(err, "user.FetchByPublicID")
	}
	return user, nil
}

// List returns a filtered page of users.
func (s *Service) List(f repositories.UserFilter) ([]models.User, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = s.cfg.DefaultPageSize
	}
	users, total, err := s.users.List(f)
	if err != nil {
		return nil, 0, apperr.Server(err, "user.List")
	}
	return users, total, nil
}

// CreatableRoles lists the roles the actor may assign to others.
func (s *Service) CreatableRoles(actor *models.User) ([]models.Role, error) {
	roles, err := s.engine.CreatableRoles(actor)
	if err != nil {
		return nil, apperr.Server(err, "user.CreatableRoles")
	}
	return roles, nil
}

// CreateInput is the admin user-creation payload.
type CreateInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number"`
	RoleIDs     []uint `json:"roles" validate:"required,min=1"`
}

// Create provisions an account on behalf of a user. The password is generated
// and emailed; the actor must sit above every assigned role.
func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*models.User, error) {
	if len(in.RoleIDs) == 0 {
		return nil, apperr.User("At least one role is required")
	}
	roles, err := s.roles.FindByIDs(in.RoleIDs)
	if err != nil || len(roles) != len(in.RoleIDs) {
		return nil, apperr.User("One or more roles do not exist")
	}
	if err := s.engine.CheckRolesAssignable(actor, roles); err != nil {
		return nil, err
	}

	if taken, err := s.users.EmailExists(in.Email); err != nil {
		return nil, apperr.Server(err, "user.Create")
	} else if taken {
		return nil, apperr.User("An account with this email already exists")
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		return nil, apperr.Server(err, "user.Create")
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Server(err, "user.Create")
	}

	created := &models.User{
		UserID:        auth.GenerateUniqueID(10),
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         strings.ToLower(in.Email),
		PhoneNumber:   in.PhoneNumber,
		Password:      hashed,
		EmailVerified: true,
	}
	created.CreatedByID = &actor.ID

	if err := s.users.Create(created); err != nil {
		return nil, apperr.Server(err, "user.Create")
	}
	if err := s.users.ReplaceRoles(created, roles); err != nil {
		return nil, apperr.Server(err, "user.Create")
	}
	if err := s.engine.ReconcilePermissions(created); err != nil {
		return nil, apperr.Server(err, "user.Create")
	}

	subject, body := notification.UserInviteEmail(created.FirstName, created.Email, password)
	_ = s.jobs.Dispatch(ctx, queue.JobEmailSend, notification.EmailPayload{
		To: created.Email, Subject: subject, Body: body,
	})
	_ = s.jobs.Dispatch(ctx, queue.JobActivityReport, map[string]any{
		"user_id": actor.ID, "title": "create", "description": "Created user " + created.UserID,
	})

	return s.fetchFresh(created.UserID)
}

// UpdateInput is the admin user-update payload.
type UpdateInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	RoleIDs     []uint `json:"roles"`
}

// Update edits a managed user. The actor must sit above the user's current
// roles and above every incoming role; permissions are resynced afterwards.
func (s *Service) Update(actor *models.User, publicID string, in UpdateInput) (*models.User, error) {
	target, err := s.FetchByPublicID(publicID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.CheckRolesAssignable(actor, target.Roles); err != nil {
		return nil, err
	}

	roles := target.Roles
	if len(in.RoleIDs) > 0 {
		roles, err = s.roles.FindByIDs(in.RoleIDs)
		if err != nil || len(roles) != len(in.RoleIDs) {
			return nil, apperr.User("One or more roles do not exist")
		}
		if err := s.engine.CheckRolesAssignable(actor, roles); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{}
	if in.FirstName != "" {
		fields["first_name"] = in.FirstName
	}
	if in.LastName != "" {
		fields["last_name"] = in.LastName
	}
	if in.PhoneNumber != "" {
		fields["phone_number"] = in.PhoneNumber
	}
	fields["updated_by_id"] = actor.ID
	if err := s.users.Updates(target.ID, fields); err != nil {
		return nil, apperr.Server(err, "user.Update")
	}

	if err := s.users.ReplaceRoles(target, roles); err != nil {
		return nil, apperr.Server(err, "user.Update")
	}
	if err := s.engine.ReconcilePermissions(target); err != nil {
		return nil, apperr.Server(err, "user.Update")
	}

	return s.fetchFresh(publicID)
}

// SetActive activates or deactivates a managed user, recording who did it
// and when. Deactivation strips effective access immediately.
func (s *Service) SetActive(ctx context.Context, actor *models.User, publicID string, active bool) (*models.User, error) {
	target, err := s.FetchByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CheckRolesAssignable(actor, target.Roles); err != nil {
		return nil, err
	}

	fields := map[string]any{"is_active": active}
	verb := "activated"
	if active {
		fields["deactivated_at"] = nil
		fields["deactivated_by_id"] = nil
	} else {
		now := time.Now()
		fields["deactivated_at"] = now
		fields["deactivated_by_id"] = actor.ID
		verb = "deactivated"
	}
	if err := s.users.Updates(target.ID, fields); err != nil {
		return nil, apperr.Server(err, "user.SetActive")
	}

	_ = s.jobs.Dispatch(ctx, queue.JobActivityReport, map[string]any{
		"user_id": actor.ID, "title": verb, "description": verb + " user " + target.UserID,
	})
	return s.fetchFresh(publicID)
}
