// Package authz implements permission and role checks, the role hierarchy,
// and the user permission sync performed whenever role assignments change.
package authz

import (
	"encoding/json"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
	"kobapay/internal/repositories"
)

// Permission names.
const (
	PermViewRoles   = "view_roles"
	PermCreateRoles = "create_roles"
	PermUpdateRoles = "update_roles"
	PermDeleteRoles = "delete_roles"

	PermViewUsers               = "view_users"
	PermCreateUsers             = "create_users"
	PermUpdateUsers             = "update_users"
	PermActivateDeactivateUsers = "activate_deactivate_users"
)

// PermissionGroups drives seeding and grouped listing.
var PermissionGroups = map[string][]string{
	"Role Management": {PermViewRoles, PermCreateRoles, PermUpdateRoles, PermDeleteRoles},
	"User Management": {PermViewUsers, PermCreateUsers, PermUpdateUsers, PermActivateDeactivateUsers},
}

// RoleHierarchy maps each role to the roles it sits above. A holder of the
// key role may manage users carrying any of the listed roles.
var RoleHierarchy = map[string][]string{
	models.RoleSysadmin: {models.RoleAdmin, models.RoleSupport, models.RoleUser},
	models.RoleAdmin:    {models.RoleSupport, models.RoleUser},
	models.RoleSupport:  {models.RoleUser},
	models.RoleUser:     {},
}

// HasPermission reports whether the user may perform the named action.
// Superusers and sysadmins hold every permission; deactivated users hold
// none.
func HasPermission(user *models.User, perm string) bool {
	if user == nil || !user.IsActive || user.IsDeleted {
		return false
	}
	if user.IsSuperuser || user.HasRole(models.RoleSysadmin) {
		return true
	}
	for _, p := range user.Permissions {
		if p.Name == perm {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user carries at least one of the roles.
func HasAnyRole(user *models.User, roleNames []string) bool {
	if user == nil || !user.IsActive || user.IsDeleted {
		return false
	}
	for _, name := range roleNames {
		if user.HasRole(name) {
			return true
		}
	}
	return false
}

// Engine resolves hierarchy queries that need the role table.
type Engine struct {
	roles *repositories.RoleRepository
	users *repositories.UserRepository
}

func NewEngine(roles *repositories.RoleRepository, users *repositories.UserRepository) *Engine {
	return &Engine{roles: roles, users: users}
}

// CreatableRoleNames returns the role names the actor may assign: the static
// hierarchy closure of the actor's roles, widened by roles whose
// user_can_be_created_by list contains any of the actor's role ids.
func (e *Engine) CreatableRoleNames(actor *models.User) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	actorIDs := map[uint]bool{}
	for _, role := range actor.Roles {
		actorIDs[role.ID] = true
		for _, below := range RoleHierarchy[role.Name] {
			add(below)
		}
	}

	all, err := e.roles.List()
	if err != nil {
		return nil, err
	}
	for _, role := range all {
		if len(role.UserCanBeCreatedBy) == 0 {
			continue
		}
		var creatorIDs []uint
		if err := json.Unmarshal(role.UserCanBeCreatedBy, &creatorIDs); err != nil {
			continue
		}
		for _, id := range creatorIDs {
			if actorIDs[id] {
				add(role.Name)
				break
			}
		}
	}
	return out, nil
}

// CreatableRoles resolves CreatableRoleNames to role rows.
func (e *Engine) CreatableRoles(actor *models.User) ([]models.Role, error) {
	names, err := e.CreatableRoleNames(actor)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []models.Role{}, nil
	}
	return e.roles.FindByNames(names)
}

// CheckRolesAssignable verifies the actor sits above every given role,
// returning a permission error naming the first offender.
func (e *Engine) CheckRolesAssignable(actor *models.User, roles []models.Role) error {
	allowed, err := e.CreatableRoleNames(actor)
	if err != nil {
		return apperr.Server(err, "authz.CheckRolesAssignable")
	}
	allowedSet := map[string]bool{}
	for _, name := range allowed {
		allowedSet[name] = true
	}
	for _, role := range roles {
		if !allowedSet[role.Name] {
			return apperr.PermissionDenied("You do not have permission to assign the role " + role.Name)
		}
	}
	return nil
}

// ReconcilePermissions recomputes the user's flattened permission set from
// the currently attached roles. Called after every role attach or detach so a
// permission granted by two roles survives losing one of them.
func (e *Engine) ReconcilePermissions(user *models.User) error {
	fresh, err := e.users.FindByID(user.ID)
	if err != nil {
		return err
	}

	seen := map[uint]bool{}
	var perms []models.Permission
	for _, role := range fresh.Roles {
		for _, p := range role.Permissions {
			if !seen[p.ID] {
				seen[p.ID] = true
				perms = append(perms, p)
			}
		}
	}
	if err := e.users.ReplacePermissions(fresh, perms); err != nil {
		return err
	}
	user.Permissions = perms
	return nil
}
