package authz

import (
	"encoding/json"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
	"kobapay/internal/repositories"
)

type fixture struct {
	db     *gorm.DB
	users  *repositories.UserRepository
	roles  *repositories.RoleRepository
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	users := repositories.NewUserRepository(db)
	roles := repositories.NewRoleRepository(db)
	return &fixture{db: db, users: users, roles: roles, engine: NewEngine(roles, users)}
}

func (f *fixture) createRole(t *testing.T, name string, perms ...models.Permission) *models.Role {
	t.Helper()
	role := &models.Role{Name: name, Label: name, Permissions: perms}
	require.NoError(t, f.db.Create(role).Error)
	return role
}

func (f *fixture) createUser(t *testing.T, email string, roles ...models.Role) *models.User {
	t.Helper()
	user := &models.User{
		BaseModel: models.BaseModel{IsActive: true},
		UserID:    "u-" + email,
		Email:     email,
		Password:  "x",
		Roles:     roles,
	}
	require.NoError(t, f.users.Create(user))
	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	return fresh
}

func TestHasPermission(t *testing.T) {
	user := &models.User{
		BaseModel:   models.BaseModel{IsActive: true},
		Permissions: []models.Permission{{Name: PermViewUsers}},
	}
	assert.True(t, HasPermission(user, PermViewUsers))
	assert.False(t, HasPermission(user, PermCreateUsers))
	assert.False(t, HasPermission(nil, PermViewUsers))

	user.IsActive = false
	assert.False(t, HasPermission(user, PermViewUsers))
}

func TestHasPermissionSuperuserAndSysadmin(t *testing.T) {
	super := &models.User{BaseModel: models.BaseModel{IsActive: true}, IsSuperuser: true}
	assert.True(t, HasPermission(super, PermDeleteRoles))

	sysadmin := &models.User{
		BaseModel: models.BaseModel{IsActive: true},
		Roles:     []models.Role{{Name: models.RoleSysadmin}},
	}
	assert.True(t, HasPermission(sysadmin, PermDeleteRoles))
}

func TestHasAnyRole(t *testing.T) {
	user := &models.User{
		BaseModel: models.BaseModel{IsActive: true},
		Roles:     []models.Role{{Name: models.RoleSupport}},
	}
	assert.True(t, HasAnyRole(user, []string{models.RoleAdmin, models.RoleSupport}))
	assert.False(t, HasAnyRole(user, []string{models.RoleAdmin}))

	user.IsDeleted = true
	assert.False(t, HasAnyRole(user, []string{models.RoleSupport}))
}

func TestCreatableRoleNamesHierarchy(t *testing.T) {
	f := newFixture(t)
	admin := f.createRole(t, models.RoleAdmin)
	f.createRole(t, models.RoleSupport)
	f.createRole(t, models.RoleUser)

	actor := f.createUser(t, "admin@example.com", *admin)
	names, err := f.engine.CreatableRoleNames(actor)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.RoleSupport, models.RoleUser}, names)
}

func TestCreatableRoleNamesWidenedByRoleConfig(t *testing.T) {
	f := newFixture(t)
	support := f.createRole(t, models.RoleSupport)
	f.createRole(t, models.RoleUser)

	creators, err := json.Marshal([]uint{support.ID})
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Role{
		Name: "auditor", Label: "auditor",
		UserCanBeCreatedBy: datatypes.JSON(creators),
	}).Error)

	actor := f.createUser(t, "support@example.com", *support)
	names, err := f.engine.CreatableRoleNames(actor)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.RoleUser, "auditor"}, names)
}

func TestCheckRolesAssignable(t *testing.T) {
	f := newFixture(t)
	admin := f.createRole(t, models.RoleAdmin)
	support := f.createRole(t, models.RoleSupport)
	f.createRole(t, models.RoleUser)

	actor := f.createUser(t, "admin@example.com", *admin)

	require.NoError(t, f.engine.CheckRolesAssignable(actor, []models.Role{*support}))

	err := f.engine.CheckRolesAssignable(actor, []models.Role{*admin})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
	assert.Contains(t, err.Error(), models.RoleAdmin)
}

func TestReconcilePermissionsKeepsSharedGrant(t *testing.T) {
	f := newFixture(t)
	view := models.Permission{Name: PermViewUsers, Label: PermViewUsers}
	create := models.Permission{Name: PermCreateUsers, Label: PermCreateUsers}
	require.NoError(t, f.db.Create(&view).Error)
	require.NoError(t, f.db.Create(&create).Error)

	roleA := f.createRole(t, "role-a", view, create)
	roleB := f.createRole(t, "role-b", view)

	user := f.createUser(t, "ada@example.com", *roleA, *roleB)
	require.NoError(t, f.engine.ReconcilePermissions(user))
	assert.Len(t, user.Permissions, 2)

	// Dropping role-a keeps view_users because role-b still grants it.
	require.NoError(t, f.users.ReplaceRoles(user, []models.Role{*roleB}))
	require.NoError(t, f.engine.ReconcilePermissions(user))

	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Permissions, 1)
	assert.Equal(t, PermViewUsers, fresh.Permissions[0].Name)
}
