package role

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kobapay/internal/apperr"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

type fixture struct {
	db    *gorm.DB
	roles *repositories.RoleRepository
	svc   *Service
	actor *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	roles := repositories.NewRoleRepository(db)
	cache := repositories.NewCache(repositories.NewMemoryStore(), "test", time.Minute)
	jobs := queue.NewInlineQueue(queue.NewRegistry())
	svc := NewService(config.Config{DefaultCacheTTL: time.Minute}, roles, cache, jobs)

	actor := &models.User{
		BaseModel: models.BaseModel{IsActive: true},
		UserID:    "1000000001",
		Email:     "admin@example.com",
		Password:  "x",
	}
	require.NoError(t, db.Create(actor).Error)

	return &fixture{db: db, roles: roles, svc: svc, actor: actor}
}

func (f *fixture) createPermission(t *testing.T, name string) models.Permission {
	t.Helper()
	perm := models.Permission{Name: name, Label: name, GroupName: "User Management"}
	require.NoError(t, f.db.Create(&perm).Error)
	return perm
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "account-manager", slugify("Account Manager"))
	assert.Equal(t, "support-l2", slugify("Support_L2"))
	assert.Equal(t, "ops", slugify("Ops!"))
}

func TestCreateRole(t *testing.T) {
	f := newFixture(t)
	perm := f.createPermission(t, "view_users")

	role, err := f.svc.Create(context.Background(), f.actor, Input{
		Name:          "Account Manager",
		Description:   "Handles customer accounts",
		PermissionIDs: []uint{perm.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "account-manager", role.Label)
	assert.False(t, role.IsDefault)
	require.Len(t, role.Permissions, 1)
	assert.Equal(t, "view_users", role.Permissions[0].Name)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.actor, Input{Name: "Account Manager"})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.actor, Input{Name: "account manager"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUser))
	assert.Contains(t, err.Error(), "already exists")
}

func TestUpdateRoleReplacesPermissions(t *testing.T) {
	f := newFixture(t)
	view := f.createPermission(t, "view_users")
	create := f.createPermission(t, "create_users")

	role, err := f.svc.Create(context.Background(), f.actor, Input{
		Name:          "Account Manager",
		PermissionIDs: []uint{view.ID},
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), f.actor, role.ID, Input{
		Name:          "Account Manager",
		PermissionIDs: []uint{create.ID},
	})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "create_users", updated.Permissions[0].Name)
}

func TestUpdateRoleDuplicateNameExcludesSelf(t *testing.T) {
	f := newFixture(t)

	role, err := f.svc.Create(context.Background(), f.actor, Input{Name: "Account Manager"})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.actor, Input{Name: "Support Lead"})
	require.NoError(t, err)

	// Renaming to its own label is fine.
	_, err = f.svc.Update(context.Background(), f.actor, role.ID, Input{Name: "Account Manager"})
	require.NoError(t, err)

	// Renaming onto another role is not.
	_, err = f.svc.Update(context.Background(), f.actor, role.ID, Input{Name: "Support Lead"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDeleteRole(t *testing.T) {
	f := newFixture(t)

	role, err := f.svc.Create(context.Background(), f.actor, Input{Name: "Temporary"})
	require.NoError(t, err)

	_, err = f.svc.Delete(context.Background(), f.actor, role.ID)
	require.NoError(t, err)

	_, err = f.roles.FindByID(role.ID)
	assert.Error(t, err)
}

func TestDeleteBuiltInRoleRefused(t *testing.T) {
	f := newFixture(t)

	builtin := models.Role{Name: models.RoleAdmin, Label: models.RoleAdmin, IsDefault: true}
	require.NoError(t, f.db.Create(&builtin).Error)

	_, err := f.svc.Delete(context.Background(), f.actor, builtin.ID)
	require.Error(t, err)
	assert.Equal(t, "Built-in roles cannot be deleted", err.Error())
}

func TestFetchCachesRole(t *testing.T) {
	f := newFixture(t)

	role, err := f.svc.Create(context.Background(), f.actor, Input{Name: "Account Manager"})
	require.NoError(t, err)

	got, err := f.svc.Fetch(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Label, got.Label)

	// A direct rename is invisible until the cache entry is invalidated.
	require.NoError(t, f.db.Model(&models.Role{}).Where("id = ?", role.ID).
		Update("name", "Renamed").Error)
	got, err = f.svc.Fetch(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Account Manager", got.Name)

	_, err = f.svc.Update(context.Background(), f.actor, role.ID, Input{Name: "Renamed Again"})
	require.NoError(t, err)
	got, err = f.svc.Fetch(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Again", got.Name)
}

func TestFetchMissingRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Fetch(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestGroupedPermissions(t *testing.T) {
	f := newFixture(t)
	f.createPermission(t, "view_users")
	f.createPermission(t, "create_users")
	perm := models.Permission{Name: "view_roles", Label: "view_roles", GroupName: "Role Management"}
	require.NoError(t, f.db.Create(&perm).Error)

	grouped, err := f.svc.GroupedPermissions()
	require.NoError(t, err)
	assert.Len(t, grouped["User Management"], 2)
	assert.Len(t, grouped["Role Management"], 1)
}
