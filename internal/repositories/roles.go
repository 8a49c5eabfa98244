package repositories

import (
	"strings"

	"gorm.io/gorm"

	"kobapay/internal/models"
)

// RoleRepository wraps role and permission persistence.
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByID loads an available role with its permissions.
func (r *RoleRepository) FindByID(id uint) (*models.Role, error) {
	var role models.Role
	err := r.db.Scopes(models.Available).Preload("Permissions").First(&role, id).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByName loads an available role by name.
func (r *RoleRepository) FindByName(name string) (*models.Role, error) {
	var role models.Role
	err := r.db.Scopes(models.Available).Preload("Permissions").
		Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByIDs loads available roles matching the ids.
func (r *RoleRepository) FindByIDs(ids []uint) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.Scopes(models.Available).Preload("Permissions").
		Where("id IN ?", ids).Find(&roles).Error
	return roles, err
}

// FindByNames loads available roles matching the names.
func (r *RoleRepository) FindByNames(names []string) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.Scopes(models.Available).Preload("Permissions").
		Where("name IN ?", names).Find(&roles).Error
	return roles, err
}

// List returns every available role.
func (r *RoleRepository) List() ([]models.Role, error) {
	var roles []models.Role
	err := r.db.Scopes(models.Available).Preload("Permissions").
		Order("name").Find(&roles).Error
	return roles, err
}

// LabelExists reports whether an available role already holds the label,
// excluding one id (0 to check all).
func (r *RoleRepository) LabelExists(label string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.Model(&models.Role{}).Scopes(models.Available).
		Where("label = ?", strings.ToLower(label))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *RoleRepository) Create(role *models.Role) error {
	return r.db.Create(role).Error
}

func (r *RoleRepository) Save(role *models.Role) error {
	return r.db.Save(role).Error
}

// ReplacePermissions swaps a role's permission bundle.
func (r *RoleRepository) ReplacePermissions(role *models.Role, perms []models.Permission) error {
	return r.db.Model(role).Association("Permissions").Replace(perms)
}

// ListPermissions returns all permissions ordered for grouped display.
func (r *RoleRepository) ListPermissions() ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.Order("group_name, name").Find(&perms).Error
	return perms, err
}

// FindPermissionsByNames loads permissions by name.
func (r *RoleRepository) FindPermissionsByNames(names []string) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.Where("name IN ?", names).Find(&perms).Error
	return perms, err
}

// FindPermissionsByIDs loads permissions by id.
func (r *RoleRepository) FindPermissionsByIDs(ids []uint) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}
