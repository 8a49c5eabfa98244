package repositories

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"kobapay/internal/models"
)

// ErrNotFound is the layer's sentinel for a missing row. Services translate
// it into their own not-found errors.
var ErrNotFound = gorm.ErrRecordNotFound

// UserRepository wraps user, otp and KYC persistence.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *gorm.DB { return r.db }

func (r *UserRepository) withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Roles.Permissions").Preload("Permissions").
		Preload("IDType").Preload("Country").Preload("ProfilePhoto")
}

// FindByID loads an available user with roles and permissions.
func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.withRelations(r.db.Scopes(models.Available)).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByPublicID loads an available user by external user_id.
func (r *UserRepository) FindByPublicID(publicID string) (*models.User, error) {
	var user models.User
	err := r.withRelations(r.db.Scopes(models.Available)).
		Where("user_id = ?", publicID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads an available user by email, case-insensitively.
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.withRelations(r.db.Scopes(models.Available)).
		Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists reports whether any available user holds the email.
func (r *UserRepository) EmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Scopes(models.Available).
		Where("LOWER(email) = ?", strings.ToLower(email)).Count(&count).Error
	return count > 0, err
}

// PhoneExists reports whether any available user holds the phone number.
func (r *UserRepository) PhoneExists(phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	var count int64
	err := r.db.Model(&models.User{}).Scopes(models.Available).
		Where("phone_number = ?", phone).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) Save(user *models.User) error {
	return r.db.Save(user).Error
}

// Updates applies a partial update to the user row.
func (r *UserRepository) Updates(userID uint, fields map[string]any) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error
}

// ReplaceRoles swaps the user's role set.
func (r *UserRepository) ReplaceRoles(user *models.User, roles []models.Role) error {
	return r.db.Model(user).Association("Roles").Replace(roles)
}

// ReplacePermissions swaps the user's flattened permission set.
func (r *UserRepository) ReplacePermissions(user *models.User, perms []models.Permission) error {
	return r.db.Model(user).Association("Permissions").Replace(perms)
}

// UserFilter narrows List.
type UserFilter struct {
	Keyword   string
	RoleLabel string
	IsActive  *bool
	KYCStatus string
	Page      int
	PageSize  int
}

// List returns a filtered page of users plus the unpaged total.
func (r *UserRepository) List(f UserFilter) ([]models.User, int64, error) {
	q := r.withRelations(r.db.Model(&models.User{}).Scopes(models.Available))
	if f.Keyword != "" {
		kw := "%" + strings.ToLower(f.Keyword) + "%"
		q = q.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone_number LIKE ?",
			kw, kw, kw, "%"+f.Keyword+"%")
	}
	if f.RoleLabel != "" {
		q = q.Where("id IN (?)", r.db.Table("user_roles").
			Select("user_roles.user_id").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("roles.label = ?", f.RoleLabel))
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.KYCStatus != "" {
		q = q.Where("kyc_verification_status = ?", f.KYCStatus)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&users).Error
	return users, total, err
}

// GetOtp fetches the user's pending OTP record, nil when none exists.
func (r *UserRepository) GetOtp(userID uint) (*models.Otp, error) {
	var otp models.Otp
	err := r.db.Where("user_id = ?", userID).First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// UpsertOtp replaces the user's OTP record with a fresh one.
func (r *UserRepository) UpsertOtp(userID uint, hashed string, requestedAt time.Time) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&models.Otp{}).Error; err != nil {
		return err
	}
	return r.db.Create(&models.Otp{
		UserID:      userID,
		Code:        hashed,
		RequestedAt: requestedAt,
	}).Error
}

func (r *UserRepository) SaveOtp(otp *models.Otp) error {
	return r.db.Save(otp).Error
}

// ActiveVerificationService returns the first active provider, nil if none.
func (r *UserRepository) ActiveVerificationService() (*models.KYCVerificationService, error) {
	var svc models.KYCVerificationService
	err := r.db.Scopes(models.ActiveAvailable).First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *UserRepository) CreateVerificationData(data *models.KYCVerificationData) error {
	return r.db.Create(data).Error
}

// FindIDType resolves an identity document kind by label (nin, bvn).
func (r *UserRepository) FindIDType(label string) (*models.IDType, error) {
	var idType models.IDType
	err := r.db.Scopes(models.ActiveAvailable).Where("label = ?", label).First(&idType).Error
	if err != nil {
		return nil, err
	}
	return &idType, nil
}
