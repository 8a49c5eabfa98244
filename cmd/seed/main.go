// Command seed populates the reference tables: default permissions and
// roles, the role hierarchy, the bank directory, countries, media kinds, the
// verification provider and the first superadmin.
package main

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/repositories"
	"kobapay/internal/services/auth"
)

// Permission bundles per built-in role.
var defaultRolePermissions = map[string][]string{
	models.RoleSysadmin: flatten(authz.PermissionGroups),
	models.RoleAdmin: {
		authz.PermViewRoles,
		authz.PermViewUsers, authz.PermCreateUsers, authz.PermUpdateUsers,
		authz.PermActivateDeactivateUsers,
	},
	models.RoleSupport: {authz.PermViewUsers},
	models.RoleUser:    {},
}

var defaultBanks = []models.Bank{
	{Name: "Access Bank", Code: "044", Country: "Nigeria"},
	{Name: "First Bank of Nigeria", Code: "011", Country: "Nigeria"},
	{Name: "Guaranty Trust Bank", Code: "058", Country: "Nigeria"},
	{Name: "Kuda Bank", Code: "50211", Country: "Nigeria"},
	{Name: "United Bank For Africa", Code: "033", Country: "Nigeria"},
	{Name: "Zenith Bank", Code: "057", Country: "Nigeria"},
}

func flatten(groups map[string][]string) []string {
	var out []string
	for _, perms := range groups {
		out = append(out, perms...)
	}
	return out
}

func main() {
	config.LoadEnv()
	cfg := config.Load()

	db, err := repositories.Connect(cfg)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}

	seedPermissions(db)
	seedRoles(db)
	seedBanks(db)
	seedCountries(db)
	seedMedia(db)
	seedVerificationService(db)
	seedSuperadmin(db)

	logrus.Info("seeding complete")
}

// seedPermissions update-or-creates every known permission by label and
// prunes rows no longer in the catalog.
func seedPermissions(db *gorm.DB) {
	var kept []uint
	for group, perms := range authz.PermissionGroups {
		for _, name := range perms {
			perm := models.Permission{Name: name, Label: name, GroupName: group}
			var existing models.Permission
			err := db.Where("label = ?", perm.Label).First(&existing).Error
			if err == nil {
				existing.Name = perm.Name
				existing.GroupName = perm.GroupName
				db.Save(&existing)
				kept = append(kept, existing.ID)
				continue
			}
			db.Create(&perm)
			kept = append(kept, perm.ID)
		}
	}
	db.Where("id NOT IN ?", kept).Delete(&models.Permission{})
}

func seedRoles(db *gorm.DB) {
	for name, permNames := range defaultRolePermissions {
		role := models.Role{Name: name, Label: name, Description: name, IsDefault: true}
		var existing models.Role
		err := db.Where("label = ?", role.Label).First(&existing).Error
		if err == nil {
			role = existing
		} else if err := db.Create(&role).Error; err != nil {
			logrus.Fatalf("seed role %s: %v", name, err)
		}

		var perms []models.Permission
		db.Where("name IN ?", permNames).Find(&perms)
		if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			logrus.Fatalf("seed role permissions %s: %v", name, err)
		}
	}
}

func seedBanks(db *gorm.DB) {
	for _, bank := range defaultBanks {
		var existing models.Bank
		if err := db.Where("code = ?", bank.Code).First(&existing).Error; err == nil {
			continue
		}
		db.Create(&bank)
	}
}

func seedCountries(db *gorm.DB) {
	var existing models.Country
	if err := db.Where("code = ?", "NG").First(&existing).Error; err == nil {
		return
	}
	country := models.Country{Name: "Nigeria", Code: "NG"}
	db.Create(&country)
	db.Create(&models.State{Name: "Lagos", Code: "LA", CountryID: country.ID})
	db.Create(&models.State{Name: "Federal Capital Territory", Code: "FC", CountryID: country.ID})
}

func seedMedia(db *gorm.DB) {
	kinds := []models.Media{
		{Name: "profile_photo", Label: "Profile Photo", UploadTo: models.UploadToImages, MaxFileSizeInKB: 2048},
		{Name: "identity_document", Label: "Identity Document", UploadTo: models.UploadToDocuments, MaxFileSizeInKB: 5120},
	}
	fileTypes := map[string][]string{
		"profile_photo":     {"jpg", "jpeg", "png"},
		"identity_document": {"jpg", "jpeg", "png", "pdf"},
	}
	for _, kind := range kinds {
		var existing models.Media
		if err := db.Where("name = ?", kind.Name).First(&existing).Error; err == nil {
			continue
		}
		allowed, _ := json.Marshal(fileTypes[kind.Name])
		kind.AllowedFileTypes = allowed
		db.Create(&kind)
	}
}

func seedVerificationService(db *gorm.DB) {
	var existing models.KYCVerificationService
	if err := db.Where("name = ?", models.ProviderPrembly).First(&existing).Error; err == nil {
		return
	}
	db.Create(&models.KYCVerificationService{
		BaseModel: models.BaseModel{IsActive: true},
		Name:      models.ProviderPrembly,
	})
}

func seedSuperadmin(db *gorm.DB) {
	email := config.GetEnv("SUPERADMIN_EMAIL", "admin@kobapay.local")
	password := os.Getenv("SUPERADMIN_PASSWORD")
	if password == "" {
		logrus.Warn("SUPERADMIN_PASSWORD not set, skipping superadmin seed")
		return
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		logrus.Fatalf("seed superadmin: %v", err)
	}
	admin := models.User{
		UserID:        auth.GenerateUniqueID(10),
		FirstName:     "Super",
		LastName:      "Admin",
		Email:         email,
		EmailVerified: true,
		Password:      hashed,
		IsSuperuser:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		logrus.Fatalf("seed superadmin: %v", err)
	}

	var sysadmin models.Role
	if err := db.Where("name = ?", models.RoleSysadmin).First(&sysadmin).Error; err == nil {
		_ = db.Model(&admin).Association("Roles").Replace([]models.Role{sysadmin})
	}
}
