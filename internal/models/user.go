package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// KYC verification statuses.
const (
	KYCNotStarted = "Not Started"
	KYCProcessing = "Processing"
	KYCPending    = "Pending"
	KYCVerified   = "Verified"
	KYCFailed     = "Failed"
)

// Identity document labels.
const (
	IDTypeBVN = "bvn"
	IDTypeNIN = "nin"
)

// User is the platform account. Roles grant permission bundles; the flattened
// permission set is kept on the user and resynced whenever roles change.
type User struct {
	BaseModel
	UserID        string `gorm:"size:50;uniqueIndex;not null" json:"user_id"`
	FirstName     string `gorm:"size:150" json:"first_name"`
	LastName      string `gorm:"size:150" json:"last_name"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`
	PhoneNumber   string `gorm:"size:50;index" json:"phone_number"`
	Password      string `gorm:"not null" json:"-"`
	IsSuperuser   bool   `gorm:"default:false" json:"-"`

	CanResetPassword bool `gorm:"default:false" json:"-"`
	// TokenVersion invalidates previously issued tokens when bumped.
	TokenVersion int `gorm:"default:0" json:"-"`

	Balance decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"balance"`

	ProfilePhotoID *uint          `json:"-"`
	ProfilePhoto   *UploadedMedia `gorm:"foreignKey:ProfilePhotoID" json:"profile_photo,omitempty"`

	Roles       []Role       `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Permissions []Permission `gorm:"many2many:user_permissions" json:"-"`

	IDTypeID *uint   `json:"-"`
	IDType   *IDType `gorm:"foreignKey:IDTypeID" json:"id_type,omitempty"`
	IDNumber string  `gorm:"size:50;index" json:"-"`
	DOB      string  `gorm:"size:50" json:"dob"`

	KYCVerificationStatus  string         `gorm:"size:30;default:'Not Started'" json:"kyc_verification_status"`
	KYCResponseData        datatypes.JSON `json:"-"`
	KYCVerificationComment string         `json:"-"`

	Language  string   `gorm:"size:10;default:'en'" json:"language"`
	CountryID *uint    `json:"-"`
	Country   *Country `gorm:"foreignKey:CountryID" json:"country,omitempty"`

	DeactivatedAt   *time.Time `json:"-"`
	DeactivatedByID *uint      `json:"-"`
	LastLogin       *time.Time `json:"last_login"`
}

// FullName joins the user's names for display and matching.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether a role with the given name is attached.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Otp is the single pending one-time code per user. Only the bcrypt hash of
// the code is stored.
type Otp struct {
	UserID      uint   `gorm:"primarykey" json:"-"`
	Code        string `gorm:"size:255;not null" json:"-"`
	RequestedAt time.Time
	Verified    bool `gorm:"default:false"`
	VerifiedAt  *time.Time
	Trials      int `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IDType is a verifiable identity document kind (NIN, BVN) scoped to a country.
type IDType struct {
	BaseModel
	Name      string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Label     string `gorm:"size:255;uniqueIndex;not null" json:"label"`
	CountryID uint   `json:"-"`
}

// KYCVerificationService is a configured identity provider. Only active rows
// are eligible for dispatch.
type KYCVerificationService struct {
	BaseModel
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`
}

// ProviderPrembly is the only provider currently shipped.
const ProviderPrembly = "Prembly"

// KYCVerificationData is the normalized identity profile returned by a
// provider lookup, kept for audit alongside the raw response on the user.
type KYCVerificationData struct {
	BaseModel
	UserID           uint   `gorm:"index;not null"`
	FirstName        string `gorm:"size:255"`
	LastName         string `gorm:"size:255"`
	DOB              string `gorm:"size:50"`
	PhoneNumber      string `gorm:"size:255"`
	Email            string
	Gender           string `gorm:"size:10"`
	Address          string
	StateOfOrigin    string `gorm:"size:100"`
	StateOfResidence string `gorm:"size:100"`
	CityOfResidence  string `gorm:"size:100"`
	ImageString      string
	Status           bool `gorm:"default:false"`
}
