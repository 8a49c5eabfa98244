// Package auth implements registration, login, the OTP lifecycle and
// password management.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"kobapay/internal/apperr"
	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/notification"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// Service wires the auth flows together.
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

// GenerateUniqueID builds a numeric public identifier of the given length.
func GenerateUniqueID(length int) string {
	now := time.Now().UTC().Format("20060102150405")
	suffix := make([]byte, 0, 7)
	for i := 0; i < 7; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		suffix = append(suffix, byte('0')+byte(n.Int64()))
	}
	id := now[3:] + string(suffix)
	if length > 0 && length < len(id) {
		id = id[len(id)-length:]
	}
	return id
}

// GeneratePassword returns a random password for admin-created accounts.
func GeneratePassword() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword hashes a plain password for storage.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
}

// Register creates an account, attaches the default role and emails a signup
// OTP. The caller is told to check their email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	exists, err := s.users.PhoneExists(in.PhoneNumber)
	if err != nil {
		return "", apperr.Server(err, "auth.Register")
	}
	if exists {
		return "", apperr.User("An account with this phone number already exists")
	}
	if taken, err := s.users.EmailExists(in.Email); err != nil {
		return "", apperr.Server(err, "auth.Register")
	} else if taken {
		return "", apperr.User("An account with this email already exists")
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return "", apperr.Server(err, "auth.Register")
	}

	user := &models.User{
		UserID:      GenerateUniqueID(10),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       strings.ToLower(in.Email),
		PhoneNumber: in.PhoneNumber,
		Password:    hashed,
	}
	if err := s.users.Create(user); err != nil {
		return "", apperr.Server(err, "auth.Register")
	}

	if role, err := s.roles.FindByName(models.RoleUser); err == nil {
		if err := s.users.ReplaceRoles(user, []models.Role{*role}); err != nil {
			return "", apperr.Server(err, "auth.Register")
		}
		if err := s.engine.ReconcilePermissions(user); err != nil {
			return "", apperr.Server(err, "auth.Register")
		}
	}

	code, err := s.IssueOTP(user)
	if err != nil {
		return "", err
	}
	subject, body := notification.SignupOTPEmail(user.FirstName, code)
	_ = s.jobs.Dispatch(ctx, queue.JobEmailSend, notification.EmailPayload{
		To: user.Email, Subject: subject, Body: body,
	})

	return "An OTP has been sent to your email", nil
}

// SendOTP re-issues a code for the given intent. Unknown emails get the same
// response so the endpoint cannot be used to probe accounts.
func (s *Service) SendOTP(ctx context.Context, email, intent string) (string, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "An OTP has been sent to your email", nil
		}
		return "", apperr.Server(err, "auth.SendOTP")
	}

	switch intent {
	case OTPIntentSignup:
		if user.EmailVerified {
			return "An OTP has been sent to your email", nil
		}
		code, err := s.IssueOTP(user)
		if err != nil {
			return "", err
		}
		subject, body := notification.SignupOTPEmail(user.FirstName, code)
		_ = s.jobs.Dispatch(ctx, queue.JobEmailSend, notification.EmailPayload{
			To: user.Email, Subject: subject, Body: body,
		})
	case OTPIntentResetPassword:
		code, err := s.IssueOTP(user)
		if err != nil {
			return "", err
		}
		subject, body := notification.PasswordResetOTPEmail(user.FirstName, code)
		_ = s.jobs.Dispatch(ctx, queue.JobEmailSend, notification.EmailPayload{
			To: user.Email, Subject: subject, Body: body,
		})
	}

	return "An OTP has been sent to your email", nil
}

// UserData is the login/verification response payload.
func (s *Service) UserData(user *models.User) (map[string]any, error) {
	tokens, err := s.IssueTokens(user)
	if err != nil {
		return nil, err
	}

	roleNames := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roleNames = append(roleNames, role.Name)
	}

	perms := user.Permissions
	if user.IsSuperuser || user.HasRole(models.RoleSysadmin) {
		all, err := s.roles.ListPermissions()
		if err != nil {
			return nil, apperr.Server(err, "auth.UserData")
		}
		perms = all
	}
	permNames := make([]map[string]string, 0, len(perms))
	for _, p := range perms {
		permNames = append(permNames, map[string]string{"name": p.Name, "label": p.Label})
	}

	var profilePhoto any
	if user.ProfilePhoto != nil {
		profilePhoto = user.ProfilePhoto.URL
	}

	return map[string]any{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    tokens.TokenType,
		"user": map[string]any{
			"id":                user.UserID,
			"email":             user.Email,
			"phone_number":      user.PhoneNumber,
			"first_name":        user.FirstName,
			"last_name":         user.LastName,
			"profile_photo":     profilePhoto,
			"roles":             roleNames,
			"permissions":       permNames,
			"is_email_verified": user.EmailVerified,
		},
	}, nil
}

func (s *Service) loginCountKey(email string) string {
	return s.cache.Key("login_count", strings.ToLower(email))
}

// Login authenticates credentials behind the failed-attempt guard.
func (s *Service) Login(ctx context.Context, email, password string) (map[string]any, error) {
	email = strings.ToLower(email)

	user, err := s.users.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Server(err, "auth.Login")
	}
	if user != nil && !user.IsActive {
		return nil, apperr.AccessDenied("Your account is inactive. Please contact support.")
	}

	countKey := s.loginCountKey(email)
	count, err := s.cache.Counter(ctx, countKey)
	if err == nil && count >= int64(s.cfg.LoginMaxFails) {
		return nil, apperr.AccessDenied("Too many failed attempts. Your account has been temporarily blocked.")
	}

	valid := user != nil &&
		bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
	if !valid {
		if _, err := s.cache.Increment(ctx, countKey, s.cfg.LoginFailTTL); err != nil {
			return nil, apperr.Server(err, "auth.Login")
		}
		return nil, apperr.User("Invalid email or password")
	}

	now := time.Now()
	if err := s.users.Updates(user.ID, map[string]any{"last_login": now}); err != nil {
		return nil, apperr.Server(err, "auth.Login")
	}
	user.LastLogin = &now

	return s.UserData(user)
}

// VerifyRegisterOTP confirms the signup code, marks the email verified and
// returns a token bundle. Re-verifying an already verified email fails.
func (s *Service) VerifyRegisterOTP(email, code string) (map[string]any, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, apperr.User("We could not recognize this account")
	}

	ok, err := s.VerifyOTP(user, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.User("Invalid or expired OTP")
	}

	if user.EmailVerified {
		return nil, apperr.User("This email has already been verified")
	}
	if err := s.users.Updates(user.ID, map[string]any{"email_verified": true}); err != nil {
		return nil, apperr.Server(err, "auth.VerifyRegisterOTP")
	}
	user.EmailVerified = true

	return s.UserData(user)
}

// VerifyPasswordOTP confirms a reset code and unlocks ResetPassword.
func (s *Service) VerifyPasswordOTP(email, code string) (string, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return "", apperr.User("We could not recognize this account")
	}

	ok, err := s.VerifyOTP(user, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.User("Invalid or expired OTP")
	}

	if err := s.users.Updates(user.ID, map[string]any{"can_reset_password": true}); err != nil {
		return "", apperr.Server(err, "auth.VerifyPasswordOTP")
	}
	return "OTP verified", nil
}

// ForgotPassword issues a reset code. The response never reveals whether the
// account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	return s.SendOTP(ctx, email, OTPIntentResetPassword)
}

// ResetPassword sets a new password after a verified reset OTP.
func (s *Service) ResetPassword(email, password string) (string, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return "", apperr.User("We could not recognize this account")
	}
	if !user.CanResetPassword {
		return "", apperr.AccessDenied("")
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return "", apperr.Server(err, "auth.ResetPassword")
	}
	err = s.users.Updates(user.ID, map[string]any{
		"password":           hashed,
		"can_reset_password": false,
	})
	if err != nil {
		return "", apperr.Server(err, "auth.ResetPassword")
	}
	return "Password changed successfully", nil
}

// ChangePassword rotates the password for a signed-in user after checking the
// old one.
func (s *Service) ChangePassword(user *models.User, oldPassword, newPassword string) (string, error) {
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return "", apperr.User("Incorrect password")
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return "", apperr.Server(err, "auth.ChangePassword")
	}
	if err := s.users.Updates(user.ID, map[string]any{"password": hashed}); err != nil {
		return "", apperr.Server(err, "auth.ChangePassword")
	}
	return "Password changed successfully", nil
}

// RefreshToken mints a fresh access token from a refresh token.
func (s *Service) RefreshToken(refreshToken string) (map[string]any, error) {
	if refreshToken == "" {
		return nil, apperr.AccessDenied("")
	}
	claims, err := s.ParseToken(refreshToken)
	if err != nil {
		return nil, apperr.NotAuthorized("Token is invalid or expired")
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, apperr.NotAuthorized("Token is invalid or expired")
	}

	user, err := s.users.FindByID(claims.UserID)
	if err != nil {
		return nil, apperr.NotAuthorized("Token is invalid or expired")
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, apperr.NotAuthorized("Token is invalid or expired")
	}

	access, err := s.signToken(user, models.TokenTypeAccess, s.cfg.AccessTokenExpiry)
	if err != nil {
		return nil, apperr.Server(err, "auth.RefreshToken")
	}
	return map[string]any{"access_token": access}, nil
}

// Logout bumps the user's token version, invalidating every outstanding
// token.
func (s *Service) Logout(user *models.User) (string, error) {
	err := s.users.Updates(user.ID, map[string]any{"token_version": gorm.Expr("token_version + 1")})
	if err != nil {
		return "", apperr.Server(err, "auth.Logout")
	}
	return "Logged out successfully", nil
}
