package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
)

// OTP intents determine what a successful verification unlocks.
const (
	OTPIntentSignup        = "Signup OTP"
	OTPIntentResetPassword = "Reset Password"
)

// GenerateOTP returns a fresh numeric code of the given length and its bcrypt
// hash. Only the hash is ever stored.
func GenerateOTP(length int) (code, hashed string, err error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max = max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", "", err
	}
	code = fmt.Sprintf("%0*d", length, n)

	digest, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(digest), nil
}

// IssueOTP creates or replaces the user's pending code and returns the plain
// code for delivery. Re-issuing resets trials and the verified flag.
func (s *Service) IssueOTP(user *models.User) (string, error) {
	code, hashed, err := GenerateOTP(s.cfg.OTPLength)
	if err != nil {
		return "", apperr.Server(err, "auth.IssueOTP")
	}
	if err := s.users.UpsertOtp(user.ID, hashed, time.Now()); err != nil {
		return "", apperr.Server(err, "auth.IssueOTP")
	}
	return code, nil
}

// VerifyOTP checks an incoming code against the user's pending record.
// Exhausted trials and already-consumed codes fail hard; a mismatch or an
// expired window burns a trial and returns false.
func (s *Service) VerifyOTP(user *models.User, incoming string) (bool, error) {
	otp, err := s.users.GetOtp(user.ID)
	if err != nil {
		return false, apperr.Server(err, "auth.VerifyOTP")
	}
	if otp == nil {
		return false, apperr.User("Invalid or expired OTP")
	}

	if otp.Trials >= s.cfg.OTPMaxTrials {
		return false, apperr.User("Too many failed OTP verification attempts")
	}
	if otp.Verified {
		return false, apperr.User("Invalid or expired OTP")
	}

	matches := bcrypt.CompareHashAndPassword([]byte(otp.Code), []byte(incoming)) == nil
	expired := time.Since(otp.RequestedAt) > s.cfg.OTPExpiry

	if matches && !expired {
		now := time.Now()
		otp.Verified = true
		otp.VerifiedAt = &now
		if err := s.users.SaveOtp(otp); err != nil {
			return false, apperr.Server(err, "auth.VerifyOTP")
		}
		return true, nil
	}

	otp.Trials++
	if err := s.users.SaveOtp(otp); err != nil {
		return false, apperr.Server(err, "auth.VerifyOTP")
	}
	return false, nil
}
