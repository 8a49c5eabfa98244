// Package kyc runs the identity verification state machine:
// not_started -> processing -> verified, failed or pending.
package kyc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
	"kobapay/internal/providers/prembly"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// Verifier is the provider lookup contract. prembly.Client satisfies it.
type Verifier interface {
	VerifyNationalID(ctx context.Context, idNumber string) (*prembly.Profile, map[string]any, error)
	VerifyBVN(ctx context.Context, idNumber string) (*prembly.Profile, map[string]any, error)
}

// Service drives KYC submission and background verification.
type Service struct {
	users     *repositories.UserRepository
	jobs      queue.Dispatcher
	providers map[string]Verifier
}

func NewService(users *repositories.UserRepository, jobs queue.Dispatcher, providers map[string]Verifier) *Service {
	return &Service{users: users, jobs: jobs, providers: providers}
}

// VerifyPayload is the queue payload for JobKYCVerify.
type VerifyPayload struct {
	UserID string `json:"user_id"`
}

// SubmitInput carries the identity details collected from the user.
type SubmitInput struct {
	IDTypeLabel string `json:"id_type" validate:"required,oneof=nin bvn"`
	IDNumber    string `json:"id_number" validate:"required"`
	DOB         string `json:"dob"`
}

// Submit records the user's identity details and queues verification. A user
// already verified or mid-verification cannot resubmit.
func (s *Service) Submit(ctx context.Context, user *models.User, in SubmitInput) (string, error) {
	switch user.KYCVerificationStatus {
	case models.KYCProcessing:
		return "", apperr.User("Your verification is already in progress")
	case models.KYCVerified:
		return "", apperr.User("Your identity has already been verified")
	}

	idType, err := s.users.FindIDType(strings.ToLower(in.IDTypeLabel))
	if err != nil {
		return "", apperr.User("Unsupported identity document type")
	}

	fields := map[string]any{
		"id_type_id": idType.ID,
		"id_number":  in.IDNumber,
	}
	if in.DOB != "" {
		fields["dob"] = in.DOB
	}
	if err := s.users.Updates(user.ID, fields); err != nil {
		return "", apperr.Server(err, "kyc.Submit")
	}

	if err := s.jobs.Dispatch(ctx, queue.JobKYCVerify, VerifyPayload{UserID: user.UserID}); err != nil {
		return "", apperr.Server(err, "kyc.Submit")
	}
	return "Your verification has been queued", nil
}

func (s *Service) activeVerifier() (Verifier, error) {
	svc, err := s.users.ActiveVerificationService()
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, nil
	}
	return s.providers[svc.Name], nil
}

// namesMatch compares two full names case-insensitively, requiring at least
// two tokens in common. This is a business policy, not an identity guarantee.
func namesMatch(name1, name2 string) bool {
	if name1 == "" || name2 == "" {
		return false
	}
	set := map[string]bool{}
	for _, part := range strings.Fields(strings.ToLower(name1)) {
		set[part] = true
	}
	common := 0
	seen := map[string]bool{}
	for _, part := range strings.Fields(strings.ToLower(name2)) {
		if set[part] && !seen[part] {
			seen[part] = true
			common++
		}
	}
	return common >= 2
}

// providerComment pulls the human-readable detail out of a raw provider
// response.
func providerComment(raw map[string]any, fallback string) string {
	if raw != nil {
		if detail, ok := raw["detail"].(string); ok && detail != "" {
			return detail
		}
		if msg, ok := raw["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fallback
}

func (s *Service) setStatus(user *models.User, status, comment string, raw map[string]any) error {
	fields := map[string]any{
		"kyc_verification_status":  status,
		"kyc_verification_comment": comment,
	}
	if raw != nil {
		if data, err := json.Marshal(raw); err == nil {
			fields["kyc_response_data"] = data
		}
	}
	return s.users.Updates(user.ID, fields)
}

// BackgroundVerify is the JobKYCVerify handler body. A user deleted between
// dispatch and execution is a no-op.
func (s *Service) BackgroundVerify(ctx context.Context, publicID string) error {
	user, err := s.users.FindByPublicID(publicID)
	if err != nil {
		logrus.WithField("user_id", publicID).Warn("kyc verification skipped: user not found")
		return nil
	}

	if err := s.users.Updates(user.ID, map[string]any{"kyc_verification_status": models.KYCProcessing}); err != nil {
		return err
	}

	verifier, err := s.activeVerifier()
	if err != nil {
		return err
	}
	if verifier == nil {
		return s.setStatus(user, models.KYCPending,
			"We are currently experiencing verification service issues. Please check back later.", nil)
	}

	label := ""
	if user.IDType != nil {
		label = user.IDType.Label
	}

	var profile *prembly.Profile
	var raw map[string]any
	switch label {
	case models.IDTypeNIN:
		profile, raw, err = verifier.VerifyNationalID(ctx, user.IDNumber)
	case models.IDTypeBVN:
		profile, raw, err = verifier.VerifyBVN(ctx, user.IDNumber)
	default:
		return s.setStatus(user, models.KYCFailed, "Unsupported identity document type", nil)
	}
	if err != nil {
		// Provider unreachable. Leave the user in processing for a retry.
		return err
	}

	if profile == nil {
		comment := providerComment(raw, "Identity could not be verified by the provider")
		return s.setStatus(user, models.KYCFailed, comment, raw)
	}

	data := &models.KYCVerificationData{
		UserID:           user.ID,
		FirstName:        profile.FirstName,
		LastName:         profile.LastName,
		DOB:              profile.DOB,
		PhoneNumber:      profile.PhoneNumber,
		Email:            profile.Email,
		Gender:           profile.Gender,
		Address:          profile.Address,
		StateOfOrigin:    profile.StateOfOrigin,
		StateOfResidence: profile.StateOfResidence,
		CityOfResidence:  profile.CityOfResidence,
		ImageString:      profile.ImageString,
	}

	verifiedName := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if namesMatch(user.FullName(), verifiedName) {
		data.Status = true
		if err := s.users.CreateVerificationData(data); err != nil {
			return err
		}
		return s.setStatus(user, models.KYCVerified,
			providerComment(raw, "Verification successful"), raw)
	}

	if err := s.users.CreateVerificationData(data); err != nil {
		return err
	}
	return s.setStatus(user, models.KYCFailed, "The names on your identity document do not match your profile", raw)
}

// RegisterHandlers binds the verification job.
func (s *Service) RegisterHandlers(registry *queue.Registry) {
	registry.Register(queue.JobKYCVerify, func(ctx context.Context, rawPayload json.RawMessage) error {
		var payload VerifyPayload
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return err
		}
		return s.BackgroundVerify(ctx, payload.UserID)
	})
}
