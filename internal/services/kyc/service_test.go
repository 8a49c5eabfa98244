package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
	"kobapay/internal/providers/prembly"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// fakeVerifier serves canned provider responses.
type fakeVerifier struct {
	profile *prembly.Profile
	raw     map[string]any
	err     error
	calls   int
}

func (f *fakeVerifier) VerifyNationalID(context.Context, string) (*prembly.Profile, map[string]any, error) {
	f.calls++
	return f.profile, f.raw, f.err
}

func (f *fakeVerifier) VerifyBVN(context.Context, string) (*prembly.Profile, map[string]any, error) {
	f.calls++
	return f.profile, f.raw, f.err
}

type fixture struct {
	db       *gorm.DB
	users    *repositories.UserRepository
	svc      *Service
	verifier *fakeVerifier
	ninType  models.IDType
}

func newFixture(t *testing.T, withProvider bool) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	users := repositories.NewUserRepository(db)
	verifier := &fakeVerifier{}

	ninType := models.IDType{Name: "National Identification Number", Label: models.IDTypeNIN}
	require.NoError(t, db.Create(&ninType).Error)
	require.NoError(t, db.Create(&models.IDType{Name: "Bank Verification Number", Label: models.IDTypeBVN}).Error)

	if withProvider {
		require.NoError(t, db.Create(&models.KYCVerificationService{
			BaseModel: models.BaseModel{IsActive: true},
			Name:      models.ProviderPrembly,
		}).Error)
	}

	jobs := queue.NewInlineQueue(queue.NewRegistry())
	svc := NewService(users, jobs, map[string]Verifier{models.ProviderPrembly: verifier})
	return &fixture{db: db, users: users, svc: svc, verifier: verifier, ninType: ninType}
}

func (f *fixture) createUser(t *testing.T, firstName, lastName string) *models.User {
	t.Helper()
	user := &models.User{
		BaseModel: models.BaseModel{IsActive: true},
		UserID:    "100" + firstName,
		FirstName: firstName,
		LastName:  lastName,
		Email:     firstName + "@example.com",
		Password:  "x",
		IDTypeID:  &f.ninType.ID,
		IDNumber:  "12345678901",
	}
	require.NoError(t, f.users.Create(user))
	return user
}

func TestSubmitQueuesVerification(t *testing.T) {
	f := newFixture(t, true)
	registry := queue.NewRegistry()
	var dispatched []string
	registry.Register(queue.JobKYCVerify, func(_ context.Context, payload json.RawMessage) error {
		dispatched = append(dispatched, string(payload))
		return nil
	})
	f.svc.jobs = queue.NewInlineQueue(registry)

	user := f.createUser(t, "John", "Okafor")
	msg, err := f.svc.Submit(context.Background(), user, SubmitInput{
		IDTypeLabel: "nin",
		IDNumber:    "12345678901",
		DOB:         "1990-01-01",
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "queued")
	require.Len(t, dispatched, 1)
	assert.Contains(t, dispatched[0], user.UserID)
}

func TestSubmitRejectedWhileProcessing(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John", "Okafor")
	user.KYCVerificationStatus = models.KYCProcessing

	_, err := f.svc.Submit(context.Background(), user, SubmitInput{IDTypeLabel: "nin", IDNumber: "1"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUser))
	assert.Contains(t, err.Error(), "in progress")
}

func TestSubmitRejectedWhenVerified(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John", "Okafor")
	user.KYCVerificationStatus = models.KYCVerified

	_, err := f.svc.Submit(context.Background(), user, SubmitInput{IDTypeLabel: "nin", IDNumber: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already been verified")
}

func TestBackgroundVerifyNameMatch(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John Paul", "Okafor")
	f.verifier.profile = &prembly.Profile{FirstName: "Paul", LastName: "Okafor", DOB: "1990-01-01"}
	f.verifier.raw = map[string]any{"status": true, "detail": "Verification Successful"}

	require.NoError(t, f.svc.BackgroundVerify(context.Background(), user.UserID))

	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCVerified, fresh.KYCVerificationStatus)
	assert.Equal(t, "Verification Successful", fresh.KYCVerificationComment)

	var data models.KYCVerificationData
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&data).Error)
	assert.True(t, data.Status)
	assert.Equal(t, "Paul", data.FirstName)
}

func TestBackgroundVerifyNameMismatch(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John", "Okafor")
	f.verifier.profile = &prembly.Profile{FirstName: "Paul", LastName: "Smith"}

	require.NoError(t, f.svc.BackgroundVerify(context.Background(), user.UserID))

	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCFailed, fresh.KYCVerificationStatus)
	assert.Contains(t, fresh.KYCVerificationComment, "do not match")
}

func TestBackgroundVerifySingleCommonTokenFails(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John", "Okafor")
	f.verifier.profile = &prembly.Profile{FirstName: "John", LastName: "Adeyemi"}

	require.NoError(t, f.svc.BackgroundVerify(context.Background(), user.UserID))

	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCFailed, fresh.KYCVerificationStatus)
}

func TestBackgroundVerifyProviderLookupFailed(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John", "Okafor")
	f.verifier.profile = nil
	f.verifier.raw = map[string]any{"detail": "Record not found"}

	require.NoError(t, f.svc.BackgroundVerify(context.Background(), user.UserID))

	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCFailed, fresh.KYCVerificationStatus)
	assert.Equal(t, "Record not found", fresh.KYCVerificationComment)
}

func TestBackgroundVerifyNoActiveProvider(t *testing.T) {
	f := newFixture(t, false)
	user := f.createUser(t, "John", "Okafor")

	require.NoError(t, f.svc.BackgroundVerify(context.Background(), user.UserID))

	fresh, err := f.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCPending, fresh.KYCVerificationStatus)
	assert.Contains(t, fresh.KYCVerificationComment, "check back later")
	assert.Zero(t, f.verifier.calls)
}

func TestBackgroundVerifyProviderUnreachableLeavesProcessing(t *testing.T) {
	f := newFixture(t, true)
	user := f.createUser(t, "John", "Okafor")
	f.verifier.err = errors.New("connection refused")

	err := f.svc.BackgroundVerify(context.Background(), user.UserID)
	require.Error(t, err)

	fresh, ferr := f.users.FindByID(user.ID)
	require.NoError(t, ferr)
	assert.Equal(t, models.KYCProcessing, fresh.KYCVerificationStatus)
}

func TestBackgroundVerifyMissingUserIsNoop(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.svc.BackgroundVerify(context.Background(), "does-not-exist"))
	assert.Zero(t, f.verifier.calls)
}

func TestNamesMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"John Paul Okafor", "Paul Okafor", true},
		{"john okafor", "OKAFOR JOHN", true},
		{"John Okafor", "Paul Smith", false},
		{"John Okafor", "John Adeyemi", false},
		{"John John", "John Smith", false},
		{"", "John Okafor", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, namesMatch(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}
