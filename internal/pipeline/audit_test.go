package pipeline

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

func TestRedact(t *testing.T) {
	body := map[string]any{
		"email":    "ada@example.com",
		"password": "s3cretpass",
		"otp":      "1234",
		"OTP":      "5678",
		"amount":   50,
	}
	redacted := Redact(body)
	assert.Equal(t, "ada@example.com", redacted["email"])
	assert.Equal(t, "****", redacted["password"])
	assert.Equal(t, "****", redacted["otp"])
	assert.Equal(t, "****", redacted["OTP"])
	assert.Equal(t, 50, redacted["amount"])

	// The original body is untouched.
	assert.Equal(t, "s3cretpass", body["password"])
	assert.Nil(t, Redact(nil))
}

func TestAuditTrailWrittenAroundRequest(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	registry := queue.NewRegistry()
	RegisterAuditHandlers(registry, repositories.NewAuditRepository(db))
	jobs := queue.NewInlineQueue(registry)

	pipe := New(config.Config{RequestLoggingEnabled: true}, nil, jobs)
	app := newApp(nil)
	app.Post("/login", pipe.Handle(Options{}, func(c *Ctx) (any, error) {
		return "Welcome back", nil
	}))

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"ada@example.com","password":"s3cretpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer topsecret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var log models.APIRequestLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, "/login", log.Path)
	assert.Len(t, log.RefID, 18)
	assert.Equal(t, "Success", log.Status)
	assert.Contains(t, string(log.RequestData), "ada@example.com")
	assert.NotContains(t, string(log.RequestData), "s3cretpass")
	assert.NotContains(t, string(log.Headers), "Authorization")
}

func TestAuditSkippedWhenDisabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	registry := queue.NewRegistry()
	RegisterAuditHandlers(registry, repositories.NewAuditRepository(db))
	jobs := queue.NewInlineQueue(registry)

	pipe := New(config.Config{RequestLoggingEnabled: true}, nil, jobs)
	app := newApp(nil)
	app.Post("/webhook", pipe.Handle(Options{DisableAudit: true}, func(c *Ctx) (any, error) {
		return "OK", nil
	}))

	resp, _ := doJSON(t, app, http.MethodPost, "/webhook", `{"event":"x"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.APIRequestLog{}).Count(&count).Error)
	assert.Zero(t, count)
}
