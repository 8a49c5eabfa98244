package pipeline

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kobapay/internal/apperr"
	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/crypto"
	"kobapay/internal/models"
	"kobapay/internal/queue"
)

func newTestPipeline() *Pipeline {
	cfg := config.Config{RequestLoggingEnabled: false}
	return New(cfg, nil, queue.NewInlineQueue(queue.NewRegistry()))
}

func newApp(actor *models.User) *fiber.App {
	app := fiber.New()
	if actor != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals(ActorKey, actor)
			return c.Next()
		})
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func activeUser(perms ...string) *models.User {
	user := &models.User{BaseModel: models.BaseModel{IsActive: true}}
	for _, p := range perms {
		user.Permissions = append(user.Permissions, models.Permission{Name: p})
	}
	return user
}

func TestHandleEnvelopeShape(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Get("/", pipe.Handle(Options{}, func(c *Ctx) (any, error) {
		return map[string]any{"value": 42}, nil
	}))

	resp, body := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successful", body["message"])
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 42, data["value"])
}

func TestHandleStringResultBecomesMessage(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Post("/", pipe.Handle(Options{SuccessStatus: fiber.StatusAccepted}, func(c *Ctx) (any, error) {
		return "Queued for processing", nil
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "Queued for processing", body["message"])
}

func TestHandleRawResponse(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Get("/", pipe.Handle(Options{RawResponse: true}, func(c *Ctx) (any, error) {
		return map[string]any{"results": []int{1, 2}}, nil
	}))

	_, body := doJSON(t, app, http.MethodGet, "/", "")
	assert.NotContains(t, body, "message")
	assert.Contains(t, body, "results")
}

func TestHandleRequiresAuth(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Get("/", pipe.Handle(Options{RequiresAuth: true}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))

	resp, _ := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleDeactivatedActorForbidden(t *testing.T) {
	pipe := newTestPipeline()
	actor := &models.User{BaseModel: models.BaseModel{IsActive: false}}
	app := newApp(actor)
	app.Get("/", pipe.Handle(Options{RequiresAuth: true}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))

	resp, _ := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandlePermissionCheck(t *testing.T) {
	pipe := newTestPipeline()

	app := newApp(activeUser(authz.PermViewUsers))
	app.Get("/", pipe.Handle(Options{Permissions: []string{authz.PermViewUsers}}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))
	resp, _ := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	denied := newApp(activeUser())
	denied.Get("/", pipe.Handle(Options{Permissions: []string{authz.PermViewUsers}}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))
	resp, body := doJSON(t, denied, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You do not have permission to perform this action", body["error"])
}

func TestHandleAnyOfRoles(t *testing.T) {
	pipe := newTestPipeline()
	actor := activeUser()
	actor.Roles = []models.Role{{Name: models.RoleSupport}}

	app := newApp(actor)
	app.Get("/", pipe.Handle(Options{AnyOfRoles: []string{models.RoleAdmin, models.RoleSupport}}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))
	resp, _ := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	denied := newApp(actor)
	denied.Get("/", pipe.Handle(Options{AnyOfRoles: []string{models.RoleAdmin}}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))
	resp, _ = doJSON(t, denied, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type echoPayload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func TestHandleValidationErrors(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Post("/", pipe.Handle(Options{
		NewPayload: func() any { return &echoPayload{} },
	}, func(c *Ctx) (any, error) {
		return c.Payload.(*echoPayload).Email, nil
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fields := body["errors"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "name")
	assert.Equal(t, "This field is required", fields["name"])
}

func TestHandleValidPayloadReachesTarget(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Post("/", pipe.Handle(Options{
		NewPayload: func() any { return &echoPayload{} },
	}, func(c *Ctx) (any, error) {
		return c.Payload.(*echoPayload).Email, nil
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/", `{"email":"ada@example.com","name":"Ada"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ada@example.com", body["message"])
}

func TestHandleUndecryptableBodyGetsFieldErrors(t *testing.T) {
	cipher, err := crypto.NewAESCipher("0123456789abcdef", "fedcba9876543210")
	require.NoError(t, err)
	pipe := New(config.Config{EncryptionEnabled: true}, cipher, queue.NewInlineQueue(queue.NewRegistry()))

	app := newApp(nil)
	app.Post("/", pipe.Handle(Options{
		DecryptRequest: true,
		NewPayload:     func() any { return &echoPayload{} },
	}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/", `{"email":"!!not-ciphertext!!"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fields, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "name")
}

func TestHandleInvalidJSONBody(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Post("/", pipe.Handle(Options{
		NewPayload: func() any { return &echoPayload{} },
	}, func(c *Ctx) (any, error) {
		return "ok", nil
	}))

	resp, body := doJSON(t, app, http.MethodPost, "/", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Request body is not valid JSON", body["error"])
}

func TestHandleErrorStatusMapping(t *testing.T) {
	pipe := newTestPipeline()
	cases := []struct {
		err    error
		status int
	}{
		{apperr.User("bad input"), http.StatusBadRequest},
		{apperr.NotFound(""), http.StatusNotFound},
		{apperr.PermissionDenied(""), http.StatusForbidden},
		{apperr.AccessDenied(""), http.StatusForbidden},
		{apperr.NotAuthorized(""), http.StatusUnauthorized},
		{apperr.Unprocessable(""), http.StatusUnprocessableEntity},
		{apperr.RateLimited(""), http.StatusTooManyRequests},
		{apperr.Server(nil, "test"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		app := newApp(nil)
		failing := tc.err
		app.Get("/", pipe.Handle(Options{}, func(c *Ctx) (any, error) {
			return nil, failing
		}))
		resp, body := doJSON(t, app, http.MethodGet, "/", "")
		assert.Equal(t, tc.status, resp.StatusCode)
		assert.NotEmpty(t, body["error"])
		assert.NotContains(t, body, "message")
	}
}

func TestHandleErrorBodyShape(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Get("/", pipe.Handle(Options{}, func(c *Ctx) (any, error) {
		return nil, apperr.User("nope")
	}))

	resp, body := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "nope", body["error"])
}

func TestHandleServerErrorHidesCause(t *testing.T) {
	pipe := newTestPipeline()
	app := newApp(nil)
	app.Get("/", pipe.Handle(Options{}, func(c *Ctx) (any, error) {
		return nil, apperr.Server(assert.AnError, "test.position")
	}))

	resp, body := doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body["error"], assert.AnError.Error())
}
