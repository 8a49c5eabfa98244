// Package pipeline is the shared request handler every endpoint funnels
// through. For each request it runs, in order: authorization, optional
// payload decryption, audit-log creation, input validation, the business
// target, response shaping/encryption, audit-log completion and error
// interception.
package pipeline

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"kobapay/internal/apperr"
	"kobapay/internal/authz"
	"kobapay/internal/config"
	"kobapay/internal/crypto"
	"kobapay/internal/models"
	"kobapay/internal/queue"
)

// ActorKey is the fiber locals key the auth middleware stores the user under.
const ActorKey = "actor"

// Options declares what a route needs from the pipeline. The zero value is a
// public, unvalidated, audited endpoint returning 200 with a data envelope.
type Options struct {
	RequiresAuth bool
	// Permissions is an any-of list; empty means no permission check.
	Permissions []string
	// AnyOfRoles is an any-of list checked after permissions.
	AnyOfRoles []string

	DecryptRequest  bool
	EncryptResponse bool

	// DisableAudit opts this route out of request logging.
	DisableAudit bool
	// RawResponse skips the {"data": ...} envelope.
	RawResponse bool

	SuccessStatus int

	// NewPayload builds the request struct to decode and validate. Nil means
	// the target reads the body itself or has none.
	NewPayload func() any
}

// Ctx is what a target receives: the underlying fiber context, the
// authenticated actor (nil on public routes) and the decoded payload.
type Ctx struct {
	Fiber   *fiber.Ctx
	Actor   *models.User
	Payload any
	// Body is the decrypted raw body when decryption ran.
	Body map[string]any
}

// Target is the business operation behind a route. A string result becomes
// the response message; anything else is the data.
type Target func(c *Ctx) (any, error)

// Pipeline carries the shared machinery.
type Pipeline struct {
	cfg      config.Config
	cipher   *crypto.AESCipher
	jobs     queue.Dispatcher
	validate *validator.Validate
}

func New(cfg config.Config, cipher *crypto.AESCipher, jobs queue.Dispatcher) *Pipeline {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &Pipeline{cfg: cfg, cipher: cipher, jobs: jobs, validate: v}
}

// Handle wraps a target in the pipeline and returns a fiber handler.
func (p *Pipeline) Handle(opts Options, target Target) fiber.Handler {
	if opts.SuccessStatus == 0 {
		opts.SuccessStatus = fiber.StatusOK
	}

	return func(c *fiber.Ctx) error {
		ctx := &Ctx{Fiber: c}
		if actor, ok := c.Locals(ActorKey).(*models.User); ok {
			ctx.Actor = actor
		}

		refID := ""
		if !opts.DisableAudit && p.cfg.RequestLoggingEnabled {
			refID = strings.ReplaceAll(uuid.NewString(), "-", "")[:18]
		}

		result, err := p.run(ctx, opts, target, refID)
		if err != nil {
			return p.errorResponse(c, err, refID)
		}
		return p.successResponse(c, opts, result, refID)
	}
}

func (p *Pipeline) run(ctx *Ctx, opts Options, target Target, refID string) (any, error) {
	if err := p.authorize(ctx, opts); err != nil {
		return nil, err
	}

	body, err := p.requestBody(ctx, opts)
	if err != nil {
		return nil, err
	}
	ctx.Body = body

	if refID != "" {
		p.auditCreate(ctx, refID, body)
	}

	if opts.NewPayload != nil {
		payload, err := p.decodeAndValidate(ctx, opts, body)
		if err != nil {
			return nil, err
		}
		ctx.Payload = payload
	}

	return target(ctx)
}

func (p *Pipeline) authorize(ctx *Ctx, opts Options) error {
	needsActor := opts.RequiresAuth || len(opts.Permissions) > 0 || len(opts.AnyOfRoles) > 0
	if !needsActor {
		return nil
	}
	if ctx.Actor == nil {
		return apperr.NotAuthorized("")
	}
	if ctx.Actor.DeactivatedAt != nil || !ctx.Actor.IsActive {
		return apperr.PermissionDenied("")
	}

	if len(opts.Permissions) > 0 {
		granted := false
		for _, perm := range opts.Permissions {
			if authz.HasPermission(ctx.Actor, perm) {
				granted = true
				break
			}
		}
		if !granted {
			return apperr.PermissionDenied("")
		}
	}

	if len(opts.AnyOfRoles) > 0 && !authz.HasAnyRole(ctx.Actor, opts.AnyOfRoles) {
		return apperr.PermissionDenied("")
	}
	return nil
}

// requestBody parses the JSON body, decrypting it first when the route asks
// for it and encryption is enabled.
func (p *Pipeline) requestBody(ctx *Ctx, opts Options) (map[string]any, error) {
	raw := ctx.Fiber.Body()
	if len(raw) == 0 {
		return nil, nil
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperr.User("Request body is not valid JSON")
	}

	if opts.DecryptRequest && p.cfg.EncryptionEnabled && p.cipher != nil {
		// Undecryptable ciphertext falls through as an empty body so the
		// client gets field-level validation errors back.
		return p.cipher.DecryptBody(body), nil
	}
	return body, nil
}

func (p *Pipeline) decodeAndValidate(ctx *Ctx, opts Options, body map[string]any) (any, error) {
	payload := opts.NewPayload()

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperr.Server(err, "pipeline.decodeAndValidate")
		}
		if err := json.Unmarshal(data, payload); err != nil {
			return nil, apperr.User("Request body is malformed")
		}
	}

	if err := p.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := map[string]string{}
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = validationMessage(fe)
			}
			return nil, apperr.Validation(fields)
		}
		return nil, apperr.User("Request body is malformed")
	}
	return payload, nil
}

func (p *Pipeline) successResponse(c *fiber.Ctx, opts Options, result any, refID string) error {
	message := "Successful"
	data := result
	if s, ok := result.(string); ok {
		message = s
		data = map[string]any{}
	}

	var envelope any
	if opts.RawResponse {
		envelope = data
	} else {
		envelope = fiber.Map{"message": message, "data": data}
	}

	if refID != "" {
		p.auditUpdate(refID, "Success", envelope)
	}

	if opts.EncryptResponse && p.cfg.EncryptionEnabled && p.cipher != nil {
		encrypted, err := encryptEnvelope(p.cipher, envelope)
		if err != nil {
			return p.errorResponse(c, apperr.Server(err, "pipeline.successResponse"), refID)
		}
		envelope = encrypted
	}

	return c.Status(opts.SuccessStatus).JSON(envelope)
}

func (p *Pipeline) errorResponse(c *fiber.Ctx, err error, refID string) error {
	status := apperr.StatusCode(err)
	body := fiber.Map{"error": apperr.Message(err)}
	if fields := apperr.FieldErrors(err); len(fields) > 0 {
		body["errors"] = fields
	}

	if refID != "" {
		p.auditUpdate(refID, "Error", body)
	}
	return c.Status(status).JSON(body)
}

// encryptEnvelope round-trips the response through JSON so the cipher sees
// plain maps and slices.
func encryptEnvelope(cipher *crypto.AESCipher, envelope any) (any, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return cipher.EncryptNested(plain)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "This field must be a valid email address"
	case "min":
		return "This field is below the minimum length"
	case "oneof":
		return "This field must be one of: " + fe.Param()
	default:
		return "This field is invalid"
	}
}
