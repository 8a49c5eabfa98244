package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"kobapay/internal/models"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// sensitiveKeys are redacted from audit logs.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"old_password":  true,
	"new_password":  true,
	"otp":           true,
	"pin":           true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"secret":        true,
}

// authorizationHeaders never make it into audit logs.
var authorizationHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"cookie":        true,
}

// Redact masks sensitive top-level values.
func Redact(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	out := make(map[string]any, len(body))
	for k, v := range body {
		if sensitiveKeys[strings.ToLower(k)] {
			out[k] = "****"
		} else {
			out[k] = v
		}
	}
	return out
}

// AuditCreatePayload is the queue payload for JobAuditLogCreate.
type AuditCreatePayload struct {
	UserID      *uint             `json:"user_id"`
	Path        string            `json:"path"`
	RefID       string            `json:"ref_id"`
	Headers     map[string]string `json:"headers"`
	RequestData map[string]any    `json:"request_data"`
}

// AuditUpdatePayload is the queue payload for JobAuditLogUpdate.
type AuditUpdatePayload struct {
	RefID        string `json:"ref_id"`
	Status       string `json:"status"`
	ResponseBody any    `json:"response_body"`
}

// ActivityPayload is the queue payload for JobActivityReport.
type ActivityPayload struct {
	UserID      *uint  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (p *Pipeline) auditCreate(ctx *Ctx, refID string, body map[string]any) {
	headers := map[string]string{}
	ctx.Fiber.Request().Header.VisitAll(func(key, value []byte) {
		name := string(key)
		if !authorizationHeaders[strings.ToLower(name)] {
			headers[name] = string(value)
		}
	})

	var userID *uint
	if ctx.Actor != nil {
		userID = &ctx.Actor.ID
	}

	err := p.jobs.Dispatch(ctx.Fiber.Context(), queue.JobAuditLogCreate, AuditCreatePayload{
		UserID:      userID,
		Path:        ctx.Fiber.OriginalURL(),
		RefID:       refID,
		Headers:     headers,
		RequestData: Redact(body),
	})
	if err != nil {
		logrus.WithField("position", "pipeline.auditCreate").Warn(err)
	}
}

func (p *Pipeline) auditUpdate(refID, status string, response any) {
	// Redact the data object when the response carries one.
	if m, ok := response.(map[string]any); ok {
		if data, ok := m["data"].(map[string]any); ok {
			clone := make(map[string]any, len(m))
			for k, v := range m {
				clone[k] = v
			}
			clone["data"] = Redact(data)
			response = clone
		}
	}

	err := p.jobs.Dispatch(context.Background(), queue.JobAuditLogUpdate, AuditUpdatePayload{
		RefID:        refID,
		Status:       status,
		ResponseBody: response,
	})
	if err != nil {
		logrus.WithField("position", "pipeline.auditUpdate").Warn(err)
	}
}

// RegisterAuditHandlers binds the audit jobs to the store.
func RegisterAuditHandlers(registry *queue.Registry, audits *repositories.AuditRepository) {
	registry.Register(queue.JobAuditLogCreate, func(_ context.Context, raw json.RawMessage) error {
		var payload AuditCreatePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}

		headers, _ := json.Marshal(payload.Headers)
		requestData, _ := json.Marshal(payload.RequestData)
		return audits.CreateRequestLog(&models.APIRequestLog{
			UserID:      payload.UserID,
			Path:        payload.Path,
			RefID:       payload.RefID,
			Headers:     headers,
			RequestData: requestData,
		})
	})

	registry.Register(queue.JobAuditLogUpdate, func(_ context.Context, raw json.RawMessage) error {
		var payload AuditUpdatePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}

		responseBody, _ := json.Marshal(payload.ResponseBody)
		return audits.UpdateRequestLog(payload.RefID, map[string]any{
			"status":        payload.Status,
			"response_body": responseBody,
		})
	})

	registry.Register(queue.JobActivityReport, func(_ context.Context, raw json.RawMessage) error {
		var payload ActivityPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
		return audits.CreateActivity(&models.Activity{
			UserID:      payload.UserID,
			Title:       payload.Title,
			Description: payload.Description,
		})
	})
}
