package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"kobapay/internal/apperr"
	"kobapay/internal/config"
	"kobapay/internal/pipeline"
	"kobapay/internal/providers/paystack"
	"kobapay/internal/repositories"
	"kobapay/internal/services/payment"
)

// PaymentHandler serves the ledger, bank accounts and the provider webhook.
type PaymentHandler struct {
	cfg      config.Config
	pipe     *pipeline.Pipeline
	payments *payment.Service
}

func NewPaymentHandler(cfg config.Config, pipe *pipeline.Pipeline, payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{cfg: cfg, pipe: pipe, payments: payments}
}

func (h *PaymentHandler) ListBanks() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		return h.payments.ListBanks(c.Fiber.Context())
	})
}

type verifyAccountPayload struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

func (h *PaymentHandler) VerifyAccount() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
		NewPayload:   func() any { return &verifyAccountPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*verifyAccountPayload)
		return h.payments.ResolveAccount(c.Fiber.Context(), in.AccountNumber, in.BankCode)
	})
}

func (h *PaymentHandler) ListBankAccounts() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		return h.payments.BankAccounts(c.Actor)
	})
}

func (h *PaymentHandler) SaveBankAccount() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:  true,
		SuccessStatus: fiber.StatusCreated,
		NewPayload:    func() any { return &payment.BankAccountInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*payment.BankAccountInput)
		return h.payments.SaveBankAccount(c.Fiber.Context(), c.Actor, *in)
	})
}

func bankAccountID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, apperr.User("id is not a number")
	}
	return uint(id), nil
}

func (h *PaymentHandler) UpdateBankAccount() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
		NewPayload:   func() any { return &payment.BankAccountInput{} },
	}, func(c *pipeline.Ctx) (any, error) {
		id, err := bankAccountID(c.Fiber)
		if err != nil {
			return nil, err
		}
		in := c.Payload.(*payment.BankAccountInput)
		return h.payments.UpdateBankAccount(c.Fiber.Context(), c.Actor, id, *in)
	})
}

func (h *PaymentHandler) DeleteBankAccount() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		id, err := bankAccountID(c.Fiber)
		if err != nil {
			return nil, err
		}
		return h.payments.DeleteBankAccount(c.Actor, id)
	})
}

func (h *PaymentHandler) ListTransactions() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
		RawResponse:  true,
	}, func(c *pipeline.Ctx) (any, error) {
		page, pageSize := Page(c.Fiber, h.cfg.DefaultPageSize)
		filter := repositories.TransactionFilter{
			UserID:   c.Actor.ID,
			Keyword:  c.Fiber.Query("keyword"),
			Status:   c.Fiber.Query("status"),
			Type:     c.Fiber.Query("transaction_type"),
			Page:     page,
			PageSize: pageSize,
		}
		if raw := c.Fiber.Query("amount"); raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, apperr.User("amount is not a number")
			}
			filter.Amount = &amount
		}

		txns, total, err := h.payments.List(filter)
		if err != nil {
			return nil, err
		}
		return Paginated(c.Fiber, txns, total, page, pageSize), nil
	})
}

type withdrawPayload struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description"`
}

// CreateTransaction initiates a withdrawal from the caller's balance.
func (h *PaymentHandler) CreateTransaction() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth:   true,
		DecryptRequest: true,
		SuccessStatus:  fiber.StatusCreated,
		NewPayload:     func() any { return &withdrawPayload{} },
	}, func(c *pipeline.Ctx) (any, error) {
		in := c.Payload.(*withdrawPayload)
		return h.payments.Withdraw(c.Fiber.Context(), c.Actor, in.Amount, in.Description)
	})
}

func (h *PaymentHandler) TransactionTypes() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		RequiresAuth: true,
	}, func(c *pipeline.Ctx) (any, error) {
		return h.payments.TransactionTypes(), nil
	})
}

// Webhook handles provider callbacks. It is signature-authenticated, not
// bearer-authenticated: the HMAC of the raw body must match the header,
// except in non-production diagnostic mode.
func (h *PaymentHandler) Webhook() fiber.Handler {
	return h.pipe.Handle(pipeline.Options{
		DisableAudit: true,
	}, func(c *pipeline.Ctx) (any, error) {
		if config.IsProduction() {
			signature := c.Fiber.Get("x-paystack-signature")
			if !paystack.ValidSignature(h.cfg.PaystackSecretKey, c.Fiber.Body(), signature) {
				return nil, apperr.NotAuthorized("Invalid webhook signature")
			}
		}

		var event payment.WebhookEvent
		if err := json.Unmarshal(c.Fiber.Body(), &event); err != nil {
			return nil, apperr.User("Webhook body is not valid JSON")
		}
		if err := h.payments.Callback(c.Fiber.Context(), event); err != nil {
			return nil, err
		}
		return "OK", nil
	})
}
