package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
)

// Webhook event kinds.
const (
	EventChargeSuccess    = "charge.success"
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
)

// WebhookEvent is the provider callback body.
type WebhookEvent struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func rawJSON(data map[string]any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return raw
}

// Callback reconciles one provider event against the ledger. Only a pending
// transaction is actionable; anything else is rejected, which makes webhook
// replays safe.
func (s *Service) Callback(ctx context.Context, event WebhookEvent) error {
	reference, _ := event.Data["reference"].(string)
	if reference == "" {
		return apperr.User("Transaction reference not found")
	}

	txn, err := s.txns.FindByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.User("Transaction reference not found")
		}
		return apperr.Server(err, "payment.Callback")
	}

	if txn.Status != models.TxnStatusPending {
		return apperr.User("Transaction already acted upon!")
	}

	switch event.Event {
	case EventChargeSuccess:
		return s.reconcileCharge(ctx, txn, event.Data)
	case EventTransferSuccess:
		return s.reconcileTransferSuccess(txn, event.Data)
	case EventTransferFailed, EventTransferReversed:
		return s.reconcileTransferFailure(txn, event.Data)
	}
	return nil
}

// reconcileCharge never trusts the webhook body alone: the charge is
// re-verified against the provider first. A paid amount below the requested
// amount parks the transaction as ongoing for follow-up.
func (s *Service) reconcileCharge(ctx context.Context, txn *models.Transaction, data map[string]any) error {
	verified, _, err := s.gateway.VerifyTransaction(ctx, txn.Reference)
	if err != nil || verified == nil {
		return apperr.User("Verification failed")
	}

	paidAmount := verified.AmountDecimal()
	txn.ResponseData = rawJSON(data)

	if paidAmount.LessThan(txn.Amount) {
		txn.Status = models.TxnStatusOngoing
		if err := s.txns.Save(txn); err != nil {
			return apperr.Server(err, "payment.reconcileCharge")
		}
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", txn.UserID).
			Update("balance", gorm.Expr("balance + ?", txn.Amount))
		if res.Error != nil {
			return res.Error
		}

		txn.Status = verified.Status
		txn.PaidAmount = paidAmount
		return tx.Save(txn).Error
	})
	if err != nil {
		return apperr.Server(err, "payment.reconcileCharge")
	}
	return nil
}

// reconcileTransferSuccess adopts the provider's amount and status directly.
func (s *Service) reconcileTransferSuccess(txn *models.Transaction, data map[string]any) error {
	if amount, ok := data["amount"].(float64); ok {
		txn.PaidAmount = decimal.NewFromFloat(amount).Div(decimal.NewFromInt(100))
	}
	if status, ok := data["status"].(string); ok && status != "" {
		txn.Status = status
	} else {
		txn.Status = models.TxnStatusSuccess
	}
	txn.ResponseData = rawJSON(data)

	if err := s.txns.Save(txn); err != nil {
		return apperr.Server(err, "payment.reconcileTransferSuccess")
	}
	return nil
}

// reconcileTransferFailure fails the transaction and spawns the compensating
// credit. The original row is never edited back to its pre-withdrawal shape.
func (s *Service) reconcileTransferFailure(txn *models.Transaction, data map[string]any) error {
	txn.Status = models.TxnStatusFailed
	txn.ResponseData = rawJSON(data)
	if err := s.txns.Save(txn); err != nil {
		return apperr.Server(err, "payment.reconcileTransferFailure")
	}

	if _, err := s.ReverseTransaction(txn); err != nil {
		return err
	}
	return nil
}
