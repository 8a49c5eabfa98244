package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// BankAccountInput is the payout destination payload.
type BankAccountInput struct {
	BankName      string `json:"bank_name" validate:"required"`
	BankCode      string `json:"bank_code" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required"`
	AccountName   string `json:"account_name" validate:"required"`
}

// SaveBankAccount links a payout destination, enforcing the per-user cap, and
// queues recipient provisioning.
func (s *Service) SaveBankAccount(ctx context.Context, user *models.User, in BankAccountInput) (*models.BankAccount, error) {
	count, err := s.txns.CountBankAccounts(user.ID)
	if err != nil {
		return nil, apperr.Server(err, "payment.SaveBankAccount")
	}
	if count >= int64(s.cfg.MaxBankAccounts) {
		return nil, apperr.User("You have reached the maximum number of bank accounts")
	}

	account := &models.BankAccount{
		UserID:        user.ID,
		BankName:      in.BankName,
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		AccountName:   in.AccountName,
	}
	if err := s.txns.CreateBankAccount(account); err != nil {
		return nil, apperr.Server(err, "payment.SaveBankAccount")
	}

	_ = s.jobs.Dispatch(ctx, queue.JobPaymentRecipient, RecipientPayload{BankAccountID: account.ID})
	return account, nil
}

// UpdateBankAccount edits an existing destination and drops its recipient
// code so it is re-provisioned.
func (s *Service) UpdateBankAccount(ctx context.Context, user *models.User, id uint, in BankAccountInput) (*models.BankAccount, error) {
	account, err := s.txns.FindBankAccount(user.ID, id)
	if err != nil {
		return nil, apperr.NotFound("Bank account not found")
	}

	account.BankName = in.BankName
	account.BankCode = in.BankCode
	account.AccountNumber = in.AccountNumber
	account.AccountName = in.AccountName
	account.RecipientCode = ""
	if err := s.txns.SaveBankAccount(account); err != nil {
		return nil, apperr.Server(err, "payment.UpdateBankAccount")
	}

	_ = s.jobs.Dispatch(ctx, queue.JobPaymentRecipient, RecipientPayload{BankAccountID: account.ID})
	return account, nil
}

// DeleteBankAccount soft-deletes a destination.
func (s *Service) DeleteBankAccount(user *models.User, id uint) (string, error) {
	account, err := s.txns.FindBankAccount(user.ID, id)
	if err != nil {
		return "", apperr.NotFound("Bank account not found")
	}

	account.IsDeleted = true
	account.DeletedByID = &user.ID
	if err := s.txns.SaveBankAccount(account); err != nil {
		return "", apperr.Server(err, "payment.DeleteBankAccount")
	}
	return "Bank account deleted successfully", nil
}

// BankAccounts lists the user's payout destinations.
func (s *Service) BankAccounts(user *models.User) ([]models.BankAccount, error) {
	accounts, err := s.txns.BankAccounts(user.ID)
	if err != nil {
		return nil, apperr.Server(err, "payment.BankAccounts")
	}
	return accounts, nil
}

// ListBanks serves the bank directory, preferring the seeded table and
// falling back to the provider, cached either way.
func (s *Service) ListBanks(ctx context.Context) ([]models.Bank, error) {
	key := s.cache.Key("banks")
	banks, err := repositories.Cached(ctx, s.cache, key, s.cfg.DefaultCacheTTL, func() ([]models.Bank, error) {
		local, err := s.txns.ListBanks()
		if err != nil {
			return nil, err
		}
		if len(local) > 0 {
			return local, nil
		}

		online, err := s.gateway.ListBanks(ctx, "nigeria")
		if err != nil {
			return nil, err
		}
		out := make([]models.Bank, 0, len(online))
		for _, b := range online {
			out = append(out, models.Bank{Name: b.Name, Code: b.Code, Country: b.Country})
		}
		return out, nil
	})
	if err != nil {
		return nil, apperr.Server(err, "payment.ListBanks")
	}
	return banks, nil
}

// ResolveAccount looks up the name behind an account number, cached per
// number and bank code. Missing fields are a 422.
func (s *Service) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (map[string]any, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, apperr.Unprocessable("account_number and bank_code are required")
	}

	key := s.cache.Key("bank_account", accountNumber, bankCode)
	return repositories.Cached(ctx, s.cache, key, s.cfg.DefaultCacheTTL, func() (map[string]any, error) {
		resolved, err := s.gateway.ResolveAccount(ctx, accountNumber, bankCode)
		if err != nil {
			return map[string]any{"message": "Account not found"}, nil
		}
		return map[string]any{
			"account_number": resolved.AccountNumber,
			"account_name":   resolved.AccountName,
		}, nil
	})
}

// RecipientPayload is the queue payload for JobPaymentRecipient.
type RecipientPayload struct {
	BankAccountID uint `json:"bank_account_id"`
}

// TransferPayload is the queue payload for JobPaymentTransfer.
type TransferPayload struct {
	BankAccountID uint            `json:"bank_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
}

// ProvisionRecipient registers the bank account with the provider unless it
// already holds a recipient code. Safe to run more than once.
func (s *Service) ProvisionRecipient(ctx context.Context, bankAccountID uint) (string, error) {
	account, err := s.findAnyBankAccount(bankAccountID)
	if err != nil || account == nil {
		return "", err
	}
	if account.RecipientCode != "" {
		return account.RecipientCode, nil
	}

	code, _, err := s.gateway.CreateTransferRecipient(ctx, account.AccountName, account.AccountNumber, account.BankCode)
	if err != nil {
		return "", err
	}

	account.RecipientCode = code
	if err := s.txns.SaveBankAccount(account); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) findAnyBankAccount(id uint) (*models.BankAccount, error) {
	var account models.BankAccount
	err := s.db.Scopes(models.Available).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// InitiateTransfer disburses a pending withdrawal, provisioning the recipient
// first when needed. The provider response is kept on the transaction for the
// webhook to reconcile against.
func (s *Service) InitiateTransfer(ctx context.Context, payload TransferPayload) error {
	account, err := s.findAnyBankAccount(payload.BankAccountID)
	if err != nil || account == nil {
		return err
	}

	recipient := account.RecipientCode
	if recipient == "" {
		recipient, err = s.ProvisionRecipient(ctx, account.ID)
		if err != nil {
			return err
		}
	}

	txn, err := s.txns.FindByReference(payload.Reference)
	if err != nil {
		return err
	}

	response, err := s.gateway.InitiateTransfer(ctx, recipient, payload.Amount, txn.Reference, txn.Description)
	if response != nil {
		txn.ResponseData = rawJSON(response)
		if serr := s.txns.Save(txn); serr != nil {
			return serr
		}
	}
	if err != nil {
		logrus.WithField("reference", txn.Reference).Errorf("initiate transfer: %v", err)
		return err
	}
	return nil
}

// RegisterHandlers binds the payout jobs.
func (s *Service) RegisterHandlers(registry *queue.Registry) {
	registry.Register(queue.JobPaymentRecipient, func(ctx context.Context, raw json.RawMessage) error {
		var payload RecipientPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
		_, err := s.ProvisionRecipient(ctx, payload.BankAccountID)
		return err
	})
	registry.Register(queue.JobPaymentTransfer, func(ctx context.Context, raw json.RawMessage) error {
		var payload TransferPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
		return s.InitiateTransfer(ctx, payload)
	})
}
