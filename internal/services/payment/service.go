// Package payment implements the transaction ledger: balance mutation, bank
// accounts, withdrawals and webhook reconciliation.
package payment

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kobapay/internal/apperr"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/providers/paystack"
	"kobapay/internal/queue"
	"kobapay/internal/repositories"
)

// Gateway is the payment provider contract. paystack.Client satisfies it.
type Gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, map[string]any, error)
	CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, map[string]any, error)
	InitiateTransfer(ctx context.Context, recipient string, amount decimal.Decimal, reference, reason string) (map[string]any, error)
	ListBanks(ctx context.Context, country string) ([]paystack.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
}

// Service wires the ledger flows together.
type Service struct {
	cfg     config.Config
	db      *gorm.DB
	txns    *repositories.TransactionRepository
	users   *repositories.UserRepository
	cache   *repositories.Cache
	jobs    queue.Dispatcher
	gateway Gateway
}

func NewService(cfg config.Config, db *gorm.DB, txns *repositories.TransactionRepository,
	users *repositories.UserRepository, cache *repositories.Cache, jobs queue.Dispatcher, gateway Gateway) *Service {
	return &Service{cfg: cfg, db: db, txns: txns, users: users, cache: cache, jobs: jobs, gateway: gateway}
}

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference builds the unique ledger reference for a user's transaction.
func NewReference(userID uint) string {
	suffix := make([]byte, 10)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}
	return fmt.Sprintf("KP-%d-%s", userID, suffix)
}

// FeeCalculation splits an amount into the net payout and the platform fee.
func (s *Service) FeeCalculation(amount decimal.Decimal) (net, fee decimal.Decimal) {
	fee = amount.Mul(decimal.NewFromInt(int64(s.cfg.PlatformFeePercent))).
		Div(decimal.NewFromInt(100)).Floor()
	return amount.Sub(fee), fee
}

// FundOpts carries the optional fields of a balance mutation.
type FundOpts struct {
	Fee         decimal.Decimal
	Source      string
	Destination string
}

// FundBalance mutates a user's balance and appends the matching ledger entry
// as one atomic unit. The expected post-mutation balance is computed from the
// balance read inside the transaction; if the conditional write moves the row
// anywhere else a concurrent mutation slipped in and the whole unit rolls
// back. Withdrawals are recorded pending with zero paid amount; credits and
// debits settle immediately.
func (s *Service) FundBalance(userID uint, amount decimal.Decimal, txnType, description string, opts FundOpts) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.User("Amount must be greater than zero")
	}

	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Scopes(models.Available).First(&user, userID).Error; err != nil {
			return apperr.NotFound("User not found")
		}

		isCredit := txnType == models.TxnTypeCredit
		amountBefore := user.Balance
		var amountAfter decimal.Decimal
		if isCredit {
			amountAfter = amountBefore.Add(amount)
		} else {
			// The fee rides on top of the recorded amount, so a reversal of
			// amount plus fee restores the balance exactly.
			debit := amount
			if opts.Fee.GreaterThan(decimal.Zero) {
				debit = debit.Add(opts.Fee)
			}
			amountAfter = amountBefore.Sub(debit)
			// Checked against the balance read inside the transaction, so a
			// stale caller snapshot cannot overdraw.
			if amountAfter.IsNegative() {
				return apperr.User("Insufficient balance")
			}
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND balance = ?", user.ID, amountBefore).
			Update("balance", amountAfter)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.User("This looks like a duplicate transaction. Please try again.")
		}

		status := models.TxnStatusSuccess
		paidAmount := amount
		if txnType == models.TxnTypeWithdrawal {
			status = models.TxnStatusPending
			paidAmount = decimal.Zero
		}

		txn = &models.Transaction{
			UserID:          user.ID,
			Reference:       NewReference(user.ID),
			TransactionType: txnType,
			Amount:          amount,
			Fee:             opts.Fee,
			PaidAmount:      paidAmount,
			Status:          status,
			Source:          opts.Source,
			Destination:     opts.Destination,
			Description:     description,
		}
		return tx.Create(txn).Error
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindUser) || apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		return nil, apperr.Server(err, "payment.FundBalance")
	}
	return txn, nil
}

// ReverseTransaction appends the compensating credit for a failed transfer:
// the original amount plus any fee flows back to the owner as a new entry.
func (s *Service) ReverseTransaction(txn *models.Transaction) (*models.Transaction, error) {
	amount := txn.Amount
	if txn.Fee.GreaterThan(decimal.Zero) {
		amount = amount.Add(txn.Fee)
	}
	return s.FundBalance(txn.UserID, amount, models.TxnTypeCredit,
		fmt.Sprintf("Reversal for Transaction with ID: %s", txn.Reference),
		FundOpts{Source: "Platform", Destination: "Wallet"})
}

// Withdraw reserves funds and queues the payout.
func (s *Service) Withdraw(ctx context.Context, user *models.User, amount decimal.Decimal, description string) (*models.Transaction, error) {
	account, err := s.txns.FirstBankAccount(user.ID)
	if err != nil {
		return nil, apperr.Server(err, "payment.Withdraw")
	}
	if account == nil {
		return nil, apperr.User("Please add a bank account before withdrawing")
	}
	if user.Balance.LessThan(amount) {
		return nil, apperr.User("Insufficient balance")
	}

	net, fee := s.FeeCalculation(amount)
	if description == "" {
		description = "Withdrawal to bank account"
	}

	txn, err := s.FundBalance(user.ID, net, models.TxnTypeWithdrawal, description, FundOpts{
		Fee:         fee,
		Source:      "Wallet",
		Destination: fmt.Sprintf("%s (%s)", account.BankName, account.AccountNumber),
	})
	if err != nil {
		return nil, err
	}

	_ = s.jobs.Dispatch(ctx, queue.JobPaymentTransfer, TransferPayload{
		BankAccountID: account.ID,
		Amount:        txn.Amount,
		Reference:     txn.Reference,
	})
	return txn, nil
}

// List returns a filtered page of the user's ledger.
func (s *Service) List(f repositories.TransactionFilter) ([]models.Transaction, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = s.cfg.DefaultPageSize
	}
	txns, total, err := s.txns.List(f)
	if err != nil {
		return nil, 0, apperr.Server(err, "payment.List")
	}
	return txns, total, nil
}

// TransactionTypes lists the supported entry kinds.
func (s *Service) TransactionTypes() []string {
	return models.TransactionTypes
}
