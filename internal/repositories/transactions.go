package repositories

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kobapay/internal/models"
)

// TransactionRepository wraps ledger and bank account persistence.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) DB() *gorm.DB { return r.db }

// FindByReference loads a transaction by its idempotency reference.
func (r *TransactionRepository) FindByReference(reference string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Scopes(models.Available).Preload("User").
		Where("reference = ?", reference).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) Save(txn *models.Transaction) error {
	return r.db.Save(txn).Error
}

// TransactionFilter narrows List.
type TransactionFilter struct {
	UserID   uint
	Keyword  string
	Status   string
	Type     string
	Amount   *decimal.Decimal
	Page     int
	PageSize int
}

// List returns a filtered page of a user's transactions plus the total.
func (r *TransactionRepository) List(f TransactionFilter) ([]models.Transaction, int64, error) {
	q := r.db.Model(&models.Transaction{}).Scopes(models.Available).
		Where("user_id = ?", f.UserID)
	if f.Keyword != "" {
		kw := "%" + strings.ToLower(f.Keyword) + "%"
		q = q.Where("LOWER(reference) LIKE ? OR LOWER(description) LIKE ?", kw, kw)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("transaction_type = ?", f.Type)
	}
	if f.Amount != nil {
		q = q.Where("amount = ?", f.Amount)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.Transaction
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&txns).Error
	return txns, total, err
}

// Banks

// ListBanks returns all active banks.
func (r *TransactionRepository) ListBanks() ([]models.Bank, error) {
	var banks []models.Bank
	err := r.db.Scopes(models.ActiveAvailable).Order("name").Find(&banks).Error
	return banks, err
}

// Bank accounts

// BankAccounts returns a user's available bank accounts.
func (r *TransactionRepository) BankAccounts(userID uint) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.Scopes(models.Available).Where("user_id = ?", userID).Find(&accounts).Error
	return accounts, err
}

// FindBankAccount loads a user's bank account by id.
func (r *TransactionRepository) FindBankAccount(userID, id uint) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.Scopes(models.Available).
		Where("user_id = ? AND id = ?", userID, id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FirstBankAccount returns the user's bank account, nil when none exists.
func (r *TransactionRepository) FirstBankAccount(userID uint) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.Scopes(models.Available).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CountBankAccounts counts a user's available bank accounts.
func (r *TransactionRepository) CountBankAccounts(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.BankAccount{}).Scopes(models.Available).
		Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *TransactionRepository) CreateBankAccount(account *models.BankAccount) error {
	return r.db.Create(account).Error
}

func (r *TransactionRepository) SaveBankAccount(account *models.BankAccount) error {
	return r.db.Save(account).Error
}
