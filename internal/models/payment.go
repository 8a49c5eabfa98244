package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction statuses.
const (
	TxnStatusSuccess    = "success"
	TxnStatusAbandoned  = "abandoned"
	TxnStatusFailed     = "failed"
	TxnStatusOngoing    = "ongoing"
	TxnStatusPending    = "pending"
	TxnStatusProcessing = "processing"
	TxnStatusQueued     = "queued"
	TxnStatusReversed   = "reversed"
)

// Transaction types.
const (
	TxnTypeWithdrawal = "Withdrawal"
	TxnTypeCredit     = "Credit"
	TxnTypeDebit      = "Debit"
)

// TransactionTypes lists the supported ledger entry kinds.
var TransactionTypes = []string{TxnTypeWithdrawal, TxnTypeCredit, TxnTypeDebit}

// Bank is a provider-listed bank, cached locally for account resolution.
type Bank struct {
	BaseModel
	Name    string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Code    string `gorm:"size:255;uniqueIndex;not null" json:"code"`
	Country string `gorm:"size:255;not null" json:"country"`
}

// BankAccount is a payout destination. RecipientCode is the provider-side
// transfer recipient handle, provisioned lazily and reused.
type BankAccount struct {
	BaseModel
	UserID        uint   `gorm:"index;not null" json:"-"`
	BankName      string `gorm:"size:255;not null" json:"bank_name"`
	BankCode      string `gorm:"size:255;not null" json:"bank_code"`
	AccountNumber string `gorm:"size:255;not null" json:"account_number"`
	AccountName   string `gorm:"size:255;not null" json:"account_name"`
	RecipientCode string `gorm:"size:255" json:"-"`
}

// Transaction is a ledger entry. Reference is the idempotency key shared with
// the payment provider; PaidAmount tracks what the provider actually settled.
type Transaction struct {
	BaseModel
	UserID          uint            `gorm:"index;not null" json:"-"`
	User            *User           `gorm:"foreignKey:UserID" json:"-"`
	Reference       string          `gorm:"size:255;uniqueIndex;not null" json:"reference"`
	TransactionType string          `gorm:"size:50" json:"transaction_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Fee             decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"fee"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"paid_amount"`
	Status          string          `gorm:"size:50;default:'pending'" json:"status"`
	Source          string          `gorm:"size:255" json:"source"`
	Destination     string          `gorm:"size:255" json:"destination"`
	Description     string          `json:"description"`
	ResponseData    datatypes.JSON  `json:"-"`
}
