package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionKind is the signed type of a ledger entry. Payments reduce
// the owning record's balance, refunds add back, rejections are
// informational and never move money.
type TransactionKind string

const (
	TransactionKindPayment   TransactionKind = "payment"
	TransactionKindRefund    TransactionKind = "refund"
	TransactionKindRejection TransactionKind = "rejection"
)

// PaymentMethod records how the money moved. Optional; the ledger fold
// never depends on it.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodCheck       PaymentMethod = "check"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodTransfer    PaymentMethod = "transfer"
	PaymentMethodDirectDebit PaymentMethod = "direct_debit"
)

// PaymentTransaction is an immutable-once-created ledger entry against a
// dues record. Amount and kind are never updated after creation; removing
// an entry tombstones it and triggers a ledger recomputation.
type PaymentTransaction struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Reference    string `gorm:"type:varchar(50);uniqueIndex" json:"reference"`
	DuesRecordID uint   `gorm:"index" json:"dues_record_id"`

	Amount decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Kind   TransactionKind `gorm:"type:varchar(20);index;default:'payment'" json:"kind"`
	Method PaymentMethod   `gorm:"type:varchar(20)" json:"method,omitempty"`

	PaidAt        time.Time `gorm:"index" json:"paid_at"`
	SettlementRef string    `gorm:"type:varchar(100)" json:"settlement_ref,omitempty"`
	Comment       string    `gorm:"type:text" json:"comment,omitempty"`

	// Relationships
	DuesRecord DuesRecord `gorm:"foreignKey:DuesRecordID" json:"dues_record,omitempty"`
}

// Signed returns the transaction's contribution to the amount-settled
// sum: positive for payments, negative for refunds, zero for rejections.
func (t PaymentTransaction) Signed() decimal.Decimal {
	switch t.Kind {
	case TransactionKindPayment:
		return t.Amount
	case TransactionKindRefund:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}
