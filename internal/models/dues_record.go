package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the derived payment state of a dues record.
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
)

// DuesKind distinguishes regular membership dues from dues attached to
// an event registration. It drives the reference prefix.
type DuesKind string

const (
	DuesKindStandard DuesKind = "standard"
	DuesKindEvent    DuesKind = "event"
)

// DuesRecord is an amount owed by a member, with a running balance that
// is recomputed from its transaction history. Balance and PaymentStatus
// are never written directly; the ledger recomputation is the only path
// that mutates them.
type DuesRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Reference string   `gorm:"type:varchar(50);uniqueIndex" json:"reference"`
	MemberID  uint     `gorm:"index" json:"member_id"`
	Kind      DuesKind `gorm:"type:varchar(20);default:'standard'" json:"kind"`

	Amount  decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Balance decimal.Decimal `gorm:"type:decimal(10,2)" json:"balance"`

	IssueDate   time.Time  `json:"issue_date"`
	DueDate     time.Time  `gorm:"index" json:"due_date"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(20);index;default:'unpaid'" json:"payment_status"`

	RateCardID *uint                  `gorm:"index" json:"rate_card_id,omitempty"`
	Metadata   map[string]interface{} `gorm:"serializer:json" json:"metadata,omitempty"`

	// Relationships
	Member       Member               `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	RateCard     *RateCard            `gorm:"foreignKey:RateCardID" json:"rate_card,omitempty"`
	Transactions []PaymentTransaction `gorm:"foreignKey:DuesRecordID" json:"transactions,omitempty"`
	Reminders    []ReminderRecord     `gorm:"foreignKey:DuesRecordID" json:"reminders,omitempty"`
}

// DerivePaymentStatus maps a balance against the original amount onto
// the three-way status: settled, partially settled, untouched.
func DerivePaymentStatus(balance, amount decimal.Decimal) PaymentStatus {
	switch {
	case balance.Sign() <= 0:
		return PaymentStatusPaid
	case balance.LessThan(amount):
		return PaymentStatusPartiallyPaid
	default:
		return PaymentStatusUnpaid
	}
}

// Overdue reports whether the record is past its due date and not settled.
func (d DuesRecord) Overdue(now time.Time) bool {
	return d.DueDate.Before(now) && d.PaymentStatus != PaymentStatusPaid
}

// DaysOverdue returns the number of whole days past the due date, or 0
// when the record is not overdue.
func (d DuesRecord) DaysOverdue(now time.Time) int {
	if !d.Overdue(now) {
		return 0
	}
	return int(now.Sub(d.DueDate).Hours() / 24)
}
