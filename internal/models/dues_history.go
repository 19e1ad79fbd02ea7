package models

import (
	"time"

	"gorm.io/gorm"
)

// History actions recorded against a dues record.
const (
	HistoryActionCreated            = "created"
	HistoryActionTransactionApplied = "transaction_applied"
	HistoryActionTransactionRemoved = "transaction_removed"
)

// DuesHistory is an append-only audit entry. Entries are written in the
// same unit of work as the ledger change they describe, never from an
// out-of-band observer.
type DuesHistory struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	DuesRecordID uint                   `gorm:"index" json:"dues_record_id"`
	Action       string                 `gorm:"type:varchar(50);index" json:"action"`
	Details      map[string]interface{} `gorm:"serializer:json" json:"details"`
	OccurredAt   time.Time              `gorm:"index" json:"occurred_at"`
}
