package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidTransition is returned when a reminder state change is not
// allowed from the record's current state.
var ErrInvalidTransition = errors.New("invalid reminder state transition")

// ReminderChannel is the delivery medium for a reminder.
type ReminderChannel string

const (
	ReminderChannelEmail  ReminderChannel = "email"
	ReminderChannelSMS    ReminderChannel = "sms"
	ReminderChannelLetter ReminderChannel = "letter"
	ReminderChannelCall   ReminderChannel = "call"
)

// UrgencyTier determines the tone of a reminder and which template row
// applies.
type UrgencyTier string

const (
	UrgencyTierStandard UrgencyTier = "standard"
	UrgencyTierUrgent   UrgencyTier = "urgent"
	UrgencyTierFormal   UrgencyTier = "formal"
)

// ReminderState is the lifecycle state of a reminder record.
type ReminderState string

const (
	ReminderStateScheduled ReminderState = "scheduled"
	ReminderStateSent      ReminderState = "sent"
	ReminderStateFailed    ReminderState = "failed"
	ReminderStateRead      ReminderState = "read"
)

// ReminderRecord is one escalation attempt against an overdue dues
// record. A failed reminder stays failed; a follow-up is a new record
// at a higher escalation level.
type ReminderRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PublicID     string `gorm:"type:varchar(36);uniqueIndex" json:"public_id"`
	DuesRecordID uint   `gorm:"index" json:"dues_record_id"`
	MemberID     uint   `gorm:"index" json:"member_id"`

	Channel ReminderChannel `gorm:"type:varchar(20)" json:"channel"`
	Tier    UrgencyTier     `gorm:"type:varchar(20);default:'standard'" json:"tier"`
	Level   int             `gorm:"default:1" json:"level"`

	Subject string `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body    string `gorm:"type:text" json:"body"`

	ScheduledAt time.Time     `gorm:"index:idx_reminders_state_scheduled,priority:2,where:deleted_at IS NULL" json:"scheduled_at"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	State       ReminderState `gorm:"type:varchar(20);index:idx_reminders_state_scheduled,priority:1,where:deleted_at IS NULL" json:"state"`
	Result      string        `gorm:"type:text" json:"result,omitempty"`

	// Relationships
	DuesRecord DuesRecord `gorm:"foreignKey:DuesRecordID" json:"dues_record,omitempty"`
	Member     Member     `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

// MarkSent transitions scheduled → sent and stamps the actual send time.
func (r *ReminderRecord) MarkSent(now time.Time, providerRef string) error {
	if r.State != ReminderStateScheduled {
		return fmt.Errorf("%w: cannot mark %s reminder as sent", ErrInvalidTransition, r.State)
	}
	r.State = ReminderStateSent
	r.SentAt = &now
	r.Result = providerRef
	return nil
}

// MarkFailed transitions scheduled → failed. Failed is terminal; a
// follow-up attempt is a new record.
func (r *ReminderRecord) MarkFailed(reason string) error {
	if r.State != ReminderStateScheduled {
		return fmt.Errorf("%w: cannot mark %s reminder as failed", ErrInvalidTransition, r.State)
	}
	r.State = ReminderStateFailed
	r.Result = reason
	return nil
}

// MarkRead transitions sent → read, driven by an external read-receipt
// signal.
func (r *ReminderRecord) MarkRead() error {
	if r.State != ReminderStateSent {
		return fmt.Errorf("%w: cannot mark %s reminder as read", ErrInvalidTransition, r.State)
	}
	r.State = ReminderStateRead
	return nil
}

// RecommendTier suggests an urgency tier from the number of days a dues
// record is overdue. Callers may override the recommendation.
func RecommendTier(daysOverdue int) UrgencyTier {
	switch {
	case daysOverdue <= 7:
		return UrgencyTierStandard
	case daysOverdue <= 21:
		return UrgencyTierUrgent
	default:
		return UrgencyTierFormal
	}
}
