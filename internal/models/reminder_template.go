package models

import (
	"time"

	"gorm.io/gorm"
)

// ReminderTemplate is one cell of the content matrix, keyed by
// (channel, tier, locale). The body carries {variable} placeholders
// resolved at render time.
type ReminderTemplate struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Channel ReminderChannel `gorm:"type:varchar(20);uniqueIndex:idx_template_key,where:deleted_at IS NULL" json:"channel"`
	Tier    UrgencyTier     `gorm:"type:varchar(20);uniqueIndex:idx_template_key,where:deleted_at IS NULL" json:"tier"`
	Locale  string          `gorm:"type:varchar(10);uniqueIndex:idx_template_key,where:deleted_at IS NULL;default:'fr'" json:"locale"`

	Subject string `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body    string `gorm:"type:text" json:"body"`

	// Escalation levels this template applies to.
	MinLevel int `gorm:"default:1" json:"min_level"`
	MaxLevel int `gorm:"default:1" json:"max_level"`
}

// CoversLevel reports whether the template's level range includes the
// given escalation level.
func (t ReminderTemplate) CoversLevel(level int) bool {
	return level >= t.MinLevel && level <= t.MaxLevel
}
