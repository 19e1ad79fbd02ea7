package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Member is the contact record resolved through the member directory.
// The membership domain itself lives outside this service; only the
// fields needed for rendering and dispatch are carried here.
type Member struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirstName  string `gorm:"type:varchar(100)" json:"first_name"`
	LastName   string `gorm:"type:varchar(100)" json:"last_name"`
	Salutation string `gorm:"type:varchar(20)" json:"salutation"` // "Madame" or "Monsieur"
	MemberKind string `gorm:"type:varchar(50);index" json:"member_kind"`

	Email       string `gorm:"type:varchar(255);index" json:"email"`
	Phone       string `gorm:"type:varchar(30)" json:"phone"`
	AddressLine string `gorm:"type:varchar(255)" json:"address_line"`
	PostalCode  string `gorm:"type:varchar(10)" json:"postal_code"`
	City        string `gorm:"type:varchar(100)" json:"city"`
}

// FullName returns "First Last" with empty parts omitted.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// AddressBlock formats the postal address for letter rendering.
func (m Member) AddressBlock() string {
	lines := []string{m.FullName()}
	if m.AddressLine != "" {
		lines = append(lines, m.AddressLine)
	}
	if m.PostalCode != "" || m.City != "" {
		lines = append(lines, strings.TrimSpace(m.PostalCode+" "+m.City))
	}
	return strings.Join(lines, "\n")
}
