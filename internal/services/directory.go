package services

import (
	"context"

	"gorm.io/gorm"

	"assogest/internal/models"
)

// MemberDirectory resolves a member reference to the contact fields
// used by the template renderer and the delivery call. The membership
// domain itself is an external collaborator.
type MemberDirectory interface {
	Contact(ctx context.Context, memberID uint) (*models.Member, error)
}

// GormMemberDirectory reads member contacts from the shared database.
type GormMemberDirectory struct {
	db *gorm.DB
}

// NewGormMemberDirectory builds a database-backed directory.
func NewGormMemberDirectory(db *gorm.DB) *GormMemberDirectory {
	return &GormMemberDirectory{db: db}
}

func (d *GormMemberDirectory) Contact(ctx context.Context, memberID uint) (*models.Member, error) {
	var member models.Member
	if err := d.db.WithContext(ctx).First(&member, memberID).Error; err != nil {
		return nil, ClassifyStorageError(err)
	}
	return &member, nil
}
