package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	"assogest/internal/models"
)

// ReferenceKind selects the prefix and date granularity of a generated
// reference.
type ReferenceKind string

const (
	ReferenceKindDues      ReferenceKind = "dues"
	ReferenceKindEventDues ReferenceKind = "event_dues"
	ReferenceKindPayment   ReferenceKind = "payment"
	ReferenceKindRefund    ReferenceKind = "refund"
	ReferenceKindRejection ReferenceKind = "rejection"
)

var referencePrefixes = map[ReferenceKind]string{
	ReferenceKindDues:      "COT",
	ReferenceKindEventDues: "EVT",
	ReferenceKindPayment:   "PAI",
	ReferenceKindRefund:    "RMB",
	ReferenceKindRejection: "REJ",
}

const (
	refSuffixChars        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	refSuffixLen          = 5
	maxGenerationAttempts = 20
)

// DuesReferenceKind maps a dues record kind to its reference kind.
func DuesReferenceKind(kind models.DuesKind) ReferenceKind {
	if kind == models.DuesKindEvent {
		return ReferenceKindEventDues
	}
	return ReferenceKindDues
}

// TransactionReferenceKind maps a transaction kind to its reference kind.
func TransactionReferenceKind(kind models.TransactionKind) ReferenceKind {
	switch kind {
	case models.TransactionKindRefund:
		return ReferenceKindRefund
	case models.TransactionKindRejection:
		return ReferenceKindRejection
	default:
		return ReferenceKindPayment
	}
}

// referenceChecker answers whether a candidate reference is already
// taken. Tombstoned rows keep their reference, so the check includes
// them.
type referenceChecker interface {
	Exists(ctx context.Context, kind ReferenceKind, reference string) (bool, error)
}

type gormReferenceChecker struct {
	db *gorm.DB
}

func (c gormReferenceChecker) Exists(ctx context.Context, kind ReferenceKind, reference string) (bool, error) {
	var count int64
	query := c.db.WithContext(ctx).Unscoped()
	switch kind {
	case ReferenceKindDues, ReferenceKindEventDues:
		query = query.Model(&models.DuesRecord{})
	default:
		query = query.Model(&models.PaymentTransaction{})
	}
	if err := query.Where("reference = ?", reference).Count(&count).Error; err != nil {
		return false, ClassifyStorageError(err)
	}
	return count > 0, nil
}

// ReferenceGenerator produces collision-free human-readable references:
// {PREFIX}-{YYYYMM or YYYYMMDD}-{ownerPart?}-{5-char base36 suffix}.
// Dues references carry month granularity, transaction references full
// dates; the owner part is the zero-padded id of the member (dues) or
// owning dues record (transactions).
type ReferenceGenerator struct {
	checker referenceChecker
	now     func() time.Time
}

// NewReferenceGenerator builds a generator backed by the persistence
// layer. A nil clock defaults to time.Now.
func NewReferenceGenerator(db *gorm.DB, now func() time.Time) *ReferenceGenerator {
	return newReferenceGenerator(gormReferenceChecker{db: db}, now)
}

func newReferenceGenerator(checker referenceChecker, now func() time.Time) *ReferenceGenerator {
	if now == nil {
		now = time.Now
	}
	return &ReferenceGenerator{checker: checker, now: now}
}

// Generate draws references until one is free, capped at a bounded
// number of redraws, then fails with ErrGenerationExhausted.
func (g *ReferenceGenerator) Generate(ctx context.Context, kind ReferenceKind, ownerID uint) (string, error) {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		reference := g.build(kind, ownerID, randomSuffix())

		exists, err := g.checker.Exists(ctx, kind, reference)
		if err != nil {
			return "", fmt.Errorf("checking reference uniqueness: %w", err)
		}
		if !exists {
			return reference, nil
		}
	}
	return "", ErrGenerationExhausted
}

func (g *ReferenceGenerator) build(kind ReferenceKind, ownerID uint, suffix string) string {
	prefix, ok := referencePrefixes[kind]
	if !ok {
		prefix = referencePrefixes[ReferenceKindDues]
	}

	layout := "20060102"
	if kind == ReferenceKindDues || kind == ReferenceKindEventDues {
		layout = "200601"
	}

	parts := []string{prefix, g.now().Format(layout)}
	if ownerID > 0 {
		parts = append(parts, fmt.Sprintf("%04d", ownerID))
	}
	parts = append(parts, suffix)

	return strings.Join(parts, "-")
}

func randomSuffix() string {
	var b strings.Builder
	for i := 0; i < refSuffixLen; i++ {
		b.WriteByte(refSuffixChars[rand.Intn(len(refSuffixChars))])
	}
	return b.String()
}
