package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"assogest/internal/models"
)

// RateCardService manages dues rate cards and issues dues records from
// them, prorating partial coverage periods.
type RateCardService struct {
	db     *gorm.DB
	ledger *DuesLedger
	now    func() time.Time
}

func NewRateCardService(db *gorm.DB, ledger *DuesLedger, now func() time.Time) *RateCardService {
	if now == nil {
		now = time.Now
	}
	return &RateCardService{db: db, ledger: ledger, now: now}
}

// Create validates and persists a rate card.
func (s *RateCardService) Create(ctx context.Context, card *models.RateCard) error {
	fields := map[string]string{}
	if card.MemberKind == "" {
		fields["member_kind"] = "is required"
	}
	if card.Amount.Sign() <= 0 {
		fields["amount"] = "must be greater than zero"
	}
	if card.ValidFrom.IsZero() {
		fields["valid_from"] = "is required"
	} else if card.ValidUntil != nil && card.ValidUntil.Before(card.ValidFrom) {
		fields["valid_until"] = "must not be before valid_from"
	}
	switch card.Periodicity {
	case "":
		card.Periodicity = models.PeriodicityAnnual
	case models.PeriodicityMonthly, models.PeriodicityQuarterly,
		models.PeriodicityBiannual, models.PeriodicityAnnual, models.PeriodicityOneOff:
	default:
		fields["periodicity"] = "must be one of monthly, quarterly, biannual, annual, oneoff"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return ClassifyStorageError(s.db.WithContext(ctx).Create(card).Error)
}

// List returns rate cards, optionally restricted to those active at the
// given time.
func (s *RateCardService) List(ctx context.Context, activeAt *time.Time) ([]models.RateCard, error) {
	query := s.db.WithContext(ctx).Order("member_kind asc, valid_from desc")
	if activeAt != nil {
		query = query.Where("valid_from <= ? AND (valid_until IS NULL OR valid_until >= ?)", *activeAt, *activeAt)
	}
	var cards []models.RateCard
	if err := query.Find(&cards).Error; err != nil {
		return nil, ClassifyStorageError(err)
	}
	return cards, nil
}

// IssueDuesInput describes a dues record to issue from a rate card.
type IssueDuesInput struct {
	RateCardID  uint
	MemberID    uint
	PeriodStart time.Time
	PeriodEnd   *time.Time
	DueDate     time.Time
}

// IssueDues creates a dues record from a rate card. The coverage period
// defaults to one full cadence from the start date; a shorter explicit
// period is prorated.
func (s *RateCardService) IssueDues(ctx context.Context, in IssueDuesInput) (*models.DuesRecord, error) {
	var card models.RateCard
	if err := s.db.WithContext(ctx).First(&card, in.RateCardID).Error; err != nil {
		return nil, ClassifyStorageError(err)
	}

	if in.PeriodStart.IsZero() {
		in.PeriodStart = s.now()
	}
	if !card.Active(in.PeriodStart) {
		return nil, NewValidationError("rate_card_id", "rate card is not active for the requested period")
	}

	periodEnd := card.PeriodEnd(in.PeriodStart)
	if in.PeriodEnd != nil {
		periodEnd = *in.PeriodEnd
	}
	if in.DueDate.IsZero() {
		in.DueDate = in.PeriodStart.AddDate(0, 0, 30)
	}

	amount := card.ProratedAmount(in.PeriodStart, periodEnd)

	return s.ledger.Create(ctx, CreateDuesInput{
		MemberID:    in.MemberID,
		Kind:        models.DuesKindStandard,
		Amount:      amount,
		IssueDate:   s.now(),
		DueDate:     in.DueDate,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   &periodEnd,
		RateCardID:  &card.ID,
		Metadata: map[string]interface{}{
			"rate_card_member_kind": card.MemberKind,
			"rate_card_periodicity": string(card.Periodicity),
		},
	})
}
