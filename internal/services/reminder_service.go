package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"assogest/internal/config"
	"assogest/internal/models"
)

// ReminderService creates reminder records against overdue dues
// records, validating them against the template matrix before anything
// is persisted or sent.
type ReminderService struct {
	db        *gorm.DB
	matrix    *TemplateMatrix
	validator *ReminderValidator
	directory MemberDirectory
	gateway   DeliveryGateway
	now       func() time.Time

	emailResendInterval time.Duration
}

// NewReminderService builds the service. A nil clock defaults to
// time.Now.
func NewReminderService(db *gorm.DB, matrix *TemplateMatrix, validator *ReminderValidator, directory MemberDirectory, gateway DeliveryGateway, cfg config.Config, now func() time.Time) *ReminderService {
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		db:        db,
		matrix:    matrix,
		validator: validator,
		directory: directory,
		gateway:   gateway,
		now:       now,

		emailResendInterval: cfg.EmailResendInterval,
	}
}

// ScheduleReminderInput describes a reminder to create. Tier and Level
// are optional: an empty tier is recommended from the days overdue, a
// zero level continues the record's escalation sequence.
type ScheduleReminderInput struct {
	DuesReference string
	Channel       models.ReminderChannel
	Tier          models.UrgencyTier
	Level         int
	Locale        string
	ScheduledAt   time.Time
}

// Schedule renders, validates and persists a reminder in state
// scheduled. Soft findings (unresolved placeholders, level not
// escalating) come back as warnings alongside the created record.
func (s *ReminderService) Schedule(ctx context.Context, in ScheduleReminderInput) (*models.ReminderRecord, []string, error) {
	record, member, warnings, err := s.prepare(ctx, &in)
	if err != nil {
		return nil, warnings, err
	}

	subject, body, renderWarnings, err := s.renderContent(ctx, record, member, in)
	warnings = append(warnings, renderWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	scheduledAt := in.ScheduledAt
	valWarnings, err := s.validator.Validate(in.Channel, subject, body, &scheduledAt, s.now())
	warnings = append(warnings, valWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	reminder := &models.ReminderRecord{
		PublicID:     uuid.New().String(),
		DuesRecordID: record.ID,
		MemberID:     record.MemberID,
		Channel:      in.Channel,
		Tier:         in.Tier,
		Level:        in.Level,
		Subject:      subject,
		Body:         body,
		ScheduledAt:  scheduledAt,
		State:        models.ReminderStateScheduled,
	}
	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return nil, warnings, ClassifyStorageError(err)
	}

	return reminder, warnings, nil
}

// SendNow renders, validates and dispatches a reminder immediately,
// bypassing the scheduling window checks. The record lands directly in
// state sent or failed.
func (s *ReminderService) SendNow(ctx context.Context, in ScheduleReminderInput) (*models.ReminderRecord, []string, error) {
	record, member, warnings, err := s.prepare(ctx, &in)
	if err != nil {
		return nil, warnings, err
	}

	subject, body, renderWarnings, err := s.renderContent(ctx, record, member, in)
	warnings = append(warnings, renderWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	valWarnings, err := s.validator.ValidateContent(in.Channel, subject, body)
	warnings = append(warnings, valWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	now := s.now()
	reminder := &models.ReminderRecord{
		PublicID:     uuid.New().String(),
		DuesRecordID: record.ID,
		MemberID:     record.MemberID,
		Channel:      in.Channel,
		Tier:         in.Tier,
		Level:        in.Level,
		Subject:      subject,
		Body:         body,
		ScheduledAt:  now,
		State:        models.ReminderStateScheduled,
	}

	recipient, err := recipientFor(in.Channel, member)
	if err != nil {
		_ = reminder.MarkFailed(err.Error())
	} else if in.Channel == models.ReminderChannelCall {
		// Call reminders are worked by a human; recording them is the
		// dispatch.
		_ = reminder.MarkSent(now, "")
	} else {
		result, sendErr := s.gateway.Send(ctx, in.Channel, recipient, subject, body)
		if sendErr != nil {
			_ = reminder.MarkFailed(sendErr.Error())
		} else {
			_ = reminder.MarkSent(now, result.ProviderRef)
		}
	}

	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return nil, warnings, ClassifyStorageError(err)
	}

	return reminder, warnings, nil
}

// MarkRead applies an external read-receipt signal to a sent reminder,
// looked up by its public id.
func (s *ReminderService) MarkRead(ctx context.Context, publicID string) (*models.ReminderRecord, error) {
	var reminder models.ReminderRecord
	if err := s.db.WithContext(ctx).Where("public_id = ?", publicID).First(&reminder).Error; err != nil {
		return nil, ClassifyStorageError(err)
	}
	if err := reminder.MarkRead(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&reminder).Update("state", reminder.State).Error; err != nil {
		return nil, ClassifyStorageError(err)
	}
	return &reminder, nil
}

// List returns reminders, optionally filtered by state, newest first.
func (s *ReminderService) List(ctx context.Context, state models.ReminderState, limit int) ([]models.ReminderRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := s.db.WithContext(ctx).Order("scheduled_at desc").Limit(limit)
	if state != "" {
		query = query.Where("state = ?", state)
	}
	var reminders []models.ReminderRecord
	if err := query.Find(&reminders).Error; err != nil {
		return nil, ClassifyStorageError(err)
	}
	return reminders, nil
}

// prepare loads the dues record and member, then fills in tier and
// level defaults, returning a warning when the caller's level does not
// escalate past the previous reminders.
func (s *ReminderService) prepare(ctx context.Context, in *ScheduleReminderInput) (*models.DuesRecord, *models.Member, []string, error) {
	var record models.DuesRecord
	err := s.db.WithContext(ctx).Where("reference = ?", in.DuesReference).First(&record).Error
	if err != nil {
		return nil, nil, nil, ClassifyStorageError(err)
	}

	member, err := s.directory.Contact(ctx, record.MemberID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving member %d: %w", record.MemberID, err)
	}

	now := s.now()
	if in.Tier == "" {
		in.Tier = models.RecommendTier(record.DaysOverdue(now))
	}

	if err := s.checkEmailResendInterval(ctx, record.ID, in, now); err != nil {
		return nil, nil, nil, err
	}

	var lastLevel int
	err = s.db.WithContext(ctx).Model(&models.ReminderRecord{}).
		Where("dues_record_id = ?", record.ID).
		Select("COALESCE(MAX(level), 0)").
		Scan(&lastLevel).Error
	if err != nil {
		return nil, nil, nil, ClassifyStorageError(err)
	}

	var warnings []string
	if in.Level == 0 {
		in.Level = lastLevel + 1
	} else if in.Level <= lastLevel {
		warnings = append(warnings, fmt.Sprintf("escalation level %d does not exceed the previous level %d", in.Level, lastLevel))
	}

	return &record, member, warnings, nil
}

func (s *ReminderService) renderContent(ctx context.Context, record *models.DuesRecord, member *models.Member, in ScheduleReminderInput) (subject, body string, warnings []string, err error) {
	tpl, err := s.matrix.Lookup(ctx, in.Channel, in.Tier, in.Locale)
	if err != nil {
		return "", "", nil, err
	}
	if !tpl.CoversLevel(in.Level) {
		warnings = append(warnings, fmt.Sprintf("template covers levels %d-%d, reminder is level %d", tpl.MinLevel, tpl.MaxLevel, in.Level))
	}

	vars := s.matrix.Variables(record, member, in.Channel, s.now())
	subject, body, renderWarnings := s.matrix.Render(tpl, vars)
	warnings = append(warnings, renderWarnings...)
	return subject, body, warnings, nil
}

// checkEmailResendInterval rejects a new email reminder when the dues
// record already has one sent or scheduled inside the minimum re-send
// interval. Other channels carry their restrictions in the validator's
// constraint table; this one needs the record's reminder history.
func (s *ReminderService) checkEmailResendInterval(ctx context.Context, duesRecordID uint, in *ScheduleReminderInput, now time.Time) error {
	if in.Channel != models.ReminderChannelEmail || s.emailResendInterval <= 0 {
		return nil
	}

	var prev models.ReminderRecord
	err := s.db.WithContext(ctx).
		Where("dues_record_id = ? AND channel = ? AND state IN ?", duesRecordID, models.ReminderChannelEmail,
			[]models.ReminderState{models.ReminderStateScheduled, models.ReminderStateSent, models.ReminderStateRead}).
		Order("scheduled_at desc").
		First(&prev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return ClassifyStorageError(err)
	}

	last := prev.ScheduledAt
	if prev.SentAt != nil {
		last = *prev.SentAt
	}
	next := in.ScheduledAt
	if next.IsZero() {
		next = now
	}
	if violatesResendInterval(last, next, s.emailResendInterval) {
		return NewValidationError("channel",
			fmt.Sprintf("an email reminder for this record was already sent or scheduled within the last %s", s.emailResendInterval))
	}
	return nil
}

// violatesResendInterval reports whether a new attempt at next comes too
// soon after the previous attempt at last.
func violatesResendInterval(last, next time.Time, interval time.Duration) bool {
	if interval <= 0 || last.IsZero() {
		return false
	}
	return next.Sub(last) < interval
}

// recipientFor picks the delivery address for a channel from the
// member's contact fields.
func recipientFor(channel models.ReminderChannel, member *models.Member) (string, error) {
	switch channel {
	case models.ReminderChannelEmail:
		if member.Email == "" {
			return "", fmt.Errorf("member %d has no email address", member.ID)
		}
		return member.Email, nil
	case models.ReminderChannelSMS, models.ReminderChannelCall:
		if member.Phone == "" {
			return "", fmt.Errorf("member %d has no phone number", member.ID)
		}
		return member.Phone, nil
	case models.ReminderChannelLetter:
		if member.AddressLine == "" {
			return "", fmt.Errorf("member %d has no postal address", member.ID)
		}
		return member.AddressBlock(), nil
	default:
		return "", fmt.Errorf("unsupported channel %q", channel)
	}
}
