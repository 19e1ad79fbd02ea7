package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"

	"assogest/internal/config"
	"assogest/internal/models"
)

// DefaultLocale is used when a caller does not ask for a specific one.
const DefaultLocale = "fr"

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// TemplateMatrix is the lookup table of reminder content templates,
// keyed by (channel, urgency tier, locale), with a {variable}
// substitution renderer.
type TemplateMatrix struct {
	db        *gorm.DB
	validator *ReminderValidator

	orgName       string
	orgPhone      string
	publicBaseURL string
}

// NewTemplateMatrix builds the matrix. Organization identity comes from
// the configuration, not from ambient globals.
func NewTemplateMatrix(db *gorm.DB, validator *ReminderValidator, cfg config.Config) *TemplateMatrix {
	return &TemplateMatrix{
		db:            db,
		validator:     validator,
		orgName:       cfg.OrganizationName,
		orgPhone:      cfg.OrganizationPhone,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

// Lookup returns the template for a (channel, tier, locale) key.
func (m *TemplateMatrix) Lookup(ctx context.Context, channel models.ReminderChannel, tier models.UrgencyTier, locale string) (*models.ReminderTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}

	var tpl models.ReminderTemplate
	err := m.db.WithContext(ctx).
		Where("channel = ? AND tier = ? AND locale = ?", channel, tier, locale).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s/%s/%s", ErrTemplateNotFound, channel, tier, locale)
		}
		return nil, ClassifyStorageError(err)
	}
	return &tpl, nil
}

// Save validates and upserts a template row. The body must satisfy the
// channel's content constraints at save time, and the level range must
// be well formed.
func (m *TemplateMatrix) Save(ctx context.Context, tpl *models.ReminderTemplate) error {
	if tpl.Locale == "" {
		tpl.Locale = DefaultLocale
	}
	if tpl.MinLevel < 1 {
		tpl.MinLevel = 1
	}
	if tpl.MaxLevel < tpl.MinLevel {
		return NewValidationError("max_level", "must not be below min_level")
	}

	if _, err := m.validator.ValidateContent(tpl.Channel, tpl.Subject, tpl.Body); err != nil {
		return err
	}

	var existing models.ReminderTemplate
	err := m.db.WithContext(ctx).
		Where("channel = ? AND tier = ? AND locale = ?", tpl.Channel, tpl.Tier, tpl.Locale).
		First(&existing).Error
	switch {
	case err == nil:
		tpl.ID = existing.ID
		tpl.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return ClassifyStorageError(err)
	}

	return ClassifyStorageError(m.db.WithContext(ctx).Save(tpl).Error)
}

// All returns every template row, for listing screens.
func (m *TemplateMatrix) All(ctx context.Context) ([]models.ReminderTemplate, error) {
	var templates []models.ReminderTemplate
	err := m.db.WithContext(ctx).
		Order("channel asc, tier asc, locale asc").
		Find(&templates).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return templates, nil
}

// Render substitutes {name} placeholders in the template's subject and
// body against a flat variable map. Unresolved placeholders are left
// verbatim and reported back as soft warnings.
func (m *TemplateMatrix) Render(tpl *models.ReminderTemplate, vars map[string]string) (subject, body string, warnings []string) {
	unresolved := map[string]bool{}

	substitute := func(s string) string {
		return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
			name := match[1 : len(match)-1]
			if value, ok := vars[name]; ok {
				return value
			}
			unresolved[name] = true
			return match
		})
	}

	subject = substitute(tpl.Subject)
	body = substitute(tpl.Body)

	for name := range unresolved {
		warnings = append(warnings, fmt.Sprintf("unresolved placeholder {%s}", name))
	}
	return subject, body, warnings
}

// Variables assembles the common substitution set for a dues record and
// member, plus channel-specific entries (a payment link for SMS, a
// postal address block for letters).
func (m *TemplateMatrix) Variables(record *models.DuesRecord, member *models.Member, channel models.ReminderChannel, now time.Time) map[string]string {
	vars := map[string]string{
		"first_name":         member.FirstName,
		"last_name":          member.LastName,
		"reference":          record.Reference,
		"amount":             record.Balance.StringFixed(2),
		"due_date":           record.DueDate.Format("02/01/2006"),
		"days_overdue":       strconv.Itoa(record.DaysOverdue(now)),
		"deadline":           now.AddDate(0, 0, 15).Format("02/01/2006"),
		"organization":       m.orgName,
		"organization_phone": m.orgPhone,
	}

	switch channel {
	case models.ReminderChannelSMS:
		vars["payment_link"] = m.publicBaseURL + "/p/" + record.Reference
	case models.ReminderChannelLetter:
		vars["address_block"] = member.AddressBlock()
		vars["salutation"] = member.Salutation
	}

	return vars
}
