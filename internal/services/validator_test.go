package services

import (
	"strings"
	"testing"
	"time"

	"assogest/internal/config"
	"assogest/internal/models"
)

func testValidator() *ReminderValidator {
	cfg := config.Config{SMSWindow: config.SendWindowConfig{StartHour: 8, EndHour: 20}}
	return NewReminderValidator(cfg)
}

func validLetterBody() string {
	return "Objet : rappel de cotisation\n\nMadame, Monsieur,\n\n" +
		strings.Repeat("Votre cotisation demeure impayée à ce jour. ", 7) +
		"\n\nCordialement,\nL'association"
}

func TestValidateContent(t *testing.T) {
	v := testValidator()
	emailBody := strings.Repeat("Votre cotisation reste impayée. ", 10)

	tests := []struct {
		name      string
		channel   models.ReminderChannel
		subject   string
		body      string
		wantField string
	}{
		{
			name:    "valid email",
			channel: models.ReminderChannelEmail,
			subject: "Rappel de cotisation",
			body:    emailBody,
		},
		{
			name:      "email without subject",
			channel:   models.ReminderChannelEmail,
			body:      emailBody,
			wantField: "subject",
		},
		{
			name:      "email too short",
			channel:   models.ReminderChannelEmail,
			subject:   "Rappel",
			body:      "Trop court.",
			wantField: "body",
		},
		{
			name:      "email with script tag",
			channel:   models.ReminderChannelEmail,
			subject:   "Rappel",
			body:      emailBody + "<script>alert(1)</script>",
			wantField: "body",
		},
		{
			name:      "email with iframe",
			channel:   models.ReminderChannelEmail,
			subject:   "Rappel",
			body:      emailBody + "<IFRAME src=x>",
			wantField: "body",
		},
		{
			name:    "valid sms at the 160 limit",
			channel: models.ReminderChannelSMS,
			body:    strings.Repeat("a", 160),
		},
		{
			name:      "sms one char over",
			channel:   models.ReminderChannelSMS,
			body:      strings.Repeat("a", 161),
			wantField: "body",
		},
		{
			name:    "sms emoji counts double within limit",
			channel: models.ReminderChannelSMS,
			body:    strings.Repeat("a", 158) + "\U0001F600",
		},
		{
			name:      "sms emoji counts double over limit",
			channel:   models.ReminderChannelSMS,
			body:      strings.Repeat("a", 159) + "\U0001F600",
			wantField: "body",
		},
		{
			name:      "sms too short",
			channel:   models.ReminderChannelSMS,
			body:      "Rappel",
			wantField: "body",
		},
		{
			name:      "sms with subject",
			channel:   models.ReminderChannelSMS,
			subject:   "Rappel",
			body:      "Votre cotisation est echue.",
			wantField: "subject",
		},
		{
			name:      "sms with euro symbol",
			channel:   models.ReminderChannelSMS,
			body:      "Votre cotisation de 30€ est echue.",
			wantField: "body",
		},
		{
			name:    "valid letter",
			channel: models.ReminderChannelLetter,
			subject: "Rappel",
			body:    validLetterBody(),
		},
		{
			name:      "letter without salutation",
			channel:   models.ReminderChannelLetter,
			subject:   "Rappel",
			body:      strings.Replace(validLetterBody(), "Madame, Monsieur,", "Bonjour,", 1),
			wantField: "body",
		},
		{
			name:      "letter without object label",
			channel:   models.ReminderChannelLetter,
			subject:   "Rappel",
			body:      strings.Replace(validLetterBody(), "Objet :", "Sujet :", 1),
			wantField: "body",
		},
		{
			name:      "letter without closing formula",
			channel:   models.ReminderChannelLetter,
			subject:   "Rappel",
			body:      strings.Replace(validLetterBody(), "Cordialement", "Au revoir", 1),
			wantField: "body",
		},
		{
			name:      "letter with markup",
			channel:   models.ReminderChannelLetter,
			subject:   "Rappel",
			body:      strings.Replace(validLetterBody(), "impayée", "<b>impayée", 1),
			wantField: "body",
		},
		{
			name:      "letter with emoji",
			channel:   models.ReminderChannelLetter,
			subject:   "Rappel",
			body:      validLetterBody() + " \U0001F600",
			wantField: "body",
		},
		{
			name:    "call has no content constraints",
			channel: models.ReminderChannelCall,
			body:    "",
		},
		{
			name:      "unknown channel",
			channel:   models.ReminderChannel("pigeon"),
			body:      "Votre cotisation est echue.",
			wantField: "channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateContent(tt.channel, tt.subject, tt.body)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected a ValidationError, got %v", err)
			}
			if _, present := ve.Fields[tt.wantField]; !present {
				t.Errorf("fields = %v; want a message for %q", ve.Fields, tt.wantField)
			}
		})
	}
}

func TestValidateScheduling(t *testing.T) {
	v := testValidator()
	// A Monday.
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	smsBody := "Votre cotisation est echue, merci de regulariser."

	tests := []struct {
		name        string
		channel     models.ReminderChannel
		subject     string
		body        string
		scheduledAt time.Time
		wantField   string
	}{
		{
			name:        "sms on a weekday afternoon",
			channel:     models.ReminderChannelSMS,
			body:        smsBody,
			scheduledAt: time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
		},
		{
			name:        "sms on a saturday",
			channel:     models.ReminderChannelSMS,
			body:        smsBody,
			scheduledAt: time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC),
			wantField:   "scheduled_at",
		},
		{
			name:        "sms before the window opens",
			channel:     models.ReminderChannelSMS,
			body:        smsBody,
			scheduledAt: time.Date(2026, 3, 3, 7, 59, 0, 0, time.UTC),
			wantField:   "scheduled_at",
		},
		{
			name:        "sms at the window close",
			channel:     models.ReminderChannelSMS,
			body:        smsBody,
			scheduledAt: time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC),
			wantField:   "scheduled_at",
		},
		{
			name:        "in the past",
			channel:     models.ReminderChannelSMS,
			body:        smsBody,
			scheduledAt: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
			wantField:   "scheduled_at",
		},
		{
			name:        "letter on a sunday",
			channel:     models.ReminderChannelLetter,
			subject:     "Rappel",
			body:        validLetterBody(),
			scheduledAt: time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC),
			wantField:   "scheduled_at",
		},
		{
			name:        "letter has no hour window",
			channel:     models.ReminderChannelLetter,
			subject:     "Rappel",
			body:        validLetterBody(),
			scheduledAt: time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC),
		},
		{
			name:        "email at night is fine",
			channel:     models.ReminderChannelEmail,
			subject:     "Rappel",
			body:        strings.Repeat("Votre cotisation reste impayée. ", 10),
			scheduledAt: time.Date(2026, 3, 8, 3, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduledAt := tt.scheduledAt
			_, err := v.Validate(tt.channel, tt.subject, tt.body, &scheduledAt, now)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected a ValidationError, got %v", err)
			}
			if _, present := ve.Fields[tt.wantField]; !present {
				t.Errorf("fields = %v; want a message for %q", ve.Fields, tt.wantField)
			}
		})
	}
}

func TestValidateLongLinkWarning(t *testing.T) {
	v := testValidator()
	body := "Reglement en ligne: https://paiement.association-exemple.fr/cotisations/2026/reglement"

	warnings, err := v.ValidateContent(models.ReminderChannelSMS, "", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v; want exactly one", warnings)
	}
	if !strings.Contains(warnings[0], "link") {
		t.Errorf("warning = %q; want a long-link warning", warnings[0])
	}
}
