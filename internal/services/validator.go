package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"assogest/internal/config"
	"assogest/internal/models"
)

type subjectRule int

const (
	subjectOptional subjectRule = iota
	subjectRequired
	subjectForbidden
)

// sendWindow restricts when a channel may dispatch. A zero StartHour and
// EndHour means no hour restriction.
type sendWindow struct {
	weekdaysOnly bool
	startHour    int
	endHour      int
}

// channelConstraints is one row of the constraint table. Adding a
// channel means adding a row here, not a new branch in the validator.
type channelConstraints struct {
	minLength          int
	maxLength          int
	subject            subjectRule
	emojiWeighted      bool
	forbiddenTags      []string
	asciiCurrencyOnly  bool
	flagLongLinks      bool
	noMarkup           bool
	noEmoji            bool
	requireSalutation  bool
	requireObjectLabel bool
	requireClosing     bool
	window             sendWindow
}

func defaultConstraintTable() map[models.ReminderChannel]channelConstraints {
	return map[models.ReminderChannel]channelConstraints{
		models.ReminderChannelEmail: {
			minLength:     200,
			maxLength:     5000,
			subject:       subjectRequired,
			forbiddenTags: []string{"<script", "<iframe", "<embed"},
		},
		models.ReminderChannelSMS: {
			minLength:         10,
			maxLength:         160,
			subject:           subjectForbidden,
			emojiWeighted:     true,
			asciiCurrencyOnly: true,
			flagLongLinks:     true,
			window:            sendWindow{weekdaysOnly: true, startHour: 8, endHour: 20},
		},
		models.ReminderChannelLetter: {
			minLength:          300,
			maxLength:          3000,
			subject:            subjectRequired,
			noMarkup:           true,
			noEmoji:            true,
			requireSalutation:  true,
			requireObjectLabel: true,
			requireClosing:     true,
			window:             sendWindow{weekdaysOnly: true},
		},
		// Call reminders carry notes for a human caller; no content or
		// scheduling constraints apply.
		models.ReminderChannelCall: {},
	}
}

var (
	longLinkPattern   = regexp.MustCompile(`https?://\S{25,}`)
	markupTagPattern  = regexp.MustCompile(`<\s*/?\s*[a-zA-Z]`)
	letterClosings    = []string{"Cordialement", "Salutations distinguées", "Respectueusement", "Sincères salutations"}
	currencySymbols   = []rune{'€', '£', '¥', '¢'}
	salutationMarkers = []string{"Madame", "Monsieur"}
)

// ReminderValidator applies the per-channel constraint table to a
// candidate reminder before it is persisted or sent.
type ReminderValidator struct {
	table map[models.ReminderChannel]channelConstraints
}

// NewReminderValidator builds a validator from the default constraint
// table, with sending-window hours taken from the configuration.
func NewReminderValidator(cfg config.Config) *ReminderValidator {
	table := defaultConstraintTable()

	sms := table[models.ReminderChannelSMS]
	sms.window.startHour = cfg.SMSWindow.StartHour
	sms.window.endHour = cfg.SMSWindow.EndHour
	table[models.ReminderChannelSMS] = sms

	return &ReminderValidator{table: table}
}

// Validate checks a candidate reminder's content and, when a scheduled
// time is given, the channel's dispatch window. Hard violations come
// back as a *ValidationError; soft findings (unshortened long links)
// come back as warnings.
func (v *ReminderValidator) Validate(channel models.ReminderChannel, subject, body string, scheduledAt *time.Time, now time.Time) ([]string, error) {
	cons, ok := v.table[channel]
	if !ok {
		return nil, NewValidationError("channel", fmt.Sprintf("unsupported channel %q", channel))
	}

	fields := map[string]string{}
	var warnings []string

	if cons.maxLength > 0 {
		length := weightedLength(body, cons.emojiWeighted)
		if length < cons.minLength {
			fields["body"] = fmt.Sprintf("too short: %d of at least %d characters", length, cons.minLength)
		} else if length > cons.maxLength {
			fields["body"] = fmt.Sprintf("too long: %d of at most %d characters", length, cons.maxLength)
		}
	}

	switch cons.subject {
	case subjectRequired:
		if strings.TrimSpace(subject) == "" {
			fields["subject"] = "is required for this channel"
		}
	case subjectForbidden:
		if strings.TrimSpace(subject) != "" {
			fields["subject"] = "is not allowed for this channel"
		}
	}

	lowerBody := strings.ToLower(body)
	for _, tag := range cons.forbiddenTags {
		if strings.Contains(lowerBody, tag) {
			fields["body"] = fmt.Sprintf("contains forbidden element %q", strings.TrimPrefix(tag, "<"))
			break
		}
	}

	if cons.asciiCurrencyOnly {
		for _, sym := range currencySymbols {
			if strings.ContainsRune(body, sym) {
				fields["body"] = fmt.Sprintf("contains non-ASCII currency symbol %q, spell out the currency instead", sym)
				break
			}
		}
	}

	if cons.flagLongLinks && longLinkPattern.MatchString(body) {
		warnings = append(warnings, "body contains a long unshortened link")
	}

	if cons.noMarkup && markupTagPattern.MatchString(body) {
		fields["body"] = "markup is not allowed for this channel"
	}

	if cons.noEmoji && containsEmoji(body) {
		fields["body"] = "emoji are not allowed for this channel"
	}

	if cons.requireSalutation && !containsAny(body, salutationMarkers) {
		fields["body"] = `missing salutation ("Madame" or "Monsieur")`
	}

	if cons.requireObjectLabel && !strings.Contains(body, "Objet") {
		fields["body"] = `missing the "Objet" subject label`
	}

	if cons.requireClosing && !containsAny(body, letterClosings) {
		fields["body"] = "missing a closing formula"
	}

	if scheduledAt != nil {
		if scheduledAt.Before(now) {
			fields["scheduled_at"] = "must be in the future"
		} else {
			if cons.window.weekdaysOnly && isWeekend(*scheduledAt) {
				fields["scheduled_at"] = "falls on a weekend, not allowed for this channel"
			}
			if cons.window.endHour > cons.window.startHour {
				hour := scheduledAt.Hour()
				if hour < cons.window.startHour || hour >= cons.window.endHour {
					fields["scheduled_at"] = fmt.Sprintf("outside the %02d:00-%02d:00 sending window", cons.window.startHour, cons.window.endHour)
				}
			}
		}
	}

	if len(fields) > 0 {
		return warnings, &ValidationError{Fields: fields}
	}
	return warnings, nil
}

// ValidateContent checks content constraints only, without a dispatch
// time. Used for template rows at save time and for immediate sends.
func (v *ReminderValidator) ValidateContent(channel models.ReminderChannel, subject, body string) ([]string, error) {
	return v.Validate(channel, subject, body, nil, time.Time{})
}

// weightedLength counts runes, with emoji counting double when the
// channel says so (they consume two characters of an SMS segment).
func weightedLength(s string, emojiDouble bool) int {
	length := 0
	for _, r := range s {
		if emojiDouble && isEmoji(r) {
			length += 2
		} else {
			length++
		}
	}
	return length
}

func isEmoji(r rune) bool {
	return (r >= 0x1F000 && r <= 0x1FAFF) ||
		(r >= 0x2600 && r <= 0x27BF) ||
		r == 0x2764 || r == 0xFE0F
}

func containsEmoji(s string) bool {
	for _, r := range s {
		if isEmoji(r) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
