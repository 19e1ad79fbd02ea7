package services

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"assogest/internal/models"
)

func TestRender(t *testing.T) {
	m := &TemplateMatrix{}

	tests := []struct {
		name          string
		subject       string
		body          string
		vars          map[string]string
		wantSubject   string
		wantBody      string
		wantWarnings  int
		wantVerbatims []string
	}{
		{
			name:        "all placeholders resolved",
			subject:     "Rappel {reference}",
			body:        "Bonjour {first_name}, votre solde est de {amount} euros.",
			vars:        map[string]string{"reference": "COT-202603-0001-AB12C", "first_name": "Jeanne", "amount": "60.00"},
			wantSubject: "Rappel COT-202603-0001-AB12C",
			wantBody:    "Bonjour Jeanne, votre solde est de 60.00 euros.",
		},
		{
			name:          "unresolved placeholder stays verbatim",
			body:          "Bonjour {first_name}, echeance le {unknown_date}.",
			vars:          map[string]string{"first_name": "Jeanne"},
			wantBody:      "Bonjour Jeanne, echeance le {unknown_date}.",
			wantWarnings:  1,
			wantVerbatims: []string{"{unknown_date}"},
		},
		{
			name:         "duplicate unresolved placeholder warns once",
			body:         "{missing} et encore {missing}",
			vars:         map[string]string{},
			wantBody:     "{missing} et encore {missing}",
			wantWarnings: 1,
		},
		{
			name:     "brace without a name is left alone",
			body:     "montant {} et {123}",
			vars:     map[string]string{},
			wantBody: "montant {} et {123}",
		},
		{
			name:     "no placeholders",
			body:     "Texte fixe.",
			vars:     map[string]string{"first_name": "Jeanne"},
			wantBody: "Texte fixe.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := &models.ReminderTemplate{Subject: tt.subject, Body: tt.body}

			subject, body, warnings := m.Render(tpl, tt.vars)
			if subject != tt.wantSubject {
				t.Errorf("subject = %q; want %q", subject, tt.wantSubject)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q; want %q", body, tt.wantBody)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v; want %d of them", warnings, tt.wantWarnings)
			}
			for _, verbatim := range tt.wantVerbatims {
				if !strings.Contains(body, verbatim) {
					t.Errorf("body %q should keep %q verbatim", body, verbatim)
				}
			}
		})
	}
}

func TestVariables(t *testing.T) {
	m := &TemplateMatrix{
		orgName:       "Les Amis du Quartier",
		orgPhone:      "0123456789",
		publicBaseURL: "https://dues.example.org",
	}

	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	balance, _ := decimal.NewFromString("60.50")
	record := &models.DuesRecord{
		Reference:     "COT-202602-0007-XY9Z1",
		Balance:       balance,
		DueDate:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		PaymentStatus: models.PaymentStatusPartiallyPaid,
	}
	member := &models.Member{
		FirstName:   "Jeanne",
		LastName:    "Martin",
		Salutation:  "Madame",
		AddressLine: "12 rue des Lilas",
		PostalCode:  "75011",
		City:        "Paris",
	}

	vars := m.Variables(record, member, models.ReminderChannelEmail, now)

	expectations := map[string]string{
		"first_name":         "Jeanne",
		"last_name":          "Martin",
		"reference":          "COT-202602-0007-XY9Z1",
		"amount":             "60.50",
		"due_date":           "10/03/2026",
		"days_overdue":       "10",
		"deadline":           "04/04/2026",
		"organization":       "Les Amis du Quartier",
		"organization_phone": "0123456789",
	}
	for name, want := range expectations {
		if got := vars[name]; got != want {
			t.Errorf("vars[%q] = %q; want %q", name, got, want)
		}
	}
	if _, present := vars["payment_link"]; present {
		t.Error("email variables should not carry a payment link")
	}

	smsVars := m.Variables(record, member, models.ReminderChannelSMS, now)
	if got, want := smsVars["payment_link"], "https://dues.example.org/p/COT-202602-0007-XY9Z1"; got != want {
		t.Errorf("payment_link = %q; want %q", got, want)
	}

	letterVars := m.Variables(record, member, models.ReminderChannelLetter, now)
	if got := letterVars["address_block"]; !strings.Contains(got, "12 rue des Lilas") || !strings.Contains(got, "75011 Paris") {
		t.Errorf("address_block = %q; want the postal address lines", got)
	}
	if got := letterVars["salutation"]; got != "Madame" {
		t.Errorf("salutation = %q; want Madame", got)
	}

	// The variable set is stable; templates rely on these names.
	var names []string
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) != len(expectations) {
		t.Errorf("email variable set = %v; want exactly %d entries", names, len(expectations))
	}
}
