package models

import (
	"errors"
	"testing"
	"time"
)

func TestReminderTransitions(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		from      ReminderState
		apply     func(r *ReminderRecord) error
		wantState ReminderState
		wantErr   bool
	}{
		{
			name:      "scheduled to sent",
			from:      ReminderStateScheduled,
			apply:     func(r *ReminderRecord) error { return r.MarkSent(now, "provider-1") },
			wantState: ReminderStateSent,
		},
		{
			name:      "scheduled to failed",
			from:      ReminderStateScheduled,
			apply:     func(r *ReminderRecord) error { return r.MarkFailed("mailbox full") },
			wantState: ReminderStateFailed,
		},
		{
			name:      "sent to read",
			from:      ReminderStateSent,
			apply:     func(r *ReminderRecord) error { return r.MarkRead() },
			wantState: ReminderStateRead,
		},
		{
			name:      "sent cannot be sent again",
			from:      ReminderStateSent,
			apply:     func(r *ReminderRecord) error { return r.MarkSent(now, "") },
			wantState: ReminderStateSent,
			wantErr:   true,
		},
		{
			name:      "failed is terminal",
			from:      ReminderStateFailed,
			apply:     func(r *ReminderRecord) error { return r.MarkSent(now, "") },
			wantState: ReminderStateFailed,
			wantErr:   true,
		},
		{
			name:      "failed cannot be read",
			from:      ReminderStateFailed,
			apply:     func(r *ReminderRecord) error { return r.MarkRead() },
			wantState: ReminderStateFailed,
			wantErr:   true,
		},
		{
			name:      "scheduled cannot be read",
			from:      ReminderStateScheduled,
			apply:     func(r *ReminderRecord) error { return r.MarkRead() },
			wantState: ReminderStateScheduled,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ReminderRecord{State: tt.from}
			err := tt.apply(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("error = %v; want ErrInvalidTransition", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.State != tt.wantState {
				t.Errorf("state = %s; want %s", r.State, tt.wantState)
			}
		})
	}
}

func TestMarkSentStampsTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r := &ReminderRecord{State: ReminderStateScheduled}

	if err := r.MarkSent(now, "ref-42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SentAt == nil || !r.SentAt.Equal(now) {
		t.Errorf("SentAt = %v; want %v", r.SentAt, now)
	}
	if r.Result != "ref-42" {
		t.Errorf("Result = %q; want %q", r.Result, "ref-42")
	}
}

func TestRecommendTier(t *testing.T) {
	tests := []struct {
		daysOverdue int
		want        UrgencyTier
	}{
		{0, UrgencyTierStandard},
		{5, UrgencyTierStandard},
		{7, UrgencyTierStandard},
		{8, UrgencyTierUrgent},
		{10, UrgencyTierUrgent},
		{21, UrgencyTierUrgent},
		{22, UrgencyTierFormal},
		{30, UrgencyTierFormal},
		{365, UrgencyTierFormal},
	}

	for _, tt := range tests {
		if got := RecommendTier(tt.daysOverdue); got != tt.want {
			t.Errorf("RecommendTier(%d) = %s; want %s", tt.daysOverdue, got, tt.want)
		}
	}
}
