package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"assogest/internal/config"
	"assogest/internal/models"
)

type fakeStore struct {
	reminders     []models.ReminderRecord
	fetchFailures int
	fetchErr      error
	fetchCalls    int
}

func (s *fakeStore) DueScheduled(ctx context.Context, now time.Time) ([]models.ReminderRecord, error) {
	s.fetchCalls++
	if s.fetchFailures > 0 {
		s.fetchFailures--
		return nil, s.fetchErr
	}
	var due []models.ReminderRecord
	for _, r := range s.reminders {
		if r.State == models.ReminderStateScheduled && !r.ScheduledAt.After(now) {
			due = append(due, r)
		}
	}
	return due, nil
}

func (s *fakeStore) SaveOutcome(ctx context.Context, reminder *models.ReminderRecord) error {
	for i := range s.reminders {
		if s.reminders[i].ID == reminder.ID {
			s.reminders[i] = *reminder
			return nil
		}
	}
	return fmt.Errorf("reminder %d not found", reminder.ID)
}

type fakeDirectory struct {
	members map[uint]*models.Member
}

func (d *fakeDirectory) Contact(ctx context.Context, memberID uint) (*models.Member, error) {
	member, ok := d.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %d not found", memberID)
	}
	return member, nil
}

type fakeGateway struct {
	failFor map[string]bool
	sent    []string
}

func (g *fakeGateway) Send(ctx context.Context, channel models.ReminderChannel, recipient, subject, body string) (DeliveryResult, error) {
	if g.failFor[recipient] {
		return DeliveryResult{}, errors.New("provider rejected the message")
	}
	g.sent = append(g.sent, recipient)
	return DeliveryResult{ProviderRef: "fake:" + recipient}, nil
}

func testProcessor(store *fakeStore, gateway *fakeGateway, clock time.Time) (*ScheduledReminderProcessor, *[]time.Duration) {
	pauses := &[]time.Duration{}
	p := &ScheduledReminderProcessor{
		store: store,
		directory: &fakeDirectory{members: map[uint]*models.Member{
			1: {ID: 1, Email: "jeanne@example.org", Phone: "0601020304"},
			2: {ID: 2, Email: "paul@example.org"},
			3: {ID: 3, Email: "zoe@example.org"},
		}},
		gateway: gateway,
		cfg: config.ProcessorConfig{
			MaxRetries:     3,
			InitialBackoff: time.Second,
		},
		now: func() time.Time { return clock },
		pause: func(ctx context.Context, d time.Duration) bool {
			*pauses = append(*pauses, d)
			return true
		},
	}
	return p, pauses
}

func scheduledReminder(id, memberID uint, channel models.ReminderChannel, at time.Time) models.ReminderRecord {
	return models.ReminderRecord{
		ID:          id,
		MemberID:    memberID,
		Channel:     channel,
		Body:        "Votre cotisation est echue.",
		ScheduledAt: at,
		State:       models.ReminderStateScheduled,
	}
}

func TestProcessorRun(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{reminders: []models.ReminderRecord{
		scheduledReminder(1, 1, models.ReminderChannelEmail, now.Add(-time.Hour)),
		scheduledReminder(2, 2, models.ReminderChannelEmail, now.Add(-time.Hour)),
		scheduledReminder(3, 3, models.ReminderChannelEmail, now.Add(-time.Hour)),
		scheduledReminder(4, 1, models.ReminderChannelEmail, now.Add(time.Hour)),
	}}
	gateway := &fakeGateway{failFor: map[string]bool{"paul@example.org": true}}
	p, _ := testProcessor(store, gateway, now)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Fetched != 3 || stats.Sent != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v; want 3 fetched, 2 sent, 1 failed", stats)
	}

	if store.reminders[1].State != models.ReminderStateFailed {
		t.Errorf("reminder 2 state = %s; want failed", store.reminders[1].State)
	}
	if store.reminders[0].State != models.ReminderStateSent || store.reminders[2].State != models.ReminderStateSent {
		t.Error("reminders 1 and 3 should be sent")
	}
	if store.reminders[3].State != models.ReminderStateScheduled {
		t.Errorf("future reminder state = %s; want still scheduled", store.reminders[3].State)
	}

	// A second run finds nothing left to do.
	stats, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if stats.Fetched != 0 {
		t.Errorf("second run fetched %d; want 0", stats.Fetched)
	}
}

func TestProcessorCallChannelNeedsNoGateway(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{reminders: []models.ReminderRecord{
		scheduledReminder(1, 1, models.ReminderChannelCall, now.Add(-time.Hour)),
	}}
	gateway := &fakeGateway{failFor: map[string]bool{"0601020304": true}}
	p, _ := testProcessor(store, gateway, now)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Sent != 1 {
		t.Errorf("stats = %+v; want the call reminder sent", stats)
	}
	if len(gateway.sent) != 0 {
		t.Errorf("gateway dispatched %v; call reminders never reach a gateway", gateway.sent)
	}
}

func TestProcessorRetriesTransientErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{
		reminders: []models.ReminderRecord{
			scheduledReminder(1, 1, models.ReminderChannelEmail, now.Add(-time.Hour)),
		},
		fetchFailures: 2,
		fetchErr:      &TransientStorageError{Err: errors.New("deadlock detected")},
	}
	gateway := &fakeGateway{}
	p, pauses := testProcessor(store, gateway, now)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Sent != 1 {
		t.Errorf("stats = %+v; want 1 sent after retries", stats)
	}
	if store.fetchCalls != 3 {
		t.Errorf("fetch calls = %d; want 3", store.fetchCalls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*pauses) != len(want) {
		t.Fatalf("pauses = %v; want %v", *pauses, want)
	}
	for i, d := range want {
		if (*pauses)[i] != d {
			t.Errorf("pause %d = %s; want %s", i, (*pauses)[i], d)
		}
	}
}

func TestProcessorAbandonsAfterRetryBudget(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{
		reminders: []models.ReminderRecord{
			scheduledReminder(1, 1, models.ReminderChannelEmail, now.Add(-time.Hour)),
		},
		fetchFailures: 10,
		fetchErr:      &TransientStorageError{Err: errors.New("lock not available")},
	}
	p, pauses := testProcessor(store, &fakeGateway{}, now)

	stats, err := p.Run(context.Background())
	if !IsTransientStorageError(err) {
		t.Fatalf("error = %v; want the transient error back", err)
	}
	if stats.Fetched != 0 || stats.Sent != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v; want zero records processed", stats)
	}
	if store.fetchCalls != 3 {
		t.Errorf("fetch calls = %d; want exactly the retry budget", store.fetchCalls)
	}
	if len(*pauses) != 2 {
		t.Errorf("pauses = %v; want backoff between attempts only", *pauses)
	}
	if store.reminders[0].State != models.ReminderStateScheduled {
		t.Error("the reminder should stay scheduled for the next run")
	}
}

func TestProcessorDoesNotRetryPermanentErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	permanent := errors.New("relation does not exist")
	store := &fakeStore{
		fetchFailures: 10,
		fetchErr:      permanent,
	}
	p, pauses := testProcessor(store, &fakeGateway{}, now)

	_, err := p.Run(context.Background())
	if !errors.Is(err, permanent) {
		t.Fatalf("error = %v; want the permanent error", err)
	}
	if store.fetchCalls != 1 {
		t.Errorf("fetch calls = %d; permanent errors are not retried", store.fetchCalls)
	}
	if len(*pauses) != 0 {
		t.Errorf("pauses = %v; want none", *pauses)
	}
}

func TestProcessorMissingRecipientFailsRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	// Member 2 has no phone number.
	store := &fakeStore{reminders: []models.ReminderRecord{
		scheduledReminder(1, 2, models.ReminderChannelSMS, now.Add(-time.Hour)),
		scheduledReminder(2, 1, models.ReminderChannelSMS, now.Add(-time.Hour)),
	}}
	gateway := &fakeGateway{}
	p, _ := testProcessor(store, gateway, now)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v; want 1 sent and 1 failed", stats)
	}
	if store.reminders[0].State != models.ReminderStateFailed {
		t.Errorf("reminder without a phone = %s; want failed", store.reminders[0].State)
	}
}
