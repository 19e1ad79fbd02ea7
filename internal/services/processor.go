package services

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"assogest/internal/config"
	"assogest/internal/models"
)

const processorLockKey = "reminder_processor:run_lock"

// reminderStore is the processor's view of persistence: the due batch
// and the per-record outcome write.
type reminderStore interface {
	DueScheduled(ctx context.Context, now time.Time) ([]models.ReminderRecord, error)
	SaveOutcome(ctx context.Context, reminder *models.ReminderRecord) error
}

type gormReminderStore struct {
	db *gorm.DB
}

func (s gormReminderStore) DueScheduled(ctx context.Context, now time.Time) ([]models.ReminderRecord, error) {
	var reminders []models.ReminderRecord
	err := s.db.WithContext(ctx).
		Where("state = ? AND scheduled_at <= ?", models.ReminderStateScheduled, now).
		Order("scheduled_at asc").
		Find(&reminders).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return reminders, nil
}

func (s gormReminderStore) SaveOutcome(ctx context.Context, reminder *models.ReminderRecord) error {
	err := s.db.WithContext(ctx).Model(reminder).Updates(map[string]interface{}{
		"state":   reminder.State,
		"sent_at": reminder.SentAt,
		"result":  reminder.Result,
	}).Error
	return ClassifyStorageError(err)
}

// RunStats summarizes one processor run.
type RunStats struct {
	Fetched int
	Sent    int
	Failed  int
}

// ScheduledReminderProcessor drives due reminders to a terminal state.
// It runs the whole batch fetch+apply inside a retry loop with
// exponential backoff for transient storage contention; an individual
// record's dispatch failure marks only that record failed and the batch
// continues. Semantics are at-least-once: an abandoned run is picked up
// again at the next interval.
type ScheduledReminderProcessor struct {
	store     reminderStore
	directory MemberDirectory
	gateway   DeliveryGateway
	cache     *Cache
	cfg       config.ProcessorConfig
	now       func() time.Time
	pause     func(ctx context.Context, d time.Duration) bool
}

// NewScheduledReminderProcessor builds the processor. The cache is
// optional; when present it provides a cross-process run lock so
// overlapping runs are skipped rather than doubled.
func NewScheduledReminderProcessor(db *gorm.DB, directory MemberDirectory, gateway DeliveryGateway, cache *Cache, cfg config.ProcessorConfig, now func() time.Time) *ScheduledReminderProcessor {
	if now == nil {
		now = time.Now
	}
	return &ScheduledReminderProcessor{
		store:     gormReminderStore{db: db},
		directory: directory,
		gateway:   gateway,
		cache:     cache,
		cfg:       cfg,
		now:       now,
		pause:     sleepContext,
	}
}

// Run executes one processing pass. Transient storage contention is
// retried with exponential backoff up to the configured attempt count;
// exhausting the retries abandons the run with zero records processed.
func (p *ScheduledReminderProcessor) Run(ctx context.Context) (RunStats, error) {
	if p.cache != nil {
		acquired, err := p.cache.AcquireLock(ctx, processorLockKey, p.cfg.LockTTL)
		if err != nil {
			log.Printf("Processor lock unavailable, continuing without it: %v", err)
		} else if !acquired {
			log.Println("Another processor run holds the lock, skipping this pass")
			return RunStats{}, nil
		} else {
			defer func() {
				if err := p.cache.ReleaseLock(context.Background(), processorLockKey); err != nil {
					log.Printf("Failed to release processor lock: %v", err)
				}
			}()
		}
	}

	retries := p.cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := p.cfg.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		stats, err := p.runBatch(ctx)
		if err == nil {
			return stats, nil
		}
		if !IsTransientStorageError(err) {
			return stats, err
		}
		lastErr = err
		if attempt < retries {
			log.Printf("Storage busy, attempt %d/%d, backing off %s", attempt, retries, backoff)
			if !p.pause(ctx, backoff) {
				return RunStats{}, ctx.Err()
			}
			backoff *= 2
		}
	}

	log.Printf("Abandoning reminder run after %d attempts: %v", retries, lastErr)
	return RunStats{}, lastErr
}

func (p *ScheduledReminderProcessor) runBatch(ctx context.Context) (RunStats, error) {
	var stats RunStats

	reminders, err := p.store.DueScheduled(ctx, p.now())
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(reminders)

	for i := range reminders {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		reminder := &reminders[i]
		p.dispatch(ctx, reminder)

		if err := p.store.SaveOutcome(ctx, reminder); err != nil {
			if IsTransientStorageError(err) {
				// Bubble up so the whole batch retries; already-saved
				// records are terminal and won't be re-fetched.
				return stats, err
			}
			log.Printf("Failed to persist outcome for reminder %d: %v", reminder.ID, err)
			continue
		}

		switch reminder.State {
		case models.ReminderStateSent:
			stats.Sent++
		case models.ReminderStateFailed:
			stats.Failed++
		}
	}

	if stats.Fetched > 0 {
		log.Printf("Reminder run: %d fetched, %d sent, %d failed", stats.Fetched, stats.Sent, stats.Failed)
	}
	return stats, nil
}

// dispatch drives a single reminder to sent or failed. Errors here
// never abort the batch.
func (p *ScheduledReminderProcessor) dispatch(ctx context.Context, reminder *models.ReminderRecord) {
	now := p.now()

	if reminder.Channel == models.ReminderChannelCall {
		// Call reminders are handed to a human caller; recording the
		// attempt is the dispatch.
		_ = reminder.MarkSent(now, "")
		return
	}

	member, err := p.directory.Contact(ctx, reminder.MemberID)
	if err != nil {
		_ = reminder.MarkFailed("resolving member: " + err.Error())
		return
	}

	recipient, err := recipientFor(reminder.Channel, member)
	if err != nil {
		_ = reminder.MarkFailed(err.Error())
		return
	}

	result, err := p.gateway.Send(ctx, reminder.Channel, recipient, reminder.Subject, reminder.Body)
	if err != nil {
		_ = reminder.MarkFailed(err.Error())
		return
	}
	_ = reminder.MarkSent(now, result.ProviderRef)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
