package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"assogest/internal/models"
)

// DuesLedger owns dues records and their running balance. All balance
// and status mutations go through the recomputation here; no other code
// path writes those columns.
type DuesLedger struct {
	db   *gorm.DB
	refs *ReferenceGenerator
	now  func() time.Time
}

// NewDuesLedger builds a ledger. A nil clock defaults to time.Now.
func NewDuesLedger(db *gorm.DB, refs *ReferenceGenerator, now func() time.Time) *DuesLedger {
	if now == nil {
		now = time.Now
	}
	return &DuesLedger{db: db, refs: refs, now: now}
}

// CreateDuesInput describes a dues record to create.
type CreateDuesInput struct {
	MemberID    uint
	Kind        models.DuesKind
	Amount      decimal.Decimal
	IssueDate   time.Time
	DueDate     time.Time
	PeriodStart time.Time
	PeriodEnd   *time.Time
	RateCardID  *uint
	Metadata    map[string]interface{}
}

// Create validates and persists a new dues record with balance = amount
// and status unpaid, assigning a generated reference.
func (l *DuesLedger) Create(ctx context.Context, in CreateDuesInput) (*models.DuesRecord, error) {
	fields := map[string]string{}
	if in.Amount.Sign() <= 0 {
		fields["amount"] = "must be greater than zero"
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = l.now()
	}
	if in.DueDate.IsZero() {
		fields["due_date"] = "is required"
	} else if in.DueDate.Before(in.IssueDate) {
		fields["due_date"] = "must not be before the issue date"
	}
	if in.PeriodStart.IsZero() {
		fields["period_start"] = "is required"
	} else if in.PeriodEnd != nil && in.PeriodEnd.Before(in.PeriodStart) {
		fields["period_end"] = "must not be before the period start"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	reference, err := l.refs.Generate(ctx, DuesReferenceKind(in.Kind), in.MemberID)
	if err != nil {
		return nil, fmt.Errorf("generating dues reference: %w", err)
	}

	record := &models.DuesRecord{
		Reference:     reference,
		MemberID:      in.MemberID,
		Kind:          in.Kind,
		Amount:        in.Amount,
		Balance:       in.Amount,
		IssueDate:     in.IssueDate,
		DueDate:       in.DueDate,
		PeriodStart:   in.PeriodStart,
		PeriodEnd:     in.PeriodEnd,
		PaymentStatus: models.PaymentStatusUnpaid,
		RateCardID:    in.RateCardID,
		Metadata:      in.Metadata,
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		history := &models.DuesHistory{
			DuesRecordID: record.ID,
			Action:       models.HistoryActionCreated,
			Details: map[string]interface{}{
				"reference":      record.Reference,
				"amount":         record.Amount.String(),
				"balance":        record.Balance.String(),
				"payment_status": string(record.PaymentStatus),
				"due_date":       record.DueDate.Format("2006-01-02"),
			},
			OccurredAt: l.now(),
		}
		return tx.Create(history).Error
	})
	if err != nil {
		return nil, ClassifyStorageError(err)
	}

	return record, nil
}

// RecomputeBalance folds the transaction history into a balance and
// derived status. Payments reduce the balance, refunds restore it,
// rejections and tombstoned entries are skipped. The fold is pure and
// idempotent: replaying it over the same set always yields the same
// result, in any application order.
func RecomputeBalance(record *models.DuesRecord, transactions []models.PaymentTransaction) (decimal.Decimal, models.PaymentStatus) {
	settled := decimal.Zero
	for _, txn := range transactions {
		if txn.DeletedAt.Valid {
			continue
		}
		settled = settled.Add(txn.Signed())
	}

	balance := record.Amount.Sub(settled)
	if balance.Sign() < 0 {
		balance = decimal.Zero
	}

	return balance, models.DerivePaymentStatus(balance, record.Amount)
}

// ApplyTransactionInput describes a ledger entry to append.
type ApplyTransactionInput struct {
	Amount        decimal.Decimal
	Kind          models.TransactionKind
	Method        models.PaymentMethod
	PaidAt        time.Time
	SettlementRef string
	Comment       string
}

// ApplyTransaction persists a new transaction and recomputes the owning
// record's balance and status in the same unit of work, appending a
// history entry alongside.
func (l *DuesLedger) ApplyTransaction(ctx context.Context, duesRecordID uint, in ApplyTransactionInput) (*models.PaymentTransaction, error) {
	fields := map[string]string{}
	if in.Amount.Sign() <= 0 {
		fields["amount"] = "must be greater than zero"
	}
	switch in.Kind {
	case "":
		in.Kind = models.TransactionKindPayment
	case models.TransactionKindPayment, models.TransactionKindRefund, models.TransactionKindRejection:
	default:
		fields["kind"] = "must be one of payment, refund, rejection"
	}
	switch in.Method {
	case "", models.PaymentMethodCash, models.PaymentMethodCheck, models.PaymentMethodCard,
		models.PaymentMethodTransfer, models.PaymentMethodDirectDebit:
	default:
		fields["method"] = "must be one of cash, check, card, transfer, direct_debit"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = l.now()
	}

	reference, err := l.refs.Generate(ctx, TransactionReferenceKind(in.Kind), duesRecordID)
	if err != nil {
		return nil, fmt.Errorf("generating transaction reference: %w", err)
	}

	txn := &models.PaymentTransaction{
		Reference:     reference,
		DuesRecordID:  duesRecordID,
		Amount:        in.Amount,
		Kind:          in.Kind,
		Method:        in.Method,
		PaidAt:        in.PaidAt,
		SettlementRef: in.SettlementRef,
		Comment:       in.Comment,
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.DuesRecord
		if err := tx.First(&record, duesRecordID).Error; err != nil {
			return err
		}
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		return l.recomputeAndPersist(tx, &record, models.HistoryActionTransactionApplied, map[string]interface{}{
			"transaction_reference": txn.Reference,
			"transaction_kind":      string(txn.Kind),
			"amount":                txn.Amount.String(),
		})
	})
	if err != nil {
		return nil, ClassifyStorageError(err)
	}

	return txn, nil
}

// RemoveTransaction tombstones a transaction and recomputes the owning
// record's balance in the same unit of work.
func (l *DuesLedger) RemoveTransaction(ctx context.Context, transactionID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.PaymentTransaction
		if err := tx.First(&txn, transactionID).Error; err != nil {
			return err
		}
		var record models.DuesRecord
		if err := tx.First(&record, txn.DuesRecordID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&txn).Error; err != nil {
			return err
		}
		return l.recomputeAndPersist(tx, &record, models.HistoryActionTransactionRemoved, map[string]interface{}{
			"transaction_reference": txn.Reference,
			"transaction_kind":      string(txn.Kind),
			"amount":                txn.Amount.String(),
		})
	})
	return ClassifyStorageError(err)
}

// Recompute replays the balance fold for a record. It is safe to call
// at any time; a retried recomputation after a partial failure lands on
// the same balance and status.
func (l *DuesLedger) Recompute(ctx context.Context, duesRecordID uint) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.DuesRecord
		if err := tx.First(&record, duesRecordID).Error; err != nil {
			return err
		}
		var transactions []models.PaymentTransaction
		if err := tx.Where("dues_record_id = ?", record.ID).Find(&transactions).Error; err != nil {
			return err
		}
		balance, status := RecomputeBalance(&record, transactions)
		return tx.Model(&record).Updates(map[string]interface{}{
			"balance":        balance,
			"payment_status": status,
		}).Error
	})
	return ClassifyStorageError(err)
}

// recomputeAndPersist refreshes balance/status from the live transaction
// set and appends a history entry, all inside the caller's transaction.
func (l *DuesLedger) recomputeAndPersist(tx *gorm.DB, record *models.DuesRecord, action string, details map[string]interface{}) error {
	var transactions []models.PaymentTransaction
	if err := tx.Where("dues_record_id = ?", record.ID).Find(&transactions).Error; err != nil {
		return err
	}

	balance, status := RecomputeBalance(record, transactions)
	record.Balance = balance
	record.PaymentStatus = status

	if err := tx.Model(record).Updates(map[string]interface{}{
		"balance":        balance,
		"payment_status": status,
	}).Error; err != nil {
		return err
	}

	details["balance"] = balance.String()
	details["payment_status"] = string(status)

	history := &models.DuesHistory{
		DuesRecordID: record.ID,
		Action:       action,
		Details:      details,
		OccurredAt:   l.now(),
	}
	return tx.Create(history).Error
}

// ByReference loads a dues record with its member and live transactions.
func (l *DuesLedger) ByReference(ctx context.Context, reference string) (*models.DuesRecord, error) {
	var record models.DuesRecord
	err := l.db.WithContext(ctx).
		Preload("Member").
		Preload("Transactions").
		Where("reference = ?", reference).
		First(&record).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return &record, nil
}

// Overdue returns unsettled records past their due date.
func (l *DuesLedger) Overdue(ctx context.Context, now time.Time) ([]models.DuesRecord, error) {
	var records []models.DuesRecord
	err := l.db.WithContext(ctx).
		Preload("Member").
		Where("due_date < ? AND payment_status IN ?", now,
			[]models.PaymentStatus{models.PaymentStatusUnpaid, models.PaymentStatusPartiallyPaid}).
		Order("due_date asc").
		Find(&records).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return records, nil
}

// DueWithin returns unsettled records whose due date falls in the next
// given number of days.
func (l *DuesLedger) DueWithin(ctx context.Context, now time.Time, days int) ([]models.DuesRecord, error) {
	var records []models.DuesRecord
	limit := now.AddDate(0, 0, days)
	err := l.db.WithContext(ctx).
		Preload("Member").
		Where("due_date >= ? AND due_date <= ? AND payment_status IN ?", now, limit,
			[]models.PaymentStatus{models.PaymentStatusUnpaid, models.PaymentStatusPartiallyPaid}).
		Order("due_date asc").
		Find(&records).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return records, nil
}

// ListTransactions returns the live transactions of a dues record.
// Tombstoned entries are excluded; the variants below include them as
// separate, explicit calls.
func (l *DuesLedger) ListTransactions(ctx context.Context, duesRecordID uint) ([]models.PaymentTransaction, error) {
	var transactions []models.PaymentTransaction
	err := l.db.WithContext(ctx).
		Where("dues_record_id = ?", duesRecordID).
		Order("paid_at asc").
		Find(&transactions).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return transactions, nil
}

// ListTransactionsIncludingTombstoned returns all transactions of a
// dues record, tombstoned ones included.
func (l *DuesLedger) ListTransactionsIncludingTombstoned(ctx context.Context, duesRecordID uint) ([]models.PaymentTransaction, error) {
	var transactions []models.PaymentTransaction
	err := l.db.WithContext(ctx).Unscoped().
		Where("dues_record_id = ?", duesRecordID).
		Order("paid_at asc").
		Find(&transactions).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return transactions, nil
}

// ListTombstonedTransactions returns only tombstoned transactions of a
// dues record.
func (l *DuesLedger) ListTombstonedTransactions(ctx context.Context, duesRecordID uint) ([]models.PaymentTransaction, error) {
	var transactions []models.PaymentTransaction
	err := l.db.WithContext(ctx).Unscoped().
		Where("dues_record_id = ? AND deleted_at IS NOT NULL", duesRecordID).
		Order("paid_at asc").
		Find(&transactions).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return transactions, nil
}

// History returns the audit trail of a dues record, newest first.
func (l *DuesLedger) History(ctx context.Context, duesRecordID uint) ([]models.DuesHistory, error) {
	var entries []models.DuesHistory
	err := l.db.WithContext(ctx).
		Where("dues_record_id = ?", duesRecordID).
		Order("occurred_at desc").
		Find(&entries).Error
	if err != nil {
		return nil, ClassifyStorageError(err)
	}
	return entries, nil
}
