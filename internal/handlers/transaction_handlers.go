package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"assogest/internal/models"
	"assogest/internal/services"
)

// TransactionHandler serves ledger entry endpoints for a dues record.
type TransactionHandler struct {
	ledger *services.DuesLedger
}

func NewTransactionHandler(ledger *services.DuesLedger) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// StoreTransactionRequest is the payload for appending a ledger entry.
type StoreTransactionRequest struct {
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Method        string `json:"method"`
	PaidAt        string `json:"paid_at"`
	SettlementRef string `json:"settlement_ref"`
	Comment       string `json:"comment"`
}

// StoreTransaction handles POST /api/dues/:reference/transactions
func (h *TransactionHandler) StoreTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	record, err := h.ledger.ByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}

	var req StoreTransactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return services.NewValidationError("amount", "must be a decimal number")
	}

	in := services.ApplyTransactionInput{
		Amount:        amount,
		Kind:          models.TransactionKind(req.Kind),
		Method:        models.PaymentMethod(req.Method),
		SettlementRef: req.SettlementRef,
		Comment:       req.Comment,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse(DateLayout, req.PaidAt)
		if err != nil {
			return services.NewValidationError("paid_at", "must be a date in YYYY-MM-DD format")
		}
		in.PaidAt = paidAt
	}

	txn, err := h.ledger.ApplyTransaction(ctx, record.ID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreatedResponse{Data: txn})
}

// ListTransactions handles GET /api/dues/:reference/transactions.
// ?include=tombstoned adds removed entries, ?include=tombstoned-only
// returns only them.
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	record, err := h.ledger.ByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}

	var transactions []models.PaymentTransaction
	switch c.QueryParam("include") {
	case "tombstoned":
		transactions, err = h.ledger.ListTransactionsIncludingTombstoned(ctx, record.ID)
	case "tombstoned-only":
		transactions, err = h.ledger.ListTombstonedTransactions(ctx, record.ID)
	default:
		transactions, err = h.ledger.ListTransactions(ctx, record.ID)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transactions)
}

// RemoveTransaction handles DELETE /api/transactions/:id. The entry is
// tombstoned, never erased, and the owning record's balance is
// recomputed.
func (h *TransactionHandler) RemoveTransaction(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid transaction id")
	}

	if err := h.ledger.RemoveTransaction(c.Request().Context(), uint(id)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Transaction removed"})
}
