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

// DuesHandler serves dues record endpoints.
type DuesHandler struct {
	ledger *services.DuesLedger
	cache  *services.Cache
}

// NewDuesHandler creates a dues handler. The cache is optional.
func NewDuesHandler(ledger *services.DuesLedger, cache *services.Cache) *DuesHandler {
	return &DuesHandler{ledger: ledger, cache: cache}
}

// StoreDuesRequest is the creation payload for a dues record.
type StoreDuesRequest struct {
	MemberID    uint                   `json:"member_id"`
	Kind        string                 `json:"kind"`
	Amount      string                 `json:"amount"`
	IssueDate   string                 `json:"issue_date"`
	DueDate     string                 `json:"due_date"`
	PeriodStart string                 `json:"period_start"`
	PeriodEnd   string                 `json:"period_end"`
	RateCardID  *uint                  `json:"rate_card_id"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// StoreDues handles POST /api/dues
func (h *DuesHandler) StoreDues(c echo.Context) error {
	var req StoreDuesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return services.NewValidationError("amount", "must be a decimal number")
	}

	in := services.CreateDuesInput{
		MemberID:   req.MemberID,
		Kind:       models.DuesKind(req.Kind),
		Amount:     amount,
		RateCardID: req.RateCardID,
		Metadata:   req.Metadata,
	}
	if in.Kind == "" {
		in.Kind = models.DuesKindStandard
	}

	fields := map[string]string{}
	in.IssueDate = parseDate(req.IssueDate, "issue_date", fields, false)
	in.DueDate = parseDate(req.DueDate, "due_date", fields, true)
	in.PeriodStart = parseDate(req.PeriodStart, "period_start", fields, true)
	if req.PeriodEnd != "" {
		end := parseDate(req.PeriodEnd, "period_end", fields, false)
		in.PeriodEnd = &end
	}
	if len(fields) > 0 {
		return &services.ValidationError{Fields: fields}
	}

	record, err := h.ledger.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreatedResponse{Data: record})
}

// ShowDues handles GET /api/dues/:reference
func (h *DuesHandler) ShowDues(c echo.Context) error {
	record, err := h.ledger.ByReference(c.Request().Context(), c.Param("reference"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// ListOverdue handles GET /api/dues/overdue
func (h *DuesHandler) ListOverdue(c echo.Context) error {
	ctx := c.Request().Context()

	fetch := func() ([]models.DuesRecord, error) {
		return h.ledger.Overdue(ctx, time.Now())
	}

	var records []models.DuesRecord
	var err error
	if h.cache != nil {
		records, err = services.GetOrSet(h.cache, ctx, "dues:overdue", time.Minute, fetch)
	} else {
		records, err = fetch()
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, records)
}

// ListDueSoon handles GET /api/dues/due-soon?days=30
func (h *DuesHandler) ListDueSoon(c echo.Context) error {
	days := 30
	if raw := c.QueryParam("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	records, err := h.ledger.DueWithin(c.Request().Context(), time.Now(), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// RecomputeDues handles POST /api/dues/:reference/recompute. It replays
// the balance fold for a record, for repair after out-of-band data
// changes; replaying an already-consistent record is a no-op.
func (h *DuesHandler) RecomputeDues(c echo.Context) error {
	ctx := c.Request().Context()
	record, err := h.ledger.ByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}
	if err := h.ledger.Recompute(ctx, record.ID); err != nil {
		return err
	}
	record, err = h.ledger.ByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// ShowHistory handles GET /api/dues/:reference/history
func (h *DuesHandler) ShowHistory(c echo.Context) error {
	ctx := c.Request().Context()
	record, err := h.ledger.ByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}
	entries, err := h.ledger.History(ctx, record.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func parseDate(raw, field string, fields map[string]string, required bool) time.Time {
	if raw == "" {
		if required {
			fields[field] = "is required"
		}
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		fields[field] = "must be a date in YYYY-MM-DD format"
		return time.Time{}
	}
	return t
}
