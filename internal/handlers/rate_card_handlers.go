package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"assogest/internal/models"
	"assogest/internal/services"
)

// RateCardHandler serves rate card endpoints.
type RateCardHandler struct {
	rateCards *services.RateCardService
}

func NewRateCardHandler(rateCards *services.RateCardService) *RateCardHandler {
	return &RateCardHandler{rateCards: rateCards}
}

// StoreRateCardRequest is the payload for creating a rate card.
type StoreRateCardRequest struct {
	MemberKind  string `json:"member_kind"`
	Amount      string `json:"amount"`
	Periodicity string `json:"periodicity"`
	ValidFrom   string `json:"valid_from"`
	ValidUntil  string `json:"valid_until"`
	Description string `json:"description"`
}

// StoreRateCard handles POST /api/rate-cards
func (h *RateCardHandler) StoreRateCard(c echo.Context) error {
	var req StoreRateCardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return services.NewValidationError("amount", "must be a decimal number")
	}

	card := &models.RateCard{
		MemberKind:  req.MemberKind,
		Amount:      amount,
		Periodicity: models.Periodicity(req.Periodicity),
		Description: req.Description,
	}

	fields := map[string]string{}
	card.ValidFrom = parseDate(req.ValidFrom, "valid_from", fields, true)
	if req.ValidUntil != "" {
		until := parseDate(req.ValidUntil, "valid_until", fields, false)
		card.ValidUntil = &until
	}
	if len(fields) > 0 {
		return &services.ValidationError{Fields: fields}
	}

	if err := h.rateCards.Create(c.Request().Context(), card); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreatedResponse{Data: card})
}

// ListRateCards handles GET /api/rate-cards?active=true
func (h *RateCardHandler) ListRateCards(c echo.Context) error {
	var activeAt *time.Time
	if c.QueryParam("active") == "true" {
		now := time.Now()
		activeAt = &now
	}
	cards, err := h.rateCards.List(c.Request().Context(), activeAt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cards)
}

// IssueDuesRequest is the payload for issuing a dues record from a rate
// card.
type IssueDuesRequest struct {
	MemberID    uint   `json:"member_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	DueDate     string `json:"due_date"`
}

// IssueDues handles POST /api/rate-cards/:id/issue
func (h *RateCardHandler) IssueDues(c echo.Context) error {
	id, err := parseLimit(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid rate card id")
	}

	var req IssueDuesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	in := services.IssueDuesInput{
		RateCardID: uint(id),
		MemberID:   req.MemberID,
	}

	fields := map[string]string{}
	if req.PeriodStart != "" {
		in.PeriodStart = parseDate(req.PeriodStart, "period_start", fields, false)
	}
	if req.PeriodEnd != "" {
		end := parseDate(req.PeriodEnd, "period_end", fields, false)
		in.PeriodEnd = &end
	}
	if req.DueDate != "" {
		in.DueDate = parseDate(req.DueDate, "due_date", fields, false)
	}
	if len(fields) > 0 {
		return &services.ValidationError{Fields: fields}
	}

	record, err := h.rateCards.IssueDues(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreatedResponse{Data: record})
}
