package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"assogest/internal/models"
	"assogest/internal/services"
)

// ReminderHandler serves reminder and template endpoints.
type ReminderHandler struct {
	reminders *services.ReminderService
	matrix    *services.TemplateMatrix
}

func NewReminderHandler(reminders *services.ReminderService, matrix *services.TemplateMatrix) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, matrix: matrix}
}

// StoreReminderRequest is the payload for scheduling a reminder.
type StoreReminderRequest struct {
	DuesReference string `json:"dues_reference"`
	Channel       string `json:"channel"`
	Tier          string `json:"tier"`
	Level         int    `json:"level"`
	Locale        string `json:"locale"`
	ScheduledAt   string `json:"scheduled_at"`
	SendNow       bool   `json:"send_now"`
}

// StoreReminder handles POST /api/reminders. With send_now the reminder
// is dispatched immediately instead of scheduled.
func (h *ReminderHandler) StoreReminder(c echo.Context) error {
	var req StoreReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.DuesReference == "" {
		return services.NewValidationError("dues_reference", "is required")
	}

	in := services.ScheduleReminderInput{
		DuesReference: req.DuesReference,
		Channel:       models.ReminderChannel(req.Channel),
		Tier:          models.UrgencyTier(req.Tier),
		Level:         req.Level,
		Locale:        req.Locale,
	}

	ctx := c.Request().Context()
	if req.SendNow {
		reminder, warnings, err := h.reminders.SendNow(ctx, in)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, CreatedResponse{Data: reminder, Warnings: warnings})
	}

	if req.ScheduledAt == "" {
		return services.NewValidationError("scheduled_at", "is required unless send_now is set")
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return services.NewValidationError("scheduled_at", "must be an RFC 3339 timestamp")
	}
	in.ScheduledAt = scheduledAt

	reminder, warnings, err := h.reminders.Schedule(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreatedResponse{Data: reminder, Warnings: warnings})
}

// ListReminders handles GET /api/reminders?state=scheduled&limit=50
func (h *ReminderHandler) ListReminders(c echo.Context) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := parseLimit(raw); err == nil {
			limit = parsed
		}
	}
	reminders, err := h.reminders.List(c.Request().Context(), models.ReminderState(c.QueryParam("state")), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reminders)
}

// MarkReminderRead handles POST /api/reminders/:public_id/read, the
// read-receipt endpoint.
func (h *ReminderHandler) MarkReminderRead(c echo.Context) error {
	reminder, err := h.reminders.MarkRead(c.Request().Context(), c.Param("public_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reminder)
}

// ListTemplates handles GET /api/templates
func (h *ReminderHandler) ListTemplates(c echo.Context) error {
	templates, err := h.matrix.All(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, templates)
}

// SaveTemplateRequest is the payload for upserting a template cell.
type SaveTemplateRequest struct {
	Channel  string `json:"channel"`
	Tier     string `json:"tier"`
	Locale   string `json:"locale"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	MinLevel int    `json:"min_level"`
	MaxLevel int    `json:"max_level"`
}

// SaveTemplate handles PUT /api/templates. The body must satisfy the
// channel's content constraints at save time.
func (h *ReminderHandler) SaveTemplate(c echo.Context) error {
	var req SaveTemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	tpl := &models.ReminderTemplate{
		Channel:  models.ReminderChannel(req.Channel),
		Tier:     models.UrgencyTier(req.Tier),
		Locale:   req.Locale,
		Subject:  req.Subject,
		Body:     req.Body,
		MinLevel: req.MinLevel,
		MaxLevel: req.MaxLevel,
	}
	if err := h.matrix.Save(c.Request().Context(), tpl); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tpl)
}
