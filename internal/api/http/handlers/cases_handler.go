package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// CasesHandler manages client-facing claim endpoints.
type CasesHandler struct {
	cases         *service.CaseService
	notifications *service.NotificationService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService, notificationService *service.NotificationService) *CasesHandler {
	return &CasesHandler{cases: caseService, notifications: notificationService}
}

// CreateCase POST /cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	principal, ok := clientPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("client required")
	}
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.JobID == "" || req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("job_id, title, description required", nil)
	}

	input := service.CaseCreateInput{
		JobID:       req.JobID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Photos:      req.Photos,
	}
	created, err := h.cases.ReportCase(c.Context(), principal.Account.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": caseSummary(created)})
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	principal, ok := clientPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("client required")
	}
	statuses := parseStatuses(c)
	limit, offset := parsePagination(c)
	items, err := h.cases.ListClientCases(c.Context(), principal.Account.ID, statuses, limit, offset)
	if err != nil {
		return err
	}
	summaries := make([]dto.CaseSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, caseSummary(&items[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	principal, ok := clientPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("client required")
	}
	found, notes, err := h.cases.GetCaseFor(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseDetail(found, notes, time.Now())})
}

// CloseCase POST /cases/:id/close.
func (h *CasesHandler) CloseCase(c *fiber.Ctx) error {
	principal, ok := clientPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("client required")
	}
	closed, err := h.cases.CloseCase(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(closed)})
}

// ReportDamage POST /cases/:id/damage.
func (h *CasesHandler) ReportDamage(c *fiber.Ctx) error {
	principal, ok := clientPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("client required")
	}
	var req dto.ReportDamageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.DamageInput{AmountCents: req.AmountCents}
	if req.Resolution != nil {
		resolution := domain.DamageResolution(*req.Resolution)
		input.Resolution = &resolution
	}
	updated, err := h.cases.ReportDamage(c.Context(), principal.Account.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// AddNote POST /cases/:id/notes.
func (h *CasesHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := clientPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("client required")
	}
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	note, err := h.cases.AddNote(c.Context(), principal.Account, c.Params("id"), req.Message, req.Photos)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": caseNoteResponse(note)})
}

// ListNotifications GET /notifications.
func (h *CasesHandler) ListNotifications(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit, offset := parsePagination(c)
	items, err := h.notifications.ListForRecipient(c.Context(), principal.Account.ID, limit, offset)
	if err != nil {
		return err
	}
	responses := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		responses = append(responses, notificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// MarkNotificationRead POST /notifications/:id/read.
func (h *CasesHandler) MarkNotificationRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.notifications.MarkRead(c.Context(), c.Params("id"), principal.Account.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

func clientPrincipal(c *fiber.Ctx) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil || principal.Account.Role != domain.RoleClient {
		return nil, false
	}
	return principal, true
}

func parseStatuses(c *fiber.Ctx) []domain.CaseStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]domain.CaseStatus, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statuses = append(statuses, domain.CaseStatus(trimmed))
		}
	}
	return statuses
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size", "25"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}
	return pageSize, (page - 1) * pageSize
}
