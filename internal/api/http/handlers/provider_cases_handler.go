package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// ProviderCasesHandler manages provider-facing claim endpoints.
type ProviderCasesHandler struct {
	cases  *service.CaseService
	ledger *service.LedgerService
}

// NewProviderCasesHandler constructs handler.
func NewProviderCasesHandler(caseService *service.CaseService, ledgerService *service.LedgerService) *ProviderCasesHandler {
	return &ProviderCasesHandler{cases: caseService, ledger: ledgerService}
}

// ListCases GET /provider/cases.
func (h *ProviderCasesHandler) ListCases(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	statuses := parseStatuses(c)
	limit, offset := parsePagination(c)
	items, err := h.cases.ListProviderCases(c.Context(), principal.Account.ID, statuses, limit, offset)
	if err != nil {
		return err
	}
	summaries := make([]dto.CaseSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, caseSummary(&items[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// GetCase GET /provider/cases/:id.
func (h *ProviderCasesHandler) GetCase(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	found, notes, err := h.cases.GetCaseFor(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseDetail(found, notes, time.Now())})
}

// Respond POST /provider/cases/:id/respond.
func (h *ProviderCasesHandler) Respond(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	var req dto.ProviderResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.ProviderResponseInput{
		Action:          req.Action,
		Explanation:     req.Explanation,
		AppointmentDate: req.AppointmentDate,
		TimeSlot:        req.TimeSlot,
	}
	updated, err := h.cases.ProviderRespond(c.Context(), principal.Account.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// StartProgress POST /provider/cases/:id/start.
func (h *ProviderCasesHandler) StartProgress(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	updated, err := h.cases.StartProgress(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// Resolve POST /provider/cases/:id/resolve.
func (h *ProviderCasesHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.cases.ResolveCase(c.Context(), principal.Account, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// ScheduleIntervention POST /provider/cases/:id/intervention.
func (h *ProviderCasesHandler) ScheduleIntervention(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	var req dto.ScheduleInterventionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Date.IsZero() {
		return apperrors.NewMissingRequiredField("date")
	}
	updated, err := h.cases.ScheduleIntervention(c.Context(), principal.Account, c.Params("id"), req.Date, req.Slot)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// CompleteIntervention POST /provider/cases/:id/intervention/complete.
func (h *ProviderCasesHandler) CompleteIntervention(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	updated, err := h.cases.CompleteIntervention(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// AddNote POST /provider/cases/:id/notes.
func (h *ProviderCasesHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
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

// ListHolds GET /provider/cases/:id/holds.
func (h *ProviderCasesHandler) ListHolds(c *fiber.Ctx) error {
	principal, ok := providerPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("provider required")
	}
	found, _, err := h.cases.GetCaseFor(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	holds, err := h.ledger.HoldsForCase(c.Context(), found.ID)
	if err != nil {
		return err
	}
	responses := make([]dto.HoldResponse, 0, len(holds))
	for i := range holds {
		responses = append(responses, holdResponse(&holds[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

func providerPrincipal(c *fiber.Ctx) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil || principal.Account.Role != domain.RoleProvider {
		return nil, false
	}
	return principal, true
}
