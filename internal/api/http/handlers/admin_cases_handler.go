package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/service"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util"
)

// AdminCasesHandler manages internal staff endpoints: arbitration, takeover,
// alerts and the payment ledger views.
type AdminCasesHandler struct {
	cases        *service.CaseService
	arbitrations *service.ArbitrationService
	escalations  *service.EscalationService
	ledger       *service.LedgerService
}

// NewAdminCasesHandler constructs handler.
func NewAdminCasesHandler(caseService *service.CaseService, arbitrationService *service.ArbitrationService, escalationService *service.EscalationService, ledgerService *service.LedgerService) *AdminCasesHandler {
	return &AdminCasesHandler{
		cases:        caseService,
		arbitrations: arbitrationService,
		escalations:  escalationService,
		ledger:       ledgerService,
	}
}

// ListCases GET /admin/cases.
func (h *AdminCasesHandler) ListCases(c *fiber.Ctx) error {
	filter := repository.CaseFilter{
		Statuses: parseStatuses(c),
	}
	filter.Limit, filter.Offset = parsePagination(c)
	if clientID := c.Query("client_id"); clientID != "" {
		filter.ClientID = &clientID
	}
	if providerID := c.Query("provider_id"); providerID != "" {
		filter.ProviderID = &providerID
	}
	if disputedRaw := c.Query("disputed"); disputedRaw != "" {
		disputed, err := strconv.ParseBool(disputedRaw)
		if err != nil {
			return apperrors.NewValidationError("disputed must be a boolean", nil)
		}
		filter.Disputed = &disputed
	}

	items, err := h.cases.ListCases(c.Context(), filter)
	if err != nil {
		return err
	}
	summaries := make([]dto.CaseSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, caseSummary(&items[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// GetCase GET /admin/cases/:id.
func (h *AdminCasesHandler) GetCase(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	found, notes, err := h.cases.GetCaseFor(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseDetail(found, notes, time.Now())})
}

// StartProgress POST /admin/cases/:id/start.
func (h *AdminCasesHandler) StartProgress(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	updated, err := h.cases.StartProgress(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// Resolve POST /admin/cases/:id/resolve.
func (h *AdminCasesHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
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

// Close POST /admin/cases/:id/close.
func (h *AdminCasesHandler) Close(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	updated, err := h.cases.CloseCase(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// Takeover POST /admin/cases/:id/takeover.
func (h *AdminCasesHandler) Takeover(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.TakeoverRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.cases.InternalTakeover(c.Context(), principal.Account.ID, c.Params("id"), req.ReplacementProviderID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseSummary(updated)})
}

// GetArbitration GET /admin/cases/:id/arbitration.
func (h *AdminCasesHandler) GetArbitration(c *fiber.Ctx) error {
	arb, err := h.arbitrations.GetForCase(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": arbitrationResponse(arb)})
}

// Arbitrate POST /admin/arbitrations/:id/decide.
func (h *AdminCasesHandler) Arbitrate(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.ArbitrationDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.DecisionInput{
		Decision:    req.Decision,
		Action:      req.Action,
		Explanation: req.Explanation,
		RefundCents: req.RefundCents,
	}
	arb, err := h.arbitrations.Decide(c.Context(), principal.Account.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": arbitrationResponse(arb)})
}

// ApplyArbitration POST /admin/arbitrations/:id/apply.
func (h *AdminCasesHandler) ApplyArbitration(c *fiber.Ctx) error {
	arb, err := h.arbitrations.Apply(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": arbitrationResponse(arb)})
}

// ListAlerts GET /admin/alerts.
func (h *AdminCasesHandler) ListAlerts(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	alerts, err := h.escalations.ListAlerts(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	responses := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		responses = append(responses, alertResponse(&alerts[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// AcknowledgeAlert POST /admin/alerts/:id/ack.
func (h *AdminCasesHandler) AcknowledgeAlert(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
	}
	if err := h.escalations.AcknowledgeAlert(c.Context(), c.Params("id"), principal.Account.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// ListHolds GET /admin/cases/:id/holds.
func (h *AdminCasesHandler) ListHolds(c *fiber.Ctx) error {
	holds, err := h.ledger.HoldsForCase(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	responses := make([]dto.HoldResponse, 0, len(holds))
	for i := range holds {
		responses = append(responses, holdResponse(&holds[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// ReleaseHold POST /admin/holds/:id/release.
func (h *AdminCasesHandler) ReleaseHold(c *fiber.Ctx) error {
	releasedAt, err := h.ledger.ReleaseHold(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "released", "released_at": releasedAt}})
}

// ListCreditNotes GET /admin/cases/:id/credit-notes.
func (h *AdminCasesHandler) ListCreditNotes(c *fiber.Ctx) error {
	notes, err := h.ledger.CreditNotesForCase(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	responses := make([]dto.CreditNoteResponse, 0, len(notes))
	for i := range notes {
		responses = append(responses, creditNoteResponse(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// AddNote POST /admin/cases/:id/notes.
func (h *AdminCasesHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := adminPrincipal(c)
	if !ok {
		return apperrors.NewUnauthorized("staff required")
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

func adminPrincipal(c *fiber.Ctx) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil || principal.Account.Role != domain.RoleAdmin {
		return nil, false
	}
	return principal, true
}
