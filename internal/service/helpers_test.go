package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sla"
)

var testTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testRules() *sla.RuleTable {
	return sla.NewRuleTable(sla.DefaultPolicies(), 25, 5000, 500000, 30*time.Minute)
}

type memCaseRepo struct {
	mu    sync.Mutex
	seq   int
	cases map[string]*domain.AfterSalesCase
}

func newMemCaseRepo() *memCaseRepo {
	return &memCaseRepo{cases: make(map[string]*domain.AfterSalesCase)}
}

func (r *memCaseRepo) nextID() string {
	r.seq++
	return fmt.Sprintf("case-%d", r.seq)
}

func (r *memCaseRepo) Create(_ context.Context, c *domain.AfterSalesCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID()
	c.Version = 1
	c.CreatedAt = testTime
	c.UpdatedAt = testTime
	clone := *c
	r.cases[c.ID] = &clone
	return nil
}

func (r *memCaseRepo) GetByID(_ context.Context, id string) (*domain.AfterSalesCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memCaseRepo) GetByCaseKey(_ context.Context, key string) (*domain.AfterSalesCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.cases {
		if stored.CaseKey == key {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memCaseRepo) Update(_ context.Context, c *domain.AfterSalesCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	c.Version++
	c.UpdatedAt = testTime
	clone := *c
	r.cases[c.ID] = &clone
	return nil
}

func (r *memCaseRepo) ListWithFilter(_ context.Context, filter repository.CaseFilter) ([]domain.AfterSalesCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AfterSalesCase, 0, len(r.cases))
	for _, stored := range r.cases {
		if filter.ClientID != nil && stored.ClientID != *filter.ClientID {
			continue
		}
		if filter.ProviderID != nil && stored.ProviderID != *filter.ProviderID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *memCaseRepo) ListOpenForSweep(_ context.Context) ([]domain.AfterSalesCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AfterSalesCase, 0, len(r.cases))
	for _, stored := range r.cases {
		if stored.Status != domain.CaseStatusClosed {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func containsStatus(statuses []domain.CaseStatus, status domain.CaseStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memNoteRepo struct {
	mu    sync.Mutex
	seq   int
	notes []domain.CaseNote
}

func (r *memNoteRepo) Create(_ context.Context, note *domain.CaseNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	note.ID = fmt.Sprintf("note-%d", r.seq)
	note.CreatedAt = testTime
	r.notes = append(r.notes, *note)
	return nil
}

func (r *memNoteRepo) ListByCase(_ context.Context, caseID string) ([]domain.CaseNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CaseNote, 0)
	for _, n := range r.notes {
		if n.CaseID == caseID {
			out = append(out, n)
		}
	}
	return out, nil
}

type memInvoiceRepo struct {
	jobs     map[string]*domain.Job
	invoices map[string]*domain.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		jobs:     make(map[string]*domain.Job),
		invoices: make(map[string]*domain.Invoice),
	}
}

func (r *memInvoiceRepo) GetJob(_ context.Context, id string) (*domain.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (r *memInvoiceRepo) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *invoice
	return &clone, nil
}

func (r *memInvoiceRepo) GetInvoiceByJob(_ context.Context, jobID string) (*domain.Invoice, error) {
	for _, invoice := range r.invoices {
		if invoice.JobID == jobID {
			clone := *invoice
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memArbitrationRepo struct {
	mu   sync.Mutex
	seq  int
	arbs map[string]*domain.Arbitration
}

func newMemArbitrationRepo() *memArbitrationRepo {
	return &memArbitrationRepo{arbs: make(map[string]*domain.Arbitration)}
}

func (r *memArbitrationRepo) Create(_ context.Context, a *domain.Arbitration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("arb-%d", r.seq)
	a.CreatedAt = testTime
	a.UpdatedAt = testTime
	clone := *a
	r.arbs[a.ID] = &clone
	return nil
}

func (r *memArbitrationRepo) GetByID(_ context.Context, id string) (*domain.Arbitration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.arbs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memArbitrationRepo) GetByCase(_ context.Context, caseID string) (*domain.Arbitration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.arbs {
		if stored.CaseID == caseID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memArbitrationRepo) Update(_ context.Context, a *domain.Arbitration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.arbs[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	a.UpdatedAt = testTime
	clone := *a
	r.arbs[a.ID] = &clone
	return nil
}

type memHoldRepo struct {
	mu    sync.Mutex
	seq   int
	holds map[string]*domain.PaymentHold
}

func newMemHoldRepo() *memHoldRepo {
	return &memHoldRepo{holds: make(map[string]*domain.PaymentHold)}
}

func (r *memHoldRepo) Create(_ context.Context, hold *domain.PaymentHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	hold.ID = fmt.Sprintf("hold-%d", r.seq)
	hold.CreatedAt = testTime
	hold.UpdatedAt = testTime
	clone := *hold
	r.holds[hold.ID] = &clone
	return nil
}

func (r *memHoldRepo) GetByID(_ context.Context, id string) (*domain.PaymentHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.holds[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memHoldRepo) GetActiveByCase(_ context.Context, caseID string) (*domain.PaymentHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.holds {
		if stored.CaseID == caseID && stored.Status == domain.HoldStatusActive {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memHoldRepo) ListByCase(_ context.Context, caseID string) ([]domain.PaymentHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PaymentHold, 0)
	for _, stored := range r.holds {
		if stored.CaseID == caseID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *memHoldRepo) MarkReleased(_ context.Context, id string, releasedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.holds[id]
	if !ok || stored.Status != domain.HoldStatusActive {
		return pgx.ErrNoRows
	}
	stored.Status = domain.HoldStatusReleased
	stored.ReleasedAt = &releasedAt
	return nil
}

func (r *memHoldRepo) MarkForfeited(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.holds[id]
	if !ok || stored.Status != domain.HoldStatusActive {
		return pgx.ErrNoRows
	}
	stored.Status = domain.HoldStatusForfeited
	return nil
}

type memCreditNoteRepo struct {
	mu           sync.Mutex
	seq          int
	notes        map[string]*domain.CreditNote
	applications []domain.CreditNoteApplication
}

func newMemCreditNoteRepo() *memCreditNoteRepo {
	return &memCreditNoteRepo{notes: make(map[string]*domain.CreditNote)}
}

func (r *memCreditNoteRepo) Create(_ context.Context, note *domain.CreditNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	note.ID = fmt.Sprintf("cn-%d", r.seq)
	note.IssuedAt = testTime
	clone := *note
	r.notes[note.ID] = &clone
	return nil
}

func (r *memCreditNoteRepo) GetByID(_ context.Context, id string) (*domain.CreditNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.notes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memCreditNoteRepo) ListByCase(_ context.Context, caseID string) ([]domain.CreditNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CreditNote, 0)
	for _, stored := range r.notes {
		if stored.CaseID == caseID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *memCreditNoteRepo) ListByProvider(_ context.Context, providerID string, _, _ int) ([]domain.CreditNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CreditNote, 0)
	for _, stored := range r.notes {
		if stored.ProviderID == providerID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *memCreditNoteRepo) RecordApplication(_ context.Context, app *domain.CreditNoteApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	app.ID = fmt.Sprintf("cna-%d", r.seq)
	app.AppliedAt = testTime
	r.applications = append(r.applications, *app)
	return nil
}

func (r *memCreditNoteRepo) ListApplications(_ context.Context, creditNoteID string) ([]domain.CreditNoteApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CreditNoteApplication, 0)
	for _, app := range r.applications {
		if app.CreditNoteID == creditNoteID {
			out = append(out, app)
		}
	}
	return out, nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *memAccountRepo) add(id string, role domain.AccountRole) *domain.Account {
	account := &domain.Account{
		ID:     id,
		Name:   id,
		Email:  id + "@example.com",
		Role:   role,
		Status: domain.AccountStatusActive,
	}
	r.mu.Lock()
	r.accounts[id] = account
	r.mu.Unlock()
	return account
}

func (r *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	account.ID = fmt.Sprintf("acct-%d", r.seq)
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *memAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.accounts {
		if stored.Email == email {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAccountRepo) ListByRole(_ context.Context, role domain.AccountRole) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Account, 0)
	for _, stored := range r.accounts {
		if stored.Role == role {
			out = append(out, *stored)
		}
	}
	return out, nil
}

type memAlertRepo struct {
	mu     sync.Mutex
	seq    int
	alerts []domain.AfterSalesAlert
}

func (r *memAlertRepo) Create(_ context.Context, alert *domain.AfterSalesAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.alerts {
		if existing.CaseID == alert.CaseID && existing.Type == alert.Type {
			// Mirrors the unique-index conflict swallow in the pgx repository.
			return nil
		}
	}
	r.seq++
	alert.ID = fmt.Sprintf("alert-%d", r.seq)
	alert.CreatedAt = testTime
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *memAlertRepo) GetByID(_ context.Context, id string) (*domain.AfterSalesAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			clone := r.alerts[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAlertRepo) ExistsForCase(_ context.Context, caseID string, alertType domain.AlertType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.CaseID == caseID && alert.Type == alertType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAlertRepo) ListUnacknowledged(_ context.Context, _, _ int) ([]domain.AfterSalesAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AfterSalesAlert, 0)
	for _, alert := range r.alerts {
		if alert.AcknowledgedAt == nil {
			out = append(out, alert)
		}
	}
	return out, nil
}

func (r *memAlertRepo) Acknowledge(_ context.Context, id, staffID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == id && r.alerts[i].AcknowledgedAt == nil {
			r.alerts[i].AcknowledgedAt = &at
			r.alerts[i].AcknowledgedBy = &staffID
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memAlertRepo) byType(alertType domain.AlertType) []domain.AfterSalesAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AfterSalesAlert, 0)
	for _, alert := range r.alerts {
		if alert.Type == alertType {
			out = append(out, alert)
		}
	}
	return out
}

// fakeGateway records calls; failures are switchable per method.
type fakeGateway struct {
	mu            sync.Mutex
	seq           int
	authorizeErr  error
	refundErr     error
	transferErr   error
	authorizes    int
	refunds       []int64
	transfers     []int64
	lastReference string
}

func (g *fakeGateway) Authorize(_ context.Context, _ string, _ int64, _, reference string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	g.seq++
	g.authorizes++
	g.lastReference = reference
	return fmt.Sprintf("pi_%d", g.seq), nil
}

func (g *fakeGateway) Capture(_ context.Context, _ string, _ int64) error {
	return nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string, amountCents int64, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, amountCents)
	return nil
}

func (g *fakeGateway) Transfer(_ context.Context, _ string, amountCents int64, _, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return "", g.transferErr
	}
	g.seq++
	g.transfers = append(g.transfers, amountCents)
	return fmt.Sprintf("tr_%d", g.seq), nil
}

var errGatewayDown = errors.New("gateway unavailable")

// testEnv wires the full service stack over in-memory fakes.
type testEnv struct {
	cases        *memCaseRepo
	notes        *memNoteRepo
	invoices     *memInvoiceRepo
	arbs         *memArbitrationRepo
	holds        *memHoldRepo
	creditNotes  *memCreditNoteRepo
	accounts     *memAccountRepo
	alerts       *memAlertRepo
	gateway      *fakeGateway
	rules        *sla.RuleTable
	clock        time.Time
	ledger       *LedgerService
	caseService  *CaseService
	escalations  *EscalationService
	arbitrations *ArbitrationService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		cases:       newMemCaseRepo(),
		notes:       &memNoteRepo{},
		invoices:    newMemInvoiceRepo(),
		arbs:        newMemArbitrationRepo(),
		holds:       newMemHoldRepo(),
		creditNotes: newMemCreditNoteRepo(),
		accounts:    newMemAccountRepo(),
		alerts:      &memAlertRepo{},
		gateway:     &fakeGateway{},
		rules:       testRules(),
		clock:       testTime,
	}

	env.accounts.add("client-1", domain.RoleClient)
	env.accounts.add("provider-1", domain.RoleProvider)
	env.accounts.add("admin-1", domain.RoleAdmin)

	env.invoices.jobs["job-1"] = &domain.Job{
		ID:         "job-1",
		ClientID:   "client-1",
		ProviderID: "provider-1",
		Division:   domain.DivisionPlumbing,
		Status:     domain.JobStatusCompleted,
	}
	env.invoices.invoices["inv-1"] = &domain.Invoice{
		ID:          "inv-1",
		JobID:       "job-1",
		ClientID:    "client-1",
		ProviderID:  "provider-1",
		AmountCents: 100000, // $1000.00
	}

	clock := func() time.Time { return env.clock }

	env.ledger = NewLedgerService(LedgerDependencies{
		HoldRepo:       env.holds,
		CreditNoteRepo: env.creditNotes,
		AccountRepo:    env.accounts,
		Gateway:        env.gateway,
		Rules:          env.rules,
		Clock:          clock,
	})
	env.caseService = NewCaseService(CaseDependencies{
		CaseRepo:        env.cases,
		NoteRepo:        env.notes,
		InvoiceRepo:     env.invoices,
		ArbitrationRepo: env.arbs,
		Ledger:          env.ledger,
		Rules:           env.rules,
		Clock:           clock,
	})
	env.escalations = NewEscalationService(EscalationDependencies{
		CaseRepo:    env.cases,
		AlertRepo:   env.alerts,
		AccountRepo: env.accounts,
		Rules:       env.rules,
		Clock:       clock,
	})
	env.arbitrations = NewArbitrationService(ArbitrationDependencies{
		ArbitrationRepo: env.arbs,
		CaseRepo:        env.cases,
		InvoiceRepo:     env.invoices,
		Ledger:          env.ledger,
		Clock:           clock,
	})
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

func (env *testEnv) client() *domain.Account {
	account, _ := env.accounts.GetByID(context.Background(), "client-1")
	return account
}

func (env *testEnv) provider() *domain.Account {
	account, _ := env.accounts.GetByID(context.Background(), "provider-1")
	return account
}

func (env *testEnv) admin() *domain.Account {
	account, _ := env.accounts.GetByID(context.Background(), "admin-1")
	return account
}

func (env *testEnv) report(priority domain.CasePriority) (*domain.AfterSalesCase, error) {
	return env.caseService.ReportCase(context.Background(), "client-1", CaseCreateInput{
		JobID:       "job-1",
		Title:       "leaking joint under the sink",
		Description: "water pooling in the cabinet a week after the repair",
		Priority:    priority,
	})
}
