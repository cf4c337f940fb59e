package domain

import "time"

// ServiceDivision enumerates the company's service lines.
type ServiceDivision string

const (
	DivisionPlumbing   ServiceDivision = "plumbing"
	DivisionRoofing    ServiceDivision = "roofing"
	DivisionInsulation ServiceDivision = "insulation"
	DivisionContainers ServiceDivision = "containers"
)

// JobStatus marks whether a job can still receive claims.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is a completed service engagement; claims can only reference jobs in
// completed status. Jobs and invoices are read-only reference data here.
type Job struct {
	ID          string
	ClientID    string
	ProviderID  string
	Division    ServiceDivision
	Description string
	Status      JobStatus
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Invoice is the billing record a hold percentage is computed from.
type Invoice struct {
	ID          string
	JobID       string
	ClientID    string
	ProviderID  string
	AmountCents int64
	IssuedAt    time.Time
	PaidAt      *time.Time
}
