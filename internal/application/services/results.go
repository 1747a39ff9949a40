package services

import (
	"time"

	"github.com/queueup/backend/internal/domain/entities"
)

// Domain rejections are expected outcomes, not errors: callers branch on the
// tagged results below, while infrastructure failures travel separately as
// errors.

// StaffIdentity identifies a staff member and the single shop they act for.
// Identity is always passed explicitly; nothing in the engine reads ambient
// session state.
type StaffIdentity struct {
	ID     int32
	ShopID int32
}

// CreateOutcome tags the result of a ticket creation attempt
type CreateOutcome string

const (
	// CreateCreated means the ticket was inserted and is now waiting
	CreateCreated CreateOutcome = "created"

	// CreateDuplicateActive means the customer already holds an active
	// ticket for this shop
	CreateDuplicateActive CreateOutcome = "duplicate_active"

	// CreateClosedForBooking means the shop currently refuses new tickets
	CreateClosedForBooking CreateOutcome = "closed_for_booking"
)

// CreateResult is the tagged result of TicketService.Create
type CreateResult struct {
	Outcome CreateOutcome
	Ticket  *entities.Ticket
}

// EnterOutcome tags the result of an admission attempt
type EnterOutcome string

const (
	// EnterEntered means the ticket was admitted and now occupies its
	// departments
	EnterEntered EnterOutcome = "entered"

	// EnterNotFirst means earlier tickets are still waiting
	EnterNotFirst EnterOutcome = "not_first"

	// EnterFull means a target department is at capacity
	EnterFull EnterOutcome = "full"

	// EnterExpired means the ticket's validity window has closed or the
	// visit already finished
	EnterExpired EnterOutcome = "expired"

	// EnterInvalid means the ticket cannot enter in its current state,
	// e.g. it already entered
	EnterInvalid EnterOutcome = "invalid"
)

// EnterResult is the tagged result of AdmissionService.TryEnter
type EnterResult struct {
	Outcome EnterOutcome

	// Ahead is the number of earlier waiting tickets when Outcome is
	// EnterNotFirst
	Ahead int

	// DepartmentID is the first over-capacity department when Outcome is
	// EnterFull
	DepartmentID int32
}

// EstimateOutcome tags the result of a queue position query
type EstimateOutcome string

const (
	EstimateOK               EstimateOutcome = "ok"
	EstimateNotOwner         EstimateOutcome = "not_owner"
	EstimateInvalidOrExpired EstimateOutcome = "invalid_or_expired"
	EstimateNotInQueue       EstimateOutcome = "not_in_queue"
)

// EstimateResult is the tagged result of QueueService.Estimate
type EstimateResult struct {
	Outcome EstimateOutcome

	// People is the number of waiting tickets ahead when Outcome is
	// EstimateOK
	People int

	// ETA is the projected admission time when Outcome is EstimateOK
	ETA time.Time
}

// DepartmentStatus is one row of a shop occupancy report
type DepartmentStatus struct {
	Department       *entities.Department
	Occupants        int
	SlotDelayMinutes float64
}
