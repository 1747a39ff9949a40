package entities

import (
	"time"
)

// TicketState is the lifecycle state of a ticket, computed from its
// timestamps rather than stored.
type TicketState string

const (
	TicketStateWaiting TicketState = "waiting"
	TicketStateEntered TicketState = "entered"
	TicketStateExited  TicketState = "exited"
	TicketStateExpired TicketState = "expired"
)

// Ticket represents a customer's claim to a position in a shop's queue,
// targeting one or more departments.
type Ticket struct {
	ID            int32   `json:"id" db:"id"`
	CustomerID    int32   `json:"customer_id" db:"customer_id"`
	ShopID        int32   `json:"shop_id" db:"shop_id"`
	DepartmentIDs []int32 `json:"department_ids"`

	Creation   time.Time `json:"creation" db:"creation"`
	Expiration time.Time `json:"expiration" db:"expiration"`

	// EstMinutes is the customer-declared service duration estimate.
	EstMinutes int `json:"est_minutes" db:"est_minutes"`

	EnteredAt *time.Time `json:"entered_at,omitempty" db:"entered_at"`
	ExitedAt  *time.Time `json:"exited_at,omitempty" db:"exited_at"`

	Valid  bool `json:"valid" db:"valid"`
	Active bool `json:"active" db:"active"`
}

// Expired reports whether the ticket's validity window has closed.
// Expiration is never null: a ticket is expired iff now >= expiration.
func (t *Ticket) Expired(now time.Time) bool {
	return !now.Before(t.Expiration)
}

// State derives the lifecycle state at the given instant. Exited is
// terminal and reported even past expiration, since the visit completed.
func (t *Ticket) State(now time.Time) TicketState {
	switch {
	case t.ExitedAt != nil:
		return TicketStateExited
	case t.Expired(now):
		return TicketStateExpired
	case t.EnteredAt != nil:
		return TicketStateEntered
	default:
		return TicketStateWaiting
	}
}

// Waiting reports whether the ticket still holds a queue position: usable,
// not expired, and not yet admitted.
func (t *Ticket) Waiting(now time.Time) bool {
	return t.Valid && t.Active && t.EnteredAt == nil && t.ExitedAt == nil && !t.Expired(now)
}

// Inside reports whether the ticket currently occupies its departments.
func (t *Ticket) Inside() bool {
	return t.EnteredAt != nil && t.ExitedAt == nil
}

// Before defines the total FIFO order of the queue: creation timestamp
// ascending, ties broken by identifier. This ordering is the ground truth
// consumed by admission and by position queries.
func (t *Ticket) Before(other *Ticket) bool {
	if t.Creation.Equal(other.Creation) {
		return t.ID < other.ID
	}
	return t.Creation.Before(other.Creation)
}

// Targets reports whether the ticket targets the given department.
func (t *Ticket) Targets(departmentID int32) bool {
	for _, id := range t.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}

// MinuteDiff returns the length of the interval from from to to in minutes.
func MinuteDiff(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}
