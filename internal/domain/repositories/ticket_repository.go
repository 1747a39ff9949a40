package repositories

import (
	"context"
	"time"

	"github.com/queueup/backend/internal/domain/entities"
)

// DepartmentOccupancy pairs a department with its current occupant count
// (tickets entered and not yet exited that target it).
type DepartmentOccupancy struct {
	Department *entities.Department
	Occupants  int
}

// TicketRepository defines ticket data operations. Display reads run against
// the pool directly; every mutating operation goes through InShopTx so that
// duplicate checks, FIFO ordering, and capacity checks observe a consistent
// per-shop snapshot.
type TicketRepository interface {
	// GetByID retrieves a ticket with its department associations
	GetByID(ctx context.Context, id int32) (*entities.Ticket, error)

	// ListByCustomer retrieves all tickets of a customer, FIFO order
	ListByCustomer(ctx context.Context, customerID int32) ([]*entities.Ticket, error)

	// Queue retrieves a shop's waiting tickets (not entered, not exited,
	// usable, not expired at now) in FIFO order
	Queue(ctx context.Context, shopID int32, now time.Time) ([]*entities.Ticket, error)

	// Occupancy derives per-department occupant counts for a shop,
	// including departments with no occupants
	Occupancy(ctx context.Context, shopID int32) ([]DepartmentOccupancy, error)

	// InShopTx runs fn inside a serializable transaction holding the
	// shop-wide admission lock. fn may be invoked multiple times when the
	// store reports a serialization conflict; it must be safe to re-run.
	InShopTx(ctx context.Context, shopID int32, fn func(tx QueueTx) error) error
}

// QueueTx is the view of a shop's queue state available inside the per-shop
// critical section. All reads observe the transaction snapshot; all writes
// become visible atomically on commit.
type QueueTx interface {
	// Ticket reloads a ticket (with department associations) by id
	Ticket(id int32) (*entities.Ticket, error)

	// Insert stores a new ticket and its department associations as one
	// unit and fills in the assigned id
	Insert(t *entities.Ticket) error

	// Delete removes a ticket and its associations
	Delete(id int32) error

	// HasActiveTicket reports whether the customer already holds a
	// not-exited, not-expired ticket for the shop
	HasActiveTicket(customerID, shopID int32, now time.Time) (bool, error)

	// ShopAcceptingTickets reads the shop's administrative booking flag
	ShopAcceptingTickets(shopID int32) (bool, error)

	// WaitingSnapshot returns the shop's waiting tickets in FIFO order
	WaitingSnapshot(shopID int32, now time.Time) ([]*entities.Ticket, error)

	// InsideSnapshot returns the shop's tickets currently occupying
	// departments (entered, not exited), with department associations
	InsideSnapshot(shopID int32) ([]*entities.Ticket, error)

	// Departments returns the shop's departments including their moving
	// averages
	Departments(shopID int32) ([]*entities.Department, error)

	// SetEntry records the single admission instant of a ticket
	SetEntry(id int32, at time.Time) error

	// SetExit records the single exit instant of a ticket
	SetExit(id int32, at time.Time) error

	// UpdateAverages writes back a department's moving averages
	UpdateAverages(d *entities.Department) error
}
