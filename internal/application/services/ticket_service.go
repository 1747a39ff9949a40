package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/providers"
	"github.com/queueup/backend/internal/domain/repositories"
	"github.com/queueup/backend/internal/infrastructure/observability"
	apperrors "github.com/queueup/backend/pkg/errors"
)

// TicketService owns the ticket lifecycle outside of admission: creation,
// cancellation, and exit.
type TicketService struct {
	tickets repositories.TicketRepository
	shops   repositories.ShopRepository
	events  providers.EventBus

	// validityHorizon is how long after creation a ticket stays usable.
	validityHorizon time.Duration

	clock func() time.Time
}

// NewTicketService creates a new ticket service. events may be nil.
func NewTicketService(tickets repositories.TicketRepository, shops repositories.ShopRepository, events providers.EventBus, validityHorizon time.Duration) *TicketService {
	return &TicketService{
		tickets:         tickets,
		shops:           shops,
		events:          events,
		validityHorizon: validityHorizon,
		clock:           time.Now,
	}
}

// Create inserts a new waiting ticket for the customer. The duplicate check,
// the booking flag check, and the ticket plus department association writes
// all happen inside the shop's critical section, so no partially created
// ticket is ever observable and two concurrent creates cannot both pass the
// duplicate check.
func (s *TicketService) Create(ctx context.Context, customerID, shopID int32, departmentIDs []int32, estMinutes int) (CreateResult, error) {
	if len(departmentIDs) == 0 {
		return CreateResult{}, apperrors.NewValidationError("a ticket must target at least one department")
	}
	if estMinutes <= 0 {
		return CreateResult{}, apperrors.NewValidationError("estimated minutes must be positive")
	}

	// The catalog is administered externally and effectively immutable while
	// the engine runs, so target validation can happen outside the lock.
	departments, err := s.shops.Departments(ctx, shopID)
	if err != nil {
		return CreateResult{}, err
	}
	known := make(map[int32]bool, len(departments))
	for _, d := range departments {
		known[d.ID] = true
	}
	for _, id := range departmentIDs {
		if !known[id] {
			return CreateResult{}, apperrors.NewValidationError(fmt.Sprintf("department %d does not belong to shop %d", id, shopID))
		}
	}

	var result CreateResult
	err = s.tickets.InShopTx(ctx, shopID, func(tx repositories.QueueTx) error {
		accepting, err := tx.ShopAcceptingTickets(shopID)
		if err != nil {
			return err
		}
		if !accepting {
			result = CreateResult{Outcome: CreateClosedForBooking}
			return nil
		}

		now := s.clock()
		dup, err := tx.HasActiveTicket(customerID, shopID, now)
		if err != nil {
			return err
		}
		if dup {
			result = CreateResult{Outcome: CreateDuplicateActive}
			return nil
		}

		t := &entities.Ticket{
			CustomerID:    customerID,
			ShopID:        shopID,
			DepartmentIDs: departmentIDs,
			Creation:      now,
			Expiration:    now.Add(s.validityHorizon),
			EstMinutes:    estMinutes,
			Valid:         true,
			Active:        true,
		}
		if err := tx.Insert(t); err != nil {
			return err
		}
		result = CreateResult{Outcome: CreateCreated, Ticket: t}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	if result.Outcome == CreateCreated {
		s.publish(ctx, entities.QueueEventTicketCreated, shopID, result.Ticket.ID)
	}
	return result, nil
}

// CancelByCustomer removes the caller's own waiting ticket.
func (s *TicketService) CancelByCustomer(ctx context.Context, customerID, ticketID int32) error {
	return s.cancel(ctx, ticketID, func(t *entities.Ticket) error {
		if t.CustomerID != customerID {
			return apperrors.NewUnauthorizedError("ticket belongs to another customer")
		}
		return nil
	})
}

// CancelByStaff removes a waiting ticket of the staff member's shop,
// typically to skip a customer who failed to show up.
func (s *TicketService) CancelByStaff(ctx context.Context, staff StaffIdentity, ticketID int32) error {
	return s.cancel(ctx, ticketID, func(t *entities.Ticket) error {
		if t.ShopID != staff.ShopID {
			return apperrors.NewUnauthorizedError("ticket belongs to another shop")
		}
		return nil
	})
}

func (s *TicketService) cancel(ctx context.Context, ticketID int32, authorize func(*entities.Ticket) error) error {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := authorize(t); err != nil {
		return err
	}

	err = s.tickets.InShopTx(ctx, t.ShopID, func(tx repositories.QueueTx) error {
		cur, err := tx.Ticket(ticketID)
		if err != nil {
			return err
		}
		if cur.EnteredAt != nil {
			return apperrors.NewConflictError("ticket already entered, log an exit instead")
		}
		return tx.Delete(ticketID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, entities.QueueEventTicketCancelled, t.ShopID, ticketID)
	return nil
}

// Exit records that the customer left the shop. It returns false, not an
// error, unless the ticket is exactly in the entered state; calling it twice
// therefore succeeds once. On success the measured visit length is folded
// into every target department's moving average inside the same transaction.
func (s *TicketService) Exit(ctx context.Context, staff StaffIdentity, ticketID int32) (bool, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if t.ShopID != staff.ShopID {
		return false, apperrors.NewUnauthorizedError("ticket belongs to another shop")
	}

	exited := false
	err = s.tickets.InShopTx(ctx, t.ShopID, func(tx repositories.QueueTx) error {
		cur, err := tx.Ticket(ticketID)
		if err != nil {
			return err
		}
		if cur.EnteredAt == nil || cur.ExitedAt != nil {
			exited = false
			return nil
		}

		now := s.clock()
		if err := tx.SetExit(cur.ID, now); err != nil {
			return err
		}

		visited := entities.MinuteDiff(*cur.EnteredAt, now)
		departments, err := tx.Departments(cur.ShopID)
		if err != nil {
			return err
		}
		for _, d := range departments {
			if !cur.Targets(d.ID) {
				continue
			}
			d.PushMeasured(visited)
			if err := tx.UpdateAverages(d); err != nil {
				return err
			}
		}
		exited = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if exited {
		s.publish(ctx, entities.QueueEventTicketExited, t.ShopID, ticketID)
	}
	return exited, nil
}

// ListByCustomer returns all of a customer's tickets in FIFO order.
func (s *TicketService) ListByCustomer(ctx context.Context, customerID int32) ([]*entities.Ticket, error) {
	return s.tickets.ListByCustomer(ctx, customerID)
}

func (s *TicketService) publish(ctx context.Context, typ entities.QueueEventType, shopID, ticketID int32) {
	if s.events == nil {
		return
	}
	event := &entities.QueueEvent{
		ID:        uuid.New().String(),
		Type:      typ,
		ShopID:    shopID,
		TicketID:  ticketID,
		Timestamp: s.clock(),
	}
	if err := s.events.Publish(ctx, providers.ShopChannel(shopID), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Int32("shop_id", shopID).
			Msg("failed to publish queue event")
	}
}
