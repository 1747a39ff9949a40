package services

import (
	"context"
	"time"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/repositories"
	apperrors "github.com/queueup/backend/pkg/errors"
)

// QueueService answers observational queries: queue contents, a customer's
// position and projected admission time, and per-department occupancy. These
// reads run outside the admission critical section and may be slightly stale.
type QueueService struct {
	tickets repositories.TicketRepository
	shops   repositories.ShopRepository
	clock   func() time.Time
}

// NewQueueService creates a new queue query service
func NewQueueService(tickets repositories.TicketRepository, shops repositories.ShopRepository) *QueueService {
	return &QueueService{
		tickets: tickets,
		shops:   shops,
		clock:   time.Now,
	}
}

// Queue returns the shop's waiting tickets in FIFO order (creation
// ascending, ties by id) — the same order admission consumes.
func (s *QueueService) Queue(ctx context.Context, staff StaffIdentity, shopID int32) ([]*entities.Ticket, error) {
	if staff.ShopID != shopID {
		return nil, apperrors.NewUnauthorizedError("staff member belongs to another shop")
	}
	return s.tickets.Queue(ctx, shopID, s.clock())
}

// Estimate reports how many tickets precede the customer's ticket and when
// admission is projected, by summing the declared visit lengths of every
// preceding waiting ticket.
func (s *QueueService) Estimate(ctx context.Context, customerID, ticketID int32) (EstimateResult, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return EstimateResult{}, err
	}
	if t.CustomerID != customerID {
		return EstimateResult{Outcome: EstimateNotOwner}, nil
	}

	now := s.clock()
	if !t.Valid || !t.Active || t.Expired(now) {
		return EstimateResult{Outcome: EstimateInvalidOrExpired}, nil
	}

	queue, err := s.tickets.Queue(ctx, t.ShopID, now)
	if err != nil {
		return EstimateResult{}, err
	}

	people := 0
	minutes := 0
	for _, q := range queue {
		if q.ID == t.ID {
			return EstimateResult{
				Outcome: EstimateOK,
				People:  people,
				ETA:     now.Add(time.Duration(minutes) * time.Minute),
			}, nil
		}
		people++
		minutes += q.EstMinutes
	}

	// Not in the waiting set anymore, e.g. already entered.
	return EstimateResult{Outcome: EstimateNotInQueue}, nil
}

// Occupancy reports every department of the shop with its current occupant
// count and the estimator's per-slot delay, for staff dashboards. Departments
// with no occupants are included.
func (s *QueueService) Occupancy(ctx context.Context, staff StaffIdentity, shopID int32) ([]DepartmentStatus, error) {
	if staff.ShopID != shopID {
		return nil, apperrors.NewUnauthorizedError("staff member belongs to another shop")
	}

	occ, err := s.tickets.Occupancy(ctx, shopID)
	if err != nil {
		return nil, err
	}

	statuses := make([]DepartmentStatus, 0, len(occ))
	for _, o := range occ {
		statuses = append(statuses, DepartmentStatus{
			Department:       o.Department,
			Occupants:        o.Occupants,
			SlotDelayMinutes: o.Department.SlotDelayMinutes(),
		})
	}
	return statuses, nil
}

// ShopInfo returns a shop with its departments for customer display.
func (s *QueueService) ShopInfo(ctx context.Context, shopID int32) (*entities.Shop, []*entities.Department, error) {
	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, nil, err
	}
	departments, err := s.shops.Departments(ctx, shopID)
	if err != nil {
		return nil, nil, err
	}
	return shop, departments, nil
}
