package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/providers"
	"github.com/queueup/backend/internal/domain/repositories"
	"github.com/queueup/backend/internal/infrastructure/observability"
	apperrors "github.com/queueup/backend/pkg/errors"
)

// AdmissionService decides whether a waiting ticket may physically enter its
// shop. It is the only writer of ticket entry timestamps.
type AdmissionService struct {
	tickets repositories.TicketRepository
	events  providers.EventBus
	metrics *observability.Metrics
	clock   func() time.Time
}

// NewAdmissionService creates a new admission service. events and metrics
// may be nil.
func NewAdmissionService(tickets repositories.TicketRepository, events providers.EventBus, metrics *observability.Metrics) *AdmissionService {
	return &AdmissionService{
		tickets: tickets,
		events:  events,
		metrics: metrics,
		clock:   time.Now,
	}
}

// TryEnter attempts to admit a ticket on behalf of shop staff. The whole
// check-and-admit runs inside the shop's critical section: the snapshot the
// decision reads and the entry it writes cannot interleave with a concurrent
// admission or exit on the same shop.
func (s *AdmissionService) TryEnter(ctx context.Context, staff StaffIdentity, ticketID int32) (EnterResult, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return EnterResult{}, err
	}
	if t.ShopID != staff.ShopID {
		return EnterResult{}, apperrors.NewUnauthorizedError("ticket belongs to another shop")
	}

	var result EnterResult
	err = s.tickets.InShopTx(ctx, t.ShopID, func(tx repositories.QueueTx) error {
		// Re-read everything inside the transaction; the earlier load was
		// only for routing and authorization.
		cur, err := tx.Ticket(ticketID)
		if err != nil {
			return err
		}
		now := s.clock()

		waiting, err := tx.WaitingSnapshot(cur.ShopID, now)
		if err != nil {
			return err
		}
		inside, err := tx.InsideSnapshot(cur.ShopID)
		if err != nil {
			return err
		}
		departments, err := tx.Departments(cur.ShopID)
		if err != nil {
			return err
		}

		result = DecideEntry(cur, waiting, inside, departments, now)
		if result.Outcome != EnterEntered {
			return nil
		}

		if err := tx.SetEntry(cur.ID, now); err != nil {
			return err
		}
		for _, d := range departments {
			if !cur.Targets(d.ID) {
				continue
			}
			d.PushExpected(float64(cur.EstMinutes))
			if err := tx.UpdateAverages(d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return EnterResult{}, err
	}

	observability.RecordAdmission(ctx, s.metrics, string(result.Outcome))
	if result.Outcome == EnterEntered {
		s.publish(ctx, entities.QueueEventTicketEntered, t.ShopID, ticketID)
	}
	return result, nil
}

func (s *AdmissionService) publish(ctx context.Context, typ entities.QueueEventType, shopID, ticketID int32) {
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
