package handlers

import (
	"time"

	"github.com/queueup/backend/internal/application/services"
	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/pkg/encoding"
)

// Response views. Serial ids never leave the service raw; every id field
// below carries the encoded form.

type ticketView struct {
	ID            string     `json:"id"`
	ShopID        string     `json:"shop_id"`
	DepartmentIDs []string   `json:"department_ids"`
	Creation      time.Time  `json:"creation"`
	Expiration    time.Time  `json:"expiration"`
	EstMinutes    int        `json:"est_minutes"`
	EnteredAt     *time.Time `json:"entered_at,omitempty"`
	ExitedAt      *time.Time `json:"exited_at,omitempty"`
	State         string     `json:"state"`
}

func newTicketView(codec *encoding.Codec, t *entities.Ticket, now time.Time) ticketView {
	return ticketView{
		ID:            codec.Encode(t.ID),
		ShopID:        codec.Encode(t.ShopID),
		DepartmentIDs: codec.EncodeAll(t.DepartmentIDs),
		Creation:      t.Creation,
		Expiration:    t.Expiration,
		EstMinutes:    t.EstMinutes,
		EnteredAt:     t.EnteredAt,
		ExitedAt:      t.ExitedAt,
		State:         string(t.State(now)),
	}
}

func newTicketViews(codec *encoding.Codec, tickets []*entities.Ticket, now time.Time) []ticketView {
	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, newTicketView(codec, t, now))
	}
	return views
}

type departmentView struct {
	ID                 string  `json:"id"`
	Description        string  `json:"description"`
	Capacity           int     `json:"capacity"`
	EstimatedVisitTime float64 `json:"estimated_visit_minutes"`
}

func newDepartmentView(codec *encoding.Codec, d *entities.Department) departmentView {
	return departmentView{
		ID:                 codec.Encode(d.ID),
		Description:        d.Description,
		Capacity:           d.Capacity,
		EstimatedVisitTime: d.CombinedVisitMinutes(),
	}
}

type shopView struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Image            *string          `json:"image,omitempty"`
	Location         string           `json:"location"`
	AcceptingTickets bool             `json:"accepting_tickets"`
	Departments      []departmentView `json:"departments"`
}

func newShopView(codec *encoding.Codec, shop *entities.Shop, departments []*entities.Department) shopView {
	views := make([]departmentView, 0, len(departments))
	for _, d := range departments {
		views = append(views, newDepartmentView(codec, d))
	}
	return shopView{
		ID:               codec.Encode(shop.ID),
		Name:             shop.Name,
		Description:      shop.Description,
		Image:            shop.Image,
		Location:         shop.Location,
		AcceptingTickets: shop.AcceptingTickets,
		Departments:      views,
	}
}

type occupancyView struct {
	Department       departmentView `json:"department"`
	Occupants        int            `json:"occupants"`
	SlotDelayMinutes float64        `json:"slot_delay_minutes"`
}

func newOccupancyViews(codec *encoding.Codec, statuses []services.DepartmentStatus) []occupancyView {
	views := make([]occupancyView, 0, len(statuses))
	for _, s := range statuses {
		views = append(views, occupancyView{
			Department:       newDepartmentView(codec, s.Department),
			Occupants:        s.Occupants,
			SlotDelayMinutes: s.SlotDelayMinutes,
		})
	}
	return views
}

type queueEventView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ShopID    string    `json:"shop_id"`
	TicketID  string    `json:"ticket_id"`
	Timestamp time.Time `json:"timestamp"`
}

func newQueueEventView(codec *encoding.Codec, e *entities.QueueEvent) queueEventView {
	return queueEventView{
		ID:        e.ID,
		Type:      string(e.Type),
		ShopID:    codec.Encode(e.ShopID),
		TicketID:  codec.Encode(e.TicketID),
		Timestamp: e.Timestamp,
	}
}
