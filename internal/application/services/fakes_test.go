package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/repositories"
	apperrors "github.com/queueup/backend/pkg/errors"
)

// fakeStore is an in-memory TicketRepository + ShopRepository. InShopTx runs
// the callback against the store directly; tests exercise the service logic,
// not transaction mechanics.
type fakeStore struct {
	mu          sync.Mutex
	shops       map[int32]*entities.Shop
	departments map[int32]*entities.Department
	tickets     map[int32]*entities.Ticket
	nextID      int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shops:       make(map[int32]*entities.Shop),
		departments: make(map[int32]*entities.Department),
		tickets:     make(map[int32]*entities.Ticket),
		nextID:      1,
	}
}

func (f *fakeStore) addShop(id int32, accepting bool) *entities.Shop {
	shop := &entities.Shop{ID: id, Name: fmt.Sprintf("shop-%d", id), AcceptingTickets: accepting}
	f.shops[id] = shop
	return shop
}

func (f *fakeStore) addDepartment(id, shopID int32, capacity int) *entities.Department {
	d := &entities.Department{ID: id, ShopID: shopID, Capacity: capacity}
	f.departments[id] = d
	return d
}

func (f *fakeStore) addTicket(t *entities.Ticket) *entities.Ticket {
	if t.ID == 0 {
		t.ID = f.nextID
	}
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	f.tickets[t.ID] = t
	return t
}

// TicketRepository

func (f *fakeStore) GetByID(ctx context.Context, id int32) (*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticketLocked(id)
}

func (f *fakeStore) ListByCustomer(ctx context.Context, customerID int32) ([]*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Ticket
	for _, t := range f.tickets {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	sortFIFO(out)
	return out, nil
}

func (f *fakeStore) Queue(ctx context.Context, shopID int32, now time.Time) ([]*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitingLocked(shopID, now), nil
}

func (f *fakeStore) Occupancy(ctx context.Context, shopID int32) ([]repositories.DepartmentOccupancy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repositories.DepartmentOccupancy
	for _, d := range f.departmentsLocked(shopID) {
		n := 0
		for _, t := range f.tickets {
			if t.ShopID == shopID && t.Inside() && t.Targets(d.ID) {
				n++
			}
		}
		out = append(out, repositories.DepartmentOccupancy{Department: d, Occupants: n})
	}
	return out, nil
}

func (f *fakeStore) InShopTx(ctx context.Context, shopID int32, fn func(tx repositories.QueueTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

// ShopRepository

func (f *fakeStore) GetShopByID(ctx context.Context, id int32) (*entities.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shop, ok := f.shops[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("shop with id %d not found", id))
	}
	return shop, nil
}

func (f *fakeStore) ShopDepartments(ctx context.Context, shopID int32) ([]*entities.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.departmentsLocked(shopID), nil
}

// shopRepo adapts fakeStore to repositories.ShopRepository without method
// name collisions against QueueTx.
type shopRepo struct{ store *fakeStore }

func (r shopRepo) GetByID(ctx context.Context, id int32) (*entities.Shop, error) {
	return r.store.GetShopByID(ctx, id)
}

func (r shopRepo) Departments(ctx context.Context, shopID int32) ([]*entities.Department, error) {
	return r.store.ShopDepartments(ctx, shopID)
}

// QueueTx (called with mu held via InShopTx)

func (f *fakeStore) Ticket(id int32) (*entities.Ticket, error) {
	return f.ticketLocked(id)
}

func (f *fakeStore) Insert(t *entities.Ticket) error {
	t.ID = f.nextID
	f.nextID++
	f.tickets[t.ID] = t
	return nil
}

func (f *fakeStore) Delete(id int32) error {
	if _, ok := f.tickets[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("ticket with id %d not found", id))
	}
	delete(f.tickets, id)
	return nil
}

func (f *fakeStore) HasActiveTicket(customerID, shopID int32, now time.Time) (bool, error) {
	for _, t := range f.tickets {
		if t.CustomerID == customerID && t.ShopID == shopID &&
			t.ExitedAt == nil && t.Valid && t.Active && !t.Expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ShopAcceptingTickets(shopID int32) (bool, error) {
	shop, ok := f.shops[shopID]
	if !ok {
		return false, apperrors.NewNotFoundError(fmt.Sprintf("shop with id %d not found", shopID))
	}
	return shop.AcceptingTickets, nil
}

func (f *fakeStore) WaitingSnapshot(shopID int32, now time.Time) ([]*entities.Ticket, error) {
	return f.waitingLocked(shopID, now), nil
}

func (f *fakeStore) InsideSnapshot(shopID int32) ([]*entities.Ticket, error) {
	var out []*entities.Ticket
	for _, t := range f.tickets {
		if t.ShopID == shopID && t.Inside() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Departments(shopID int32) ([]*entities.Department, error) {
	return f.departmentsLocked(shopID), nil
}

func (f *fakeStore) SetEntry(id int32, at time.Time) error {
	t, err := f.ticketLocked(id)
	if err != nil {
		return err
	}
	if t.EnteredAt != nil || t.ExitedAt != nil {
		return apperrors.NewConflictError(fmt.Sprintf("ticket %d: entry already recorded", id))
	}
	at2 := at
	t.EnteredAt = &at2
	return nil
}

func (f *fakeStore) SetExit(id int32, at time.Time) error {
	t, err := f.ticketLocked(id)
	if err != nil {
		return err
	}
	if t.ExitedAt != nil {
		return apperrors.NewConflictError(fmt.Sprintf("ticket %d: exit already recorded", id))
	}
	at2 := at
	t.ExitedAt = &at2
	return nil
}

func (f *fakeStore) UpdateAverages(d *entities.Department) error {
	stored, ok := f.departments[d.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("department with id %d not found", d.ID))
	}
	stored.MAExpectedDuration = d.MAExpectedDuration
	stored.MAMeasuredDuration = d.MAMeasuredDuration
	return nil
}

// helpers

func (f *fakeStore) ticketLocked(id int32) (*entities.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ticket with id %d not found", id))
	}
	return t, nil
}

func (f *fakeStore) waitingLocked(shopID int32, now time.Time) []*entities.Ticket {
	var out []*entities.Ticket
	for _, t := range f.tickets {
		if t.ShopID == shopID && t.Waiting(now) {
			out = append(out, t)
		}
	}
	sortFIFO(out)
	return out
}

func (f *fakeStore) departmentsLocked(shopID int32) []*entities.Department {
	var out []*entities.Department
	for _, d := range f.departments {
		if d.ShopID == shopID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortFIFO(tickets []*entities.Ticket) {
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Before(tickets[j]) })
}

// fakeEventBus records published events
type fakeEventBus struct {
	mu       sync.Mutex
	events   []*entities.QueueEvent
	failWith error
}

func (b *fakeEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.events = append(b.events, event)
	return nil
}

func (b *fakeEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error) {
	return nil, nil
}

func (b *fakeEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *fakeEventBus) Close() error { return nil }

func (b *fakeEventBus) types() []entities.QueueEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []entities.QueueEventType
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}
