package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/queueup/backend/internal/domain/entities"
)

var admissionBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func queuedTicket(id int32, creation time.Time, departmentIDs ...int32) *entities.Ticket {
	return &entities.Ticket{
		ID:            id,
		CustomerID:    id,
		ShopID:        1,
		DepartmentIDs: departmentIDs,
		Creation:      creation,
		Expiration:    creation.Add(6 * time.Hour),
		EstMinutes:    15,
		Valid:         true,
		Active:        true,
	}
}

func enteredTicket(id int32, creation time.Time, departmentIDs ...int32) *entities.Ticket {
	t := queuedTicket(id, creation, departmentIDs...)
	entered := creation.Add(time.Minute)
	t.EnteredAt = &entered
	return t
}

func TestDecideEntryFirstInLine(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}

	first := queuedTicket(1, admissionBase, 1)
	second := queuedTicket(2, admissionBase.Add(time.Minute), 1)
	waiting := []*entities.Ticket{first, second}

	result := DecideEntry(first, waiting, nil, []*entities.Department{dept}, now)
	assert.Equal(t, EnterEntered, result.Outcome)
}

func TestDecideEntryNotFirst(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}

	first := queuedTicket(1, admissionBase, 1)
	second := queuedTicket(2, admissionBase.Add(time.Minute), 1)
	third := queuedTicket(3, admissionBase.Add(2*time.Minute), 1)
	waiting := []*entities.Ticket{first, second, third}

	result := DecideEntry(third, waiting, nil, []*entities.Department{dept}, now)
	assert.Equal(t, EnterNotFirst, result.Outcome)
	assert.Equal(t, 2, result.Ahead)
}

func TestDecideEntryCreationTieBrokenByID(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 5}

	lowID := queuedTicket(3, admissionBase, 1)
	highID := queuedTicket(7, admissionBase, 1)
	waiting := []*entities.Ticket{lowID, highID}

	assert.Equal(t, EnterEntered, DecideEntry(lowID, waiting, nil, []*entities.Department{dept}, now).Outcome)

	result := DecideEntry(highID, waiting, nil, []*entities.Department{dept}, now)
	assert.Equal(t, EnterNotFirst, result.Outcome)
	assert.Equal(t, 1, result.Ahead)
}

func TestDecideEntryFullDepartment(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}

	inside := []*entities.Ticket{
		enteredTicket(10, admissionBase, 1),
		enteredTicket(11, admissionBase, 1),
	}
	next := queuedTicket(12, admissionBase.Add(time.Minute), 1)

	result := DecideEntry(next, []*entities.Ticket{next}, inside, []*entities.Department{dept}, now)
	assert.Equal(t, EnterFull, result.Outcome)
	assert.Equal(t, int32(1), result.DepartmentID)
}

func TestDecideEntryReportsLowestFullDepartment(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	departments := []*entities.Department{
		{ID: 5, ShopID: 1, Capacity: 1},
		{ID: 2, ShopID: 1, Capacity: 1},
	}

	// Both target departments are full; the report must name id 2
	// regardless of input slice order.
	inside := []*entities.Ticket{
		enteredTicket(10, admissionBase, 2),
		enteredTicket(11, admissionBase, 5),
	}
	next := queuedTicket(12, admissionBase.Add(time.Minute), 2, 5)

	result := DecideEntry(next, []*entities.Ticket{next}, inside, departments, now)
	assert.Equal(t, EnterFull, result.Outcome)
	assert.Equal(t, int32(2), result.DepartmentID)
}

func TestDecideEntryIgnoresUntargetedFullDepartment(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	departments := []*entities.Department{
		{ID: 1, ShopID: 1, Capacity: 1},
		{ID: 2, ShopID: 1, Capacity: 1},
	}

	// Department 1 is full but the ticket only targets department 2.
	inside := []*entities.Ticket{enteredTicket(10, admissionBase, 1)}
	next := queuedTicket(11, admissionBase.Add(time.Minute), 2)

	result := DecideEntry(next, []*entities.Ticket{next}, inside, departments, now)
	assert.Equal(t, EnterEntered, result.Outcome)
}

func TestDecideEntryExpired(t *testing.T) {
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}
	ticket := queuedTicket(1, admissionBase, 1)

	result := DecideEntry(ticket, []*entities.Ticket{ticket}, nil, []*entities.Department{dept}, ticket.Expiration)
	assert.Equal(t, EnterExpired, result.Outcome)
}

func TestDecideEntryExitedIsExpired(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}

	ticket := enteredTicket(1, admissionBase, 1)
	exited := admissionBase.Add(5 * time.Minute)
	ticket.ExitedAt = &exited

	result := DecideEntry(ticket, nil, nil, []*entities.Department{dept}, now)
	assert.Equal(t, EnterExpired, result.Outcome)
}

func TestDecideEntryAlreadyEnteredIsInvalid(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}

	ticket := enteredTicket(1, admissionBase, 1)

	result := DecideEntry(ticket, nil, []*entities.Ticket{ticket}, []*entities.Department{dept}, now)
	assert.Equal(t, EnterInvalid, result.Outcome)
}

func TestDecideEntryInvalidatedTicket(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)
	dept := &entities.Department{ID: 1, ShopID: 1, Capacity: 2}

	ticket := queuedTicket(1, admissionBase, 1)
	ticket.Valid = false

	result := DecideEntry(ticket, []*entities.Ticket{ticket}, nil, []*entities.Department{dept}, now)
	assert.Equal(t, EnterInvalid, result.Outcome)
}

func TestCountAheadSkipsExpiredWaiters(t *testing.T) {
	now := admissionBase.Add(10 * time.Minute)

	stale := queuedTicket(1, admissionBase.Add(-7*time.Hour), 1)
	fresh := queuedTicket(2, admissionBase, 1)
	mine := queuedTicket(3, admissionBase.Add(time.Minute), 1)

	ahead := CountAhead(mine, []*entities.Ticket{stale, fresh, mine}, now)
	assert.Equal(t, 1, ahead)
}

func TestDepartmentOccupants(t *testing.T) {
	inside := []*entities.Ticket{
		enteredTicket(1, admissionBase, 1),
		enteredTicket(2, admissionBase, 1, 2),
		enteredTicket(3, admissionBase, 2),
	}

	assert.Equal(t, 2, DepartmentOccupants(inside, 1))
	assert.Equal(t, 2, DepartmentOccupants(inside, 2))
	assert.Equal(t, 0, DepartmentOccupants(inside, 3))
}
