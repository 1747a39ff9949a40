package services

import (
	"sort"
	"time"

	"github.com/queueup/backend/internal/domain/entities"
)

// DecideEntry is the admission check, a pure function over an in-memory
// snapshot of one shop's queue state. The caller is responsible for taking
// the snapshot and applying the result inside the shop's critical section;
// keeping the decision itself storage-free makes it directly testable.
//
// waiting is the shop's waiting set, inside the set of tickets currently
// occupying departments, departments the shop's full department list.
func DecideEntry(t *entities.Ticket, waiting, inside []*entities.Ticket, departments []*entities.Department, now time.Time) EnterResult {
	// A finished or expired ticket can never re-enter.
	if t.ExitedAt != nil || t.Expired(now) {
		return EnterResult{Outcome: EnterExpired}
	}
	// Entry is recorded at most once; a soft-invalidated ticket is unusable.
	if t.EnteredAt != nil || !t.Valid || !t.Active {
		return EnterResult{Outcome: EnterInvalid}
	}

	if ahead := CountAhead(t, waiting, now); ahead > 0 {
		return EnterResult{Outcome: EnterNotFirst, Ahead: ahead}
	}

	// Check the ticket's target departments in ascending id order so the
	// reported over-capacity department is deterministic.
	ordered := make([]*entities.Department, len(departments))
	copy(ordered, departments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, d := range ordered {
		if !t.Targets(d.ID) {
			continue
		}
		if DepartmentOccupants(inside, d.ID) >= d.Capacity {
			return EnterResult{Outcome: EnterFull, DepartmentID: d.ID}
		}
	}

	return EnterResult{Outcome: EnterEntered}
}

// CountAhead returns how many tickets in the waiting set precede t in the
// FIFO order (creation ascending, ties by id), excluding t itself.
func CountAhead(t *entities.Ticket, waiting []*entities.Ticket, now time.Time) int {
	ahead := 0
	for _, w := range waiting {
		if w.ID == t.ID {
			continue
		}
		if w.Waiting(now) && w.Before(t) {
			ahead++
		}
	}
	return ahead
}

// DepartmentOccupants counts the tickets in the inside set that target the
// given department. Occupancy is always derived from ticket state, never
// stored.
func DepartmentOccupants(inside []*entities.Ticket, departmentID int32) int {
	n := 0
	for _, t := range inside {
		if t.Inside() && t.Targets(departmentID) {
			n++
		}
	}
	return n
}
