package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/repositories"
	"github.com/queueup/backend/internal/infrastructure/clients/postgres"
	"github.com/queueup/backend/internal/infrastructure/observability"
	apperrors "github.com/queueup/backend/pkg/errors"
	"github.com/queueup/backend/pkg/retry"
)

// dialect builds SQL detached from a connection so the same datasets can run
// on the pool or inside a transaction.
var dialect = goqu.Dialect("postgres")

// querier is the common surface of *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var ticketColumns = []any{
	"id", "customer_id", "shop_id", "creation", "expiration",
	"est_minutes", "entered_at", "exited_at", "valid", "active",
}

// TicketAdapter implements the TicketRepository interface
type TicketAdapter struct {
	client  *postgres.Client
	metrics *observability.Metrics
}

// NewTicketAdapter creates a new ticket adapter. metrics may be nil.
func NewTicketAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.TicketRepository {
	return &TicketAdapter{client: client, metrics: metrics}
}

// GetByID retrieves a ticket with its department associations
func (a *TicketAdapter) GetByID(ctx context.Context, id int32) (*entities.Ticket, error) {
	return getTicket(ctx, a.client.DB(), id)
}

// ListByCustomer retrieves all tickets of a customer, FIFO order
func (a *TicketAdapter) ListByCustomer(ctx context.Context, customerID int32) ([]*entities.Ticket, error) {
	ds := dialect.From("tickets").Select(ticketColumns...).
		Where(goqu.Ex{"customer_id": customerID}).
		Order(goqu.I("creation").Asc(), goqu.I("id").Asc())
	return queryTickets(ctx, a.client.DB(), ds)
}

// Queue retrieves a shop's waiting tickets in FIFO order
func (a *TicketAdapter) Queue(ctx context.Context, shopID int32, now time.Time) ([]*entities.Ticket, error) {
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, a.metrics, "queue", time.Since(start))
	}()
	return queryTickets(ctx, a.client.DB(), waitingDataset(shopID, now))
}

// Occupancy derives per-department occupant counts from ticket state. The
// LEFT JOINs keep departments with no occupants in the result.
func (a *TicketAdapter) Occupancy(ctx context.Context, shopID int32) ([]repositories.DepartmentOccupancy, error) {
	ds := dialect.From("departments").Select(
		goqu.I("departments.id"),
		goqu.I("departments.shop_id"),
		goqu.I("departments.description"),
		goqu.I("departments.capacity"),
		goqu.I("departments.ma_expected_duration"),
		goqu.I("departments.ma_measured_duration"),
		goqu.COUNT(goqu.I("tickets.id")).As("occupants"),
	).
		LeftJoin(goqu.T("ticket_departments"), goqu.On(
			goqu.I("ticket_departments.department_id").Eq(goqu.I("departments.id")),
		)).
		LeftJoin(goqu.T("tickets"), goqu.On(
			goqu.I("tickets.id").Eq(goqu.I("ticket_departments.ticket_id")),
			goqu.I("tickets.entered_at").IsNotNull(),
			goqu.I("tickets.exited_at").IsNull(),
		)).
		Where(goqu.I("departments.shop_id").Eq(shopID)).
		GroupBy(goqu.I("departments.id")).
		Order(goqu.I("departments.id").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build occupancy query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to compute occupancy", err)
	}
	defer rows.Close()

	var result []repositories.DepartmentOccupancy
	for rows.Next() {
		d := &entities.Department{}
		var occupants int
		err := rows.Scan(
			&d.ID,
			&d.ShopID,
			&d.Description,
			&d.Capacity,
			&d.MAExpectedDuration,
			&d.MAMeasuredDuration,
			&occupants,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan occupancy row", err)
		}
		result = append(result, repositories.DepartmentOccupancy{Department: d, Occupants: occupants})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read occupancy rows", err)
	}
	return result, nil
}

// InShopTx runs fn inside a serializable transaction holding the shop's
// advisory lock. Serialization conflicts are retried with backoff; fn
// re-reads all state on every attempt, so retrying the whole unit is safe.
func (a *TicketAdapter) InShopTx(ctx context.Context, shopID int32, fn func(tx repositories.QueueTx) error) error {
	// Duration covers retries: it measures how long the shop lock and
	// serialization conflicts actually cost the caller.
	start := time.Now()
	defer func() {
		observability.RecordDBMetric(ctx, a.metrics, "shop_tx", time.Since(start))
	}()

	run := func() error {
		tx, err := a.client.BeginSerializable(ctx)
		if err != nil {
			return apperrors.NewInternalError("failed to begin transaction", err)
		}

		// Per-shop mutual exclusion: held until commit or rollback.
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", int64(shopID)); err != nil {
			tx.Rollback()
			return apperrors.NewInternalError("failed to acquire shop lock", err)
		}

		if err := fn(&queueTx{ctx: ctx, tx: tx}); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return apperrors.NewInternalError("failed to commit transaction", err)
		}
		return nil
	}

	return retry.DoIf(ctx, retry.TxConflictConfig(), run, isSerializationFailure)
}

// isSerializationFailure matches Postgres serialization_failure and
// deadlock_detected, the two outcomes worth re-running the transaction for.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// queueTx implements repositories.QueueTx on an open transaction
type queueTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (q *queueTx) Ticket(id int32) (*entities.Ticket, error) {
	return getTicket(q.ctx, q.tx, id)
}

func (q *queueTx) Insert(t *entities.Ticket) error {
	query, args, err := dialect.Insert("tickets").Rows(goqu.Record{
		"customer_id": t.CustomerID,
		"shop_id":     t.ShopID,
		"creation":    t.Creation,
		"expiration":  t.Expiration,
		"est_minutes": t.EstMinutes,
		"valid":       t.Valid,
		"active":      t.Active,
	}).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := q.tx.QueryRowContext(q.ctx, query, args...).Scan(&t.ID); err != nil {
		return apperrors.NewInternalError("failed to create ticket", err)
	}

	records := make([]any, 0, len(t.DepartmentIDs))
	for _, did := range t.DepartmentIDs {
		records = append(records, goqu.Record{
			"ticket_id":     t.ID,
			"department_id": did,
		})
	}
	query, args, err = dialect.Insert("ticket_departments").Rows(records...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build association query", err)
	}
	if _, err := q.tx.ExecContext(q.ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create ticket associations", err)
	}
	return nil
}

func (q *queueTx) Delete(id int32) error {
	query, args, err := dialect.Delete("ticket_departments").Where(goqu.Ex{"ticket_id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := q.tx.ExecContext(q.ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete ticket associations", err)
	}

	query, args, err = dialect.Delete("tickets").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	result, err := q.tx.ExecContext(q.ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete ticket", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("ticket with id %d not found", id))
	}
	return nil
}

func (q *queueTx) HasActiveTicket(customerID, shopID int32, now time.Time) (bool, error) {
	ds := dialect.From("tickets").Select(goqu.COUNT("*")).Where(
		goqu.Ex{
			"customer_id": customerID,
			"shop_id":     shopID,
			"exited_at":   nil,
			"valid":       true,
			"active":      true,
		},
		goqu.C("expiration").Gt(now),
	)
	query, args, err := ds.ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build duplicate check query", err)
	}

	var count int
	if err := q.tx.QueryRowContext(q.ctx, query, args...).Scan(&count); err != nil {
		return false, apperrors.NewInternalError("failed to check for active ticket", err)
	}
	return count > 0, nil
}

func (q *queueTx) ShopAcceptingTickets(shopID int32) (bool, error) {
	query, args, err := dialect.From("shops").Select("accepting_tickets").
		Where(goqu.Ex{"id": shopID}).ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var accepting bool
	err = q.tx.QueryRowContext(q.ctx, query, args...).Scan(&accepting)
	if err == sql.ErrNoRows {
		return false, apperrors.NewNotFoundError(fmt.Sprintf("shop with id %d not found", shopID))
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to read shop booking flag", err)
	}
	return accepting, nil
}

func (q *queueTx) WaitingSnapshot(shopID int32, now time.Time) ([]*entities.Ticket, error) {
	return queryTickets(q.ctx, q.tx, waitingDataset(shopID, now))
}

func (q *queueTx) InsideSnapshot(shopID int32) ([]*entities.Ticket, error) {
	ds := dialect.From("tickets").Select(ticketColumns...).
		Where(goqu.Ex{"shop_id": shopID, "exited_at": nil}).
		Where(goqu.C("entered_at").IsNotNull()).
		Order(goqu.I("id").Asc())
	return queryTickets(q.ctx, q.tx, ds)
}

func (q *queueTx) Departments(shopID int32) ([]*entities.Department, error) {
	query, args, err := departmentsDataset(dialect.From("departments"), shopID).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	rows, err := q.tx.QueryContext(q.ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list departments", err)
	}
	defer rows.Close()
	return scanDepartments(rows)
}

func (q *queueTx) SetEntry(id int32, at time.Time) error {
	// The guard duplicates the decision layer's check on purpose: entry is
	// recorded at most once even if a bug lets a second admission through.
	return q.setInstant(id, goqu.Record{"entered_at": at},
		goqu.Ex{"id": id, "entered_at": nil, "exited_at": nil},
		"entry already recorded")
}

func (q *queueTx) SetExit(id int32, at time.Time) error {
	return q.setInstant(id, goqu.Record{"exited_at": at},
		goqu.Ex{"id": id, "exited_at": nil},
		"exit already recorded")
}

func (q *queueTx) setInstant(id int32, record goqu.Record, guard goqu.Ex, conflictMsg string) error {
	query, args, err := dialect.Update("tickets").Set(record).Where(guard).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	result, err := q.tx.ExecContext(q.ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update ticket", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("ticket %d: %s", id, conflictMsg))
	}
	return nil
}

func (q *queueTx) UpdateAverages(d *entities.Department) error {
	query, args, err := dialect.Update("departments").Set(goqu.Record{
		"ma_expected_duration": d.MAExpectedDuration,
		"ma_measured_duration": d.MAMeasuredDuration,
	}).Where(goqu.Ex{"id": d.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := q.tx.ExecContext(q.ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update moving averages", err)
	}
	return nil
}

// waitingDataset selects a shop's waiting set: not entered, not exited,
// usable, not expired, FIFO order with id tie-break.
func waitingDataset(shopID int32, now time.Time) *goqu.SelectDataset {
	return dialect.From("tickets").Select(ticketColumns...).
		Where(
			goqu.Ex{
				"shop_id":    shopID,
				"entered_at": nil,
				"exited_at":  nil,
				"valid":      true,
				"active":     true,
			},
			goqu.C("expiration").Gt(now),
		).
		Order(goqu.I("creation").Asc(), goqu.I("id").Asc())
}

func getTicket(ctx context.Context, db querier, id int32) (*entities.Ticket, error) {
	query, args, err := dialect.From("tickets").Select(ticketColumns...).
		Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	t := &entities.Ticket{}
	var enteredAt, exitedAt sql.NullTime
	err = db.QueryRowContext(ctx, query, args...).Scan(
		&t.ID,
		&t.CustomerID,
		&t.ShopID,
		&t.Creation,
		&t.Expiration,
		&t.EstMinutes,
		&enteredAt,
		&exitedAt,
		&t.Valid,
		&t.Active,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ticket with id %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get ticket", err)
	}
	if enteredAt.Valid {
		t.EnteredAt = &enteredAt.Time
	}
	if exitedAt.Valid {
		t.ExitedAt = &exitedAt.Time
	}

	if err := attachDepartments(ctx, db, []*entities.Ticket{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func queryTickets(ctx context.Context, db querier, ds *goqu.SelectDataset) ([]*entities.Ticket, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list tickets", err)
	}
	defer rows.Close()

	var tickets []*entities.Ticket
	for rows.Next() {
		t := &entities.Ticket{}
		var enteredAt, exitedAt sql.NullTime
		err := rows.Scan(
			&t.ID,
			&t.CustomerID,
			&t.ShopID,
			&t.Creation,
			&t.Expiration,
			&t.EstMinutes,
			&enteredAt,
			&exitedAt,
			&t.Valid,
			&t.Active,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan ticket", err)
		}
		if enteredAt.Valid {
			t.EnteredAt = &enteredAt.Time
		}
		if exitedAt.Valid {
			t.ExitedAt = &exitedAt.Time
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read tickets", err)
	}

	if err := attachDepartments(ctx, db, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// attachDepartments loads the department associations for a batch of tickets
// in one query.
func attachDepartments(ctx context.Context, db querier, tickets []*entities.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	ids := make([]int32, 0, len(tickets))
	byID := make(map[int32]*entities.Ticket, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	query, args, err := dialect.From("ticket_departments").
		Select("ticket_id", "department_id").
		Where(goqu.C("ticket_id").In(ids)).
		Order(goqu.I("ticket_id").Asc(), goqu.I("department_id").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build association query", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to list ticket associations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticketID, departmentID int32
		if err := rows.Scan(&ticketID, &departmentID); err != nil {
			return apperrors.NewInternalError("failed to scan association", err)
		}
		if t, ok := byID[ticketID]; ok {
			t.DepartmentIDs = append(t.DepartmentIDs, departmentID)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewInternalError("failed to read associations", err)
	}
	return nil
}
