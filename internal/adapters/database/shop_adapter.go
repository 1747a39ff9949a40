package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/internal/domain/repositories"
	"github.com/queueup/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/queueup/backend/pkg/errors"
)

// ShopAdapter implements the ShopRepository interface
type ShopAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewShopAdapter creates a new shop adapter
func NewShopAdapter(client *postgres.Client) repositories.ShopRepository {
	return &ShopAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a shop by ID
func (a *ShopAdapter) GetByID(ctx context.Context, id int32) (*entities.Shop, error) {
	query, args, err := a.db.Select(
		"id", "name", "description", "image", "location", "accepting_tickets",
	).From("shops").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	shop := &entities.Shop{}
	var image sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&shop.ID,
		&shop.Name,
		&shop.Description,
		&image,
		&shop.Location,
		&shop.AcceptingTickets,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("shop with id %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get shop", err)
	}

	if image.Valid {
		shop.Image = &image.String
	}
	return shop, nil
}

// Departments retrieves all departments owned by a shop
func (a *ShopAdapter) Departments(ctx context.Context, shopID int32) ([]*entities.Department, error) {
	query, args, err := departmentsDataset(a.db.From("departments"), shopID).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list departments", err)
	}
	defer rows.Close()

	return scanDepartments(rows)
}

// departmentsDataset selects a shop's departments in ascending id order, the
// order capacity checks report in.
func departmentsDataset(ds *goqu.SelectDataset, shopID int32) *goqu.SelectDataset {
	return ds.Select(
		"id", "shop_id", "description", "capacity",
		"ma_expected_duration", "ma_measured_duration",
	).Where(goqu.Ex{"shop_id": shopID}).
		Order(goqu.I("id").Asc())
}

func scanDepartments(rows *sql.Rows) ([]*entities.Department, error) {
	var departments []*entities.Department
	for rows.Next() {
		d := &entities.Department{}
		err := rows.Scan(
			&d.ID,
			&d.ShopID,
			&d.Description,
			&d.Capacity,
			&d.MAExpectedDuration,
			&d.MAMeasuredDuration,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan department", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read departments", err)
	}
	return departments, nil
}
