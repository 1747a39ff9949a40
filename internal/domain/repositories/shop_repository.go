package repositories

import (
	"context"

	"github.com/queueup/backend/internal/domain/entities"
)

// ShopRepository defines read access to the shop/department catalog. The
// catalog is administered elsewhere; the queue engine only consumes it.
type ShopRepository interface {
	// GetByID retrieves a shop by ID
	GetByID(ctx context.Context, id int32) (*entities.Shop, error)

	// Departments retrieves all departments owned by a shop
	Departments(ctx context.Context, shopID int32) ([]*entities.Department, error)
}
