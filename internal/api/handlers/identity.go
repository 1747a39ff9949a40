package handlers

import (
	"net/http"

	"github.com/queueup/backend/internal/application/services"
	"github.com/queueup/backend/pkg/encoding"
	apperrors "github.com/queueup/backend/pkg/errors"
)

// Identity headers carry encoded serial ids placed by the auth layer in
// front of this service. Handlers never trust a raw integer id from outside.
const (
	headerCustomerID  = "X-Customer-ID"
	headerStaffID     = "X-Staff-ID"
	headerStaffShopID = "X-Staff-Shop-ID"
)

// customerFromRequest extracts the calling customer's id
func customerFromRequest(codec *encoding.Codec, r *http.Request) (int32, error) {
	raw := r.Header.Get(headerCustomerID)
	if raw == "" {
		return 0, apperrors.NewUnauthorizedError("customer identity required")
	}
	id, err := codec.Decode(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("malformed customer id")
	}
	return id, nil
}

// staffFromRequest extracts the calling staff member's identity
func staffFromRequest(codec *encoding.Codec, r *http.Request) (services.StaffIdentity, error) {
	rawID := r.Header.Get(headerStaffID)
	rawShop := r.Header.Get(headerStaffShopID)
	if rawID == "" || rawShop == "" {
		return services.StaffIdentity{}, apperrors.NewUnauthorizedError("staff identity required")
	}

	id, err := codec.Decode(rawID)
	if err != nil {
		return services.StaffIdentity{}, apperrors.NewValidationError("malformed staff id")
	}
	shopID, err := codec.Decode(rawShop)
	if err != nil {
		return services.StaffIdentity{}, apperrors.NewValidationError("malformed staff shop id")
	}
	return services.StaffIdentity{ID: id, ShopID: shopID}, nil
}

// isStaffRequest reports whether the request carries staff identity headers
func isStaffRequest(r *http.Request) bool {
	return r.Header.Get(headerStaffID) != "" && r.Header.Get(headerStaffShopID) != ""
}
