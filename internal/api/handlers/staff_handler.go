package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/queueup/backend/internal/application/services"
	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/pkg/encoding"
)

// AdmissionService defines the interface for admission attempts
type AdmissionService interface {
	TryEnter(ctx context.Context, staff services.StaffIdentity, ticketID int32) (services.EnterResult, error)
}

// ExitRecorder defines the interface for recording visit completions
type ExitRecorder interface {
	Exit(ctx context.Context, staff services.StaffIdentity, ticketID int32) (bool, error)
}

// StaffQueueService defines the interface for staff queue views
type StaffQueueService interface {
	Queue(ctx context.Context, staff services.StaffIdentity, shopID int32) ([]*entities.Ticket, error)
	Occupancy(ctx context.Context, staff services.StaffIdentity, shopID int32) ([]services.DepartmentStatus, error)
}

// StaffHandler handles staff-side queue operations
type StaffHandler struct {
	admission AdmissionService
	exits     ExitRecorder
	queue     StaffQueueService
	codec     *encoding.Codec
	clock     func() time.Time
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(admission AdmissionService, exits ExitRecorder, queue StaffQueueService, codec *encoding.Codec) *StaffHandler {
	return &StaffHandler{
		admission: admission,
		exits:     exits,
		queue:     queue,
		codec:     codec,
		clock:     time.Now,
	}
}

// staffForShop extracts staff identity and rejects staff acting on a shop
// other than their own.
func (h *StaffHandler) staffForShop(r *http.Request) (services.StaffIdentity, int32, error) {
	staff, err := staffFromRequest(h.codec, r)
	if err != nil {
		return services.StaffIdentity{}, 0, err
	}
	shopID, err := h.codec.Decode(r.PathValue("shopId"))
	if err != nil {
		return services.StaffIdentity{}, 0, err
	}
	return staff, shopID, nil
}

// RecordEntry handles POST /api/shops/{shopId}/tickets/{uid}/entry
func (h *StaffHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	staff, shopID, err := h.staffForShop(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if staff.ShopID != shopID {
		respondWithError(w, http.StatusForbidden, "staff cannot act for this shop")
		return
	}

	ticketID, err := h.codec.Decode(r.PathValue("uid"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed ticket id")
		return
	}

	result, err := h.admission.TryEnter(r.Context(), staff, ticketID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	switch result.Outcome {
	case services.EnterEntered:
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"result": result.Outcome,
		})
	case services.EnterNotFirst:
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"result": result.Outcome,
			"ahead":  result.Ahead,
		})
	case services.EnterFull:
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"result":        result.Outcome,
			"department_id": h.codec.Encode(result.DepartmentID),
		})
	case services.EnterExpired:
		respondWithJSON(w, http.StatusGone, map[string]interface{}{
			"result": result.Outcome,
		})
	default:
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"result": result.Outcome,
		})
	}
}

// RecordExit handles POST /api/shops/{shopId}/tickets/{uid}/exit
func (h *StaffHandler) RecordExit(w http.ResponseWriter, r *http.Request) {
	staff, shopID, err := h.staffForShop(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if staff.ShopID != shopID {
		respondWithError(w, http.StatusForbidden, "staff cannot act for this shop")
		return
	}

	ticketID, err := h.codec.Decode(r.PathValue("uid"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed ticket id")
		return
	}

	exited, err := h.exits.Exit(r.Context(), staff, ticketID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if !exited {
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"result": "not_entered",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"result": "exited",
	})
}

// GetQueue handles GET /api/shops/{shopId}/queue
func (h *StaffHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	staff, shopID, err := h.staffForShop(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	tickets, err := h.queue.Queue(r.Context(), staff, shopID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": newTicketViews(h.codec, tickets, h.clock()),
	})
}

// GetOccupancy handles GET /api/shops/{shopId}/occupancy
func (h *StaffHandler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	staff, shopID, err := h.staffForShop(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	statuses, err := h.queue.Occupancy(r.Context(), staff, shopID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"departments": newOccupancyViews(h.codec, statuses),
	})
}
