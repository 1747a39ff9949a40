package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/queueup/backend/internal/application/services"
	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/pkg/encoding"
)

// TicketService defines the interface for ticket lifecycle operations
type TicketService interface {
	Create(ctx context.Context, customerID, shopID int32, departmentIDs []int32, estMinutes int) (services.CreateResult, error)
	CancelByCustomer(ctx context.Context, customerID, ticketID int32) error
	CancelByStaff(ctx context.Context, staff services.StaffIdentity, ticketID int32) error
	ListByCustomer(ctx context.Context, customerID int32) ([]*entities.Ticket, error)
}

// QueueReader defines the interface for customer-facing queue queries
type QueueReader interface {
	Estimate(ctx context.Context, customerID, ticketID int32) (services.EstimateResult, error)
}

// TicketHandler handles customer ticket requests
type TicketHandler struct {
	tickets TicketService
	queue   QueueReader
	codec   *encoding.Codec
	clock   func() time.Time
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets TicketService, queue QueueReader, codec *encoding.Codec) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		queue:   queue,
		codec:   codec,
		clock:   time.Now,
	}
}

type createTicketRequest struct {
	DepartmentIDs []string `json:"department_ids"`
	EstMinutes    int      `json:"est_minutes"`
}

// CreateTicket handles POST /api/shops/{shopId}/tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerFromRequest(h.codec, r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	shopID, err := h.codec.Decode(r.PathValue("shopId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed shop id")
		return
	}

	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	departmentIDs, err := h.codec.DecodeAll(req.DepartmentIDs)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed department id")
		return
	}

	result, err := h.tickets.Create(r.Context(), customerID, shopID, departmentIDs, req.EstMinutes)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	switch result.Outcome {
	case services.CreateCreated:
		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"result": result.Outcome,
			"ticket": newTicketView(h.codec, result.Ticket, h.clock()),
		})
	default:
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"result": result.Outcome,
		})
	}
}

// ListTickets handles GET /api/tickets
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerFromRequest(h.codec, r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	tickets, err := h.tickets.ListByCustomer(r.Context(), customerID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": newTicketViews(h.codec, tickets, h.clock()),
	})
}

// GetEstimate handles GET /api/tickets/{uid}/estimate
func (h *TicketHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerFromRequest(h.codec, r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	ticketID, err := h.codec.Decode(r.PathValue("uid"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed ticket id")
		return
	}

	result, err := h.queue.Estimate(r.Context(), customerID, ticketID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	switch result.Outcome {
	case services.EstimateOK:
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"result": result.Outcome,
			"people": result.People,
			"eta":    result.ETA,
		})
	case services.EstimateNotOwner:
		respondWithJSON(w, http.StatusForbidden, map[string]interface{}{"result": result.Outcome})
	case services.EstimateInvalidOrExpired:
		respondWithJSON(w, http.StatusGone, map[string]interface{}{"result": result.Outcome})
	default:
		respondWithJSON(w, http.StatusNotFound, map[string]interface{}{"result": result.Outcome})
	}
}

// CancelTicket handles DELETE /api/tickets/{uid}. Owners cancel their own
// tickets; shop staff cancel any waiting ticket of their shop.
func (h *TicketHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.codec.Decode(r.PathValue("uid"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed ticket id")
		return
	}

	if isStaffRequest(r) {
		staff, err := staffFromRequest(h.codec, r)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		if err := h.tickets.CancelByStaff(r.Context(), staff, ticketID); err != nil {
			respondWithAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	customerID, err := customerFromRequest(h.codec, r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if err := h.tickets.CancelByCustomer(r.Context(), customerID, ticketID); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
