package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueup/backend/internal/api/handlers"
	"github.com/queueup/backend/internal/application/services"
	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/pkg/encoding"
	apperrors "github.com/queueup/backend/pkg/errors"
)

var testCodec = encoding.NewCodec(0xdeadbeef)

type stubTicketService struct {
	createResult services.CreateResult
	createErr    error
	cancelErr    error
	tickets      []*entities.Ticket

	createdFor   []int32
	cancelled    []int32
	staffCancels []int32
}

func (s *stubTicketService) Create(ctx context.Context, customerID, shopID int32, departmentIDs []int32, estMinutes int) (services.CreateResult, error) {
	s.createdFor = append(s.createdFor, customerID)
	return s.createResult, s.createErr
}

func (s *stubTicketService) CancelByCustomer(ctx context.Context, customerID, ticketID int32) error {
	s.cancelled = append(s.cancelled, ticketID)
	return s.cancelErr
}

func (s *stubTicketService) CancelByStaff(ctx context.Context, staff services.StaffIdentity, ticketID int32) error {
	s.staffCancels = append(s.staffCancels, ticketID)
	return s.cancelErr
}

func (s *stubTicketService) ListByCustomer(ctx context.Context, customerID int32) ([]*entities.Ticket, error) {
	return s.tickets, nil
}

type stubQueueReader struct {
	result services.EstimateResult
	err    error
}

func (s *stubQueueReader) Estimate(ctx context.Context, customerID, ticketID int32) (services.EstimateResult, error) {
	return s.result, s.err
}

func sampleTicket(id int32) *entities.Ticket {
	creation := time.Now().UTC().Truncate(time.Second)
	return &entities.Ticket{
		ID:            id,
		CustomerID:    7,
		ShopID:        1,
		DepartmentIDs: []int32{1},
		Creation:      creation,
		Expiration:    creation.Add(6 * time.Hour),
		EstMinutes:    15,
		Valid:         true,
		Active:        true,
	}
}

func TestCreateTicketSuccess(t *testing.T) {
	ticket := sampleTicket(12)
	service := &stubTicketService{
		createResult: services.CreateResult{Outcome: services.CreateCreated, Ticket: ticket},
	}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	body := fmt.Sprintf(`{"department_ids":[%q],"est_minutes":15}`, testCodec.Encode(1))
	req := httptest.NewRequest("POST", "/api/shops/x/tickets", strings.NewReader(body))
	req.SetPathValue("shopId", testCodec.Encode(1))
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.CreateTicket(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Result string `json:"result"`
		Ticket struct {
			ID     string `json:"id"`
			ShopID string `json:"shop_id"`
			State  string `json:"state"`
		} `json:"ticket"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "created", response.Result)
	assert.Equal(t, testCodec.Encode(12), response.Ticket.ID)
	assert.Equal(t, testCodec.Encode(1), response.Ticket.ShopID)
	assert.Equal(t, "waiting", response.Ticket.State)
	assert.Equal(t, []int32{7}, service.createdFor)
}

func TestCreateTicketDuplicate(t *testing.T) {
	service := &stubTicketService{
		createResult: services.CreateResult{Outcome: services.CreateDuplicateActive},
	}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	body := fmt.Sprintf(`{"department_ids":[%q],"est_minutes":15}`, testCodec.Encode(1))
	req := httptest.NewRequest("POST", "/api/shops/x/tickets", strings.NewReader(body))
	req.SetPathValue("shopId", testCodec.Encode(1))
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.CreateTicket(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "duplicate_active", response["result"])
}

func TestCreateTicketRequiresIdentity(t *testing.T) {
	handler := handlers.NewTicketHandler(&stubTicketService{}, &stubQueueReader{}, testCodec)

	req := httptest.NewRequest("POST", "/api/shops/x/tickets", strings.NewReader(`{}`))
	req.SetPathValue("shopId", testCodec.Encode(1))
	w := httptest.NewRecorder()

	handler.CreateTicket(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateTicketMalformedShopID(t *testing.T) {
	handler := handlers.NewTicketHandler(&stubTicketService{}, &stubQueueReader{}, testCodec)

	req := httptest.NewRequest("POST", "/api/shops/x/tickets", strings.NewReader(`{}`))
	req.SetPathValue("shopId", "not-hex")
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.CreateTicket(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTicketValidationErrorFromService(t *testing.T) {
	service := &stubTicketService{createErr: apperrors.NewValidationError("estimated minutes must be positive")}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	body := fmt.Sprintf(`{"department_ids":[%q],"est_minutes":0}`, testCodec.Encode(1))
	req := httptest.NewRequest("POST", "/api/shops/x/tickets", strings.NewReader(body))
	req.SetPathValue("shopId", testCodec.Encode(1))
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.CreateTicket(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTickets(t *testing.T) {
	service := &stubTicketService{tickets: []*entities.Ticket{sampleTicket(3), sampleTicket(4)}}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	req := httptest.NewRequest("GET", "/api/tickets", nil)
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.ListTickets(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Tickets []struct {
			ID string `json:"id"`
		} `json:"tickets"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Tickets, 2)
	assert.Equal(t, testCodec.Encode(3), response.Tickets[0].ID)
}

func TestGetEstimateOK(t *testing.T) {
	eta := time.Date(2025, 6, 1, 9, 45, 0, 0, time.UTC)
	reader := &stubQueueReader{
		result: services.EstimateResult{Outcome: services.EstimateOK, People: 2, ETA: eta},
	}
	handler := handlers.NewTicketHandler(&stubTicketService{}, reader, testCodec)

	req := httptest.NewRequest("GET", "/api/tickets/x/estimate", nil)
	req.SetPathValue("uid", testCodec.Encode(3))
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.GetEstimate(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Result string    `json:"result"`
		People int       `json:"people"`
		ETA    time.Time `json:"eta"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response.Result)
	assert.Equal(t, 2, response.People)
	assert.True(t, eta.Equal(response.ETA))
}

func TestGetEstimateOutcomes(t *testing.T) {
	cases := []struct {
		outcome services.EstimateOutcome
		status  int
	}{
		{services.EstimateNotOwner, http.StatusForbidden},
		{services.EstimateInvalidOrExpired, http.StatusGone},
		{services.EstimateNotInQueue, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(string(tc.outcome), func(t *testing.T) {
			reader := &stubQueueReader{result: services.EstimateResult{Outcome: tc.outcome}}
			handler := handlers.NewTicketHandler(&stubTicketService{}, reader, testCodec)

			req := httptest.NewRequest("GET", "/api/tickets/x/estimate", nil)
			req.SetPathValue("uid", testCodec.Encode(3))
			req.Header.Set("X-Customer-ID", testCodec.Encode(7))
			w := httptest.NewRecorder()

			handler.GetEstimate(w, req)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestCancelTicketByCustomer(t *testing.T) {
	service := &stubTicketService{}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	req := httptest.NewRequest("DELETE", "/api/tickets/x", nil)
	req.SetPathValue("uid", testCodec.Encode(3))
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.CancelTicket(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int32{3}, service.cancelled)
	assert.Empty(t, service.staffCancels)
}

func TestCancelTicketByStaff(t *testing.T) {
	service := &stubTicketService{}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	req := httptest.NewRequest("DELETE", "/api/tickets/x", nil)
	req.SetPathValue("uid", testCodec.Encode(3))
	req.Header.Set("X-Staff-ID", testCodec.Encode(100))
	req.Header.Set("X-Staff-Shop-ID", testCodec.Encode(1))
	w := httptest.NewRecorder()

	handler.CancelTicket(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int32{3}, service.staffCancels)
	assert.Empty(t, service.cancelled)
}

func TestCancelEnteredTicketConflict(t *testing.T) {
	service := &stubTicketService{cancelErr: apperrors.NewConflictError("ticket already entered, log an exit instead")}
	handler := handlers.NewTicketHandler(service, &stubQueueReader{}, testCodec)

	req := httptest.NewRequest("DELETE", "/api/tickets/x", nil)
	req.SetPathValue("uid", testCodec.Encode(3))
	req.Header.Set("X-Customer-ID", testCodec.Encode(7))
	w := httptest.NewRecorder()

	handler.CancelTicket(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
