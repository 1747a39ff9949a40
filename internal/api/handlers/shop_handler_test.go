package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueup/backend/internal/api/handlers"
	"github.com/queueup/backend/internal/domain/entities"
	apperrors "github.com/queueup/backend/pkg/errors"
)

type stubShopInfoService struct {
	shop        *entities.Shop
	departments []*entities.Department
	err         error
}

func (s *stubShopInfoService) ShopInfo(ctx context.Context, shopID int32) (*entities.Shop, []*entities.Department, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.shop, s.departments, nil
}

func TestGetShop(t *testing.T) {
	service := &stubShopInfoService{
		shop: &entities.Shop{ID: 1, Name: "Central Barbershop", Location: "12 Market Street", AcceptingTickets: true},
		departments: []*entities.Department{
			{ID: 1, ShopID: 1, Description: "Chairs", Capacity: 3, MAExpectedDuration: 20, MAMeasuredDuration: 20},
		},
	}
	handler := handlers.NewShopHandler(service, testCodec)

	req := httptest.NewRequest("GET", "/api/shops/x", nil)
	req.SetPathValue("shopId", testCodec.Encode(1))
	w := httptest.NewRecorder()

	handler.GetShop(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		AcceptingTickets bool   `json:"accepting_tickets"`
		Departments      []struct {
			ID                 string  `json:"id"`
			Capacity           int     `json:"capacity"`
			EstimatedVisitTime float64 `json:"estimated_visit_minutes"`
		} `json:"departments"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, testCodec.Encode(1), response.ID)
	assert.Equal(t, "Central Barbershop", response.Name)
	assert.True(t, response.AcceptingTickets)
	require.Len(t, response.Departments, 1)
	// 20*0.35 + 20*0.65 + 2
	assert.InDelta(t, 22, response.Departments[0].EstimatedVisitTime, 1e-9)
}

func TestGetShopNotFound(t *testing.T) {
	service := &stubShopInfoService{err: apperrors.NewNotFoundError("shop with id 9 not found")}
	handler := handlers.NewShopHandler(service, testCodec)

	req := httptest.NewRequest("GET", "/api/shops/x", nil)
	req.SetPathValue("shopId", testCodec.Encode(9))
	w := httptest.NewRecorder()

	handler.GetShop(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetShopMalformedID(t *testing.T) {
	handler := handlers.NewShopHandler(&stubShopInfoService{}, testCodec)

	req := httptest.NewRequest("GET", "/api/shops/x", nil)
	req.SetPathValue("shopId", "zz!")
	w := httptest.NewRecorder()

	handler.GetShop(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
