package handlers

import (
	"context"
	"net/http"

	"github.com/queueup/backend/internal/domain/entities"
	"github.com/queueup/backend/pkg/encoding"
)

// ShopInfoService defines the interface for shop lookups
type ShopInfoService interface {
	ShopInfo(ctx context.Context, shopID int32) (*entities.Shop, []*entities.Department, error)
}

// ShopHandler handles public shop information requests
type ShopHandler struct {
	shops ShopInfoService
	codec *encoding.Codec
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shops ShopInfoService, codec *encoding.Codec) *ShopHandler {
	return &ShopHandler{
		shops: shops,
		codec: codec,
	}
}

// GetShop handles GET /api/shops/{shopId}
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := h.codec.Decode(r.PathValue("shopId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed shop id")
		return
	}

	shop, departments, err := h.shops.ShopInfo(r.Context(), shopID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newShopView(h.codec, shop, departments))
}
