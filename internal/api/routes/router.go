package routes

import (
	"net/http"

	"github.com/queueup/backend/internal/api/handlers"
	"github.com/queueup/backend/internal/api/middleware"
	"github.com/queueup/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	ticketHandler *handlers.TicketHandler
	staffHandler  *handlers.StaffHandler
	shopHandler   *handlers.ShopHandler
	streamHandler *handlers.EventStreamHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router. streamHandler may be nil when no event
// bus is configured.
func NewRouter(
	ticketHandler *handlers.TicketHandler,
	staffHandler *handlers.StaffHandler,
	shopHandler *handlers.ShopHandler,
	streamHandler *handlers.EventStreamHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		ticketHandler:   ticketHandler,
		staffHandler:    staffHandler,
		shopHandler:     shopHandler,
		streamHandler:   streamHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Customer endpoints
	r.mux.HandleFunc("POST /api/shops/{shopId}/tickets", r.ticketHandler.CreateTicket)
	r.mux.HandleFunc("GET /api/tickets", r.ticketHandler.ListTickets)
	r.mux.HandleFunc("GET /api/tickets/{uid}/estimate", r.ticketHandler.GetEstimate)
	r.mux.HandleFunc("DELETE /api/tickets/{uid}", r.ticketHandler.CancelTicket)

	// Shop endpoints
	r.mux.HandleFunc("GET /api/shops/{shopId}", r.shopHandler.GetShop)
	if r.streamHandler != nil {
		r.mux.HandleFunc("GET /api/shops/{shopId}/events", r.streamHandler.StreamShopEvents)
	}

	// Staff endpoints
	r.mux.HandleFunc("POST /api/shops/{shopId}/tickets/{uid}/entry", r.staffHandler.RecordEntry)
	r.mux.HandleFunc("POST /api/shops/{shopId}/tickets/{uid}/exit", r.staffHandler.RecordExit)
	r.mux.HandleFunc("GET /api/shops/{shopId}/queue", r.staffHandler.GetQueue)
	r.mux.HandleFunc("GET /api/shops/{shopId}/occupancy", r.staffHandler.GetOccupancy)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	// Apply cache middleware if available
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
