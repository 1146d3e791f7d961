package handlers

import (
	"github.com/gorilla/mux"

	"github.com/postloom/backend/internal/auth"
	"github.com/postloom/backend/internal/middleware"
)

// RegisterRoutes wires all API routes. Everything under /api requires a
// verified bearer token; the websocket endpoint authenticates via query
// param because browsers can't set headers on upgrade requests.
func RegisterRoutes(r *mux.Router, h *Handler, verifier *auth.Verifier, genLimiter *middleware.GenerationLimiter) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/ws/items", h.ItemsWebSocket).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(verifier.Middleware)

	api.HandleFunc("/items", h.CreateItem).Methods("POST")
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items/{id}", h.UpdateItem).Methods("PUT")
	api.HandleFunc("/items/{id}", h.DeleteItem).Methods("DELETE")

	api.HandleFunc("/calendar", h.CalendarList).Methods("GET")
	api.HandleFunc("/calendar/summary", h.CalendarSummary).Methods("GET")

	gen := api.PathPrefix("/ai").Subrouter()
	if genLimiter != nil {
		gen.Use(genLimiter.Middleware)
	}
	gen.HandleFunc("/generate", h.GenerateCaptions).Methods("POST")
}
