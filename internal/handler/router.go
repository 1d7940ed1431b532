// Package handler wires the HTTP surface: health checks and the chat
// WebSocket endpoint.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chainvalet/chainvalet/internal/channel"
	middlewarePkg "github.com/chainvalet/chainvalet/internal/middleware"
	"github.com/chainvalet/chainvalet/pkg/utils"
)

// NewRouter wires HTTP routes to the chat gateway.
func NewRouter(gateway *channel.Gateway) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS([]string{"*"}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		gateway.RegisterRoutes(api)
	})

	return r
}
