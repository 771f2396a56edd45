// Package http wires the JSON API: routing, CORS, auth and request logging.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/middleware"
)

// New builds the full router. Auth endpoints are open; everything else under
// /api/v1 requires a valid token.
func New(
	authV1 *AuthHandler,
	billsV1 *BillHandler,
	groupsV1 *GroupHandler,
	jwtManager *auth.JWTManager,
	allowedOrigins []string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", authV1.Routes)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(jwtManager))
			r.Use(chimiddleware.AllowContentType("application/json"))
			r.Route("/bills", billsV1.Routes)
			r.Route("/groups", groupsV1.Routes)
		})
	})

	return router
}
