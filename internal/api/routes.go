package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// Routes assembles the admin API. Every send endpoint sits behind the
// Firebase admin-claim check and a per-caller rate limit.
func Routes(sendAPI *SendAPI, verifier IDTokenVerifier, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireAdmin(verifier, logger))
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(callerRateKey)))

		r.Post("/send/topic", sendAPI.SendTopic)
		r.Post("/send/user", sendAPI.SendUser)
		r.Post("/jobs", sendAPI.CreateJob)
		r.Post("/run", sendAPI.Run)
	})

	return r
}

func callerRateKey(r *http.Request) (string, error) {
	if uid := CallerUID(r.Context()); uid != "" {
		return uid, nil
	}
	return httprate.KeyByIP(r)
}
