package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gridline/design-review-service/internal/auth"
	"github.com/gridline/design-review-service/internal/handlers"
	"github.com/gridline/design-review-service/internal/services"
)

type Server struct {
	httpAddr          string
	validationService *services.ValidationService
	verifier          auth.Verifier
}

func NewServer(httpAddr string, validationService *services.ValidationService, verifier auth.Verifier) *Server {
	return &Server{
		httpAddr:          httpAddr,
		validationService: validationService,
		verifier:          verifier,
	}
}

func (s *Server) Start(ctx context.Context) error {
	handler := handlers.NewValidationHandler(s.validationService)

	// The health probe stays public; everything else goes through the
	// bearer-token middleware.
	protected := http.NewServeMux()
	handler.RegisterRoutes(protected)

	mux := http.NewServeMux()
	handler.RegisterPublicRoutes(mux)
	mux.Handle("/", handlers.WithAuth(s.verifier, protected))

	slog.Info("HTTP server starting",
		"addr", s.httpAddr,
		"endpoints", []string{
			"/v1/design/validate",
			"/v1/design/history",
			"/healthz",
			"/logs",
		})

	return http.ListenAndServe(s.httpAddr, mux)
}
