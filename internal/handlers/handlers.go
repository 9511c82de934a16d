package handlers

import (
	"DocVault/internal/config"
	"DocVault/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	files FileAPI,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	fileHandler := NewFileHandler(files, logger, config)

	// File routes
	r.Post("/api/files", fileHandler.Upload)
	r.Get("/api/files/{ref}", fileHandler.Download)
	r.Get("/api/files/{ref}/info", fileHandler.Info)
	r.Get("/api/files/{ref}/stats", fileHandler.Stats)

	// Tenant key
	r.Post("/api/keys", fileHandler.ProvisionKey)

	return &Handler{Router: r}
}
