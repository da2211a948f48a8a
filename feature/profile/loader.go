package profile

import (
	"permsync/core/cache"
	"permsync/core/database"
	"permsync/core/source"
	"permsync/core/syncer"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the profile sync feature.
func NewFeature(logger *zap.Logger, engine *syncer.Engine, sources []source.Source, local *source.Local, c *cache.Cache, audit *database.AuditStore) *Feature {
	svc := NewService(logger, engine, sources, local, c, audit)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// FeatureFor wraps an already-built service, for callers that share the
// service between the HTTP surface and the command line.
func FeatureFor(svc *Service) *Feature {
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Service returns the underlying service, for command-line use.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "profile"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
