package profile

import (
	"errors"
	"strconv"

	"permsync/core/fault"
	"permsync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for permission-metadata operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the profile sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/retrieve", h.HandleRetrieve)
	group.Post("/compare", h.HandleCompare)
	group.Post("/merge", h.HandleMerge)
	group.Get("/cache", h.HandleCacheStats)
	group.Post("/cache/purge", h.HandleCachePurge)
	group.Get("/history", h.HandleHistory)
}

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	switch fault.ClassOf(err) {
	case fault.ClassUser:
		return fiber.StatusBadRequest
	case fault.ClassInternal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadGateway
	}
}

func errJSON(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error()}
	var fe *fault.Error
	if errors.As(err, &fe) && len(fe.Remediation) > 0 {
		body["remediation"] = fe.Remediation
	}
	return c.Status(statusFor(err)).JSON(body)
}

type retrieveRequest struct {
	Source        string   `json:"source"`
	ResourceTypes []string `json:"resource_types"`
}

// HandleRetrieve pulls the incremental working set from one org.
// @Summary Retrieve metadata
// @Description Retrieves the members of the given resource types that are missing locally from one org source.
// @Tags sync
// @Accept json
// @Produce json
// @Success 200 {object} syncer.RetrieveReport "Retrieve Report"
// @Failure 400 {object} map[string]string "Invalid Request"
// @Failure 502 {object} map[string]string "Remote Failure"
// @Router /sync/retrieve [post]
func (h *Handler) HandleRetrieve(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req retrieveRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fault.User("invalid request body", "send JSON with source and resource_types"))
	}

	l.Info("Triggering retrieve",
		zap.String("source", req.Source),
		zap.Strings("resource_types", req.ResourceTypes))

	report, err := h.service.Retrieve(c.Context(), req.Source, req.ResourceTypes)
	if err != nil {
		l.Error("Retrieve failed", zap.Error(err))
		return errJSON(c, err)
	}
	return c.JSON(report)
}

type compareRequest struct {
	ResourceType string   `json:"resource_type"`
	Names        []string `json:"names"`
	Sources      []string `json:"sources"`
}

// HandleCompare builds per-resource comparison matrices across sources.
// @Summary Compare across sources
// @Description Retrieves each named resource from every selected source concurrently and reports full, partial, and failed matrices.
// @Tags sync
// @Accept json
// @Produce json
// @Success 200 {object} syncer.Report "Comparison Report"
// @Failure 400 {object} map[string]string "Invalid Request"
// @Failure 502 {object} map[string]string "All Sources Failed"
// @Router /sync/compare [post]
func (h *Handler) HandleCompare(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req compareRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fault.User("invalid request body", "send JSON with resource_type and names"))
	}

	l.Info("Triggering compare",
		zap.String("resource_type", req.ResourceType),
		zap.Int("names", len(req.Names)),
		zap.Strings("sources", req.Sources))

	report, err := h.service.Compare(c.Context(), req.ResourceType, req.Names, req.Sources)
	if err != nil {
		l.Error("Compare failed", zap.Error(err))
		return errJSON(c, err)
	}
	return c.JSON(report)
}

type mergeRequest struct {
	ResourceType string `json:"resource_type"`
	Name         string `json:"name"`
	Source       string `json:"source"`
	Strategy     string `json:"strategy"`
	Apply        bool   `json:"apply"`
}

// HandleMerge merges the local and remote versions of one resource.
// @Summary Merge a resource
// @Description Detects conflicts between the local and remote version and resolves them under the requested strategy. Writes locally only when apply is set.
// @Tags sync
// @Accept json
// @Produce json
// @Success 200 {object} MergeResult "Merge Result"
// @Failure 400 {object} map[string]string "Invalid Request or Conflicts Aborted"
// @Failure 502 {object} map[string]string "Remote Failure"
// @Router /sync/merge [post]
func (h *Handler) HandleMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req mergeRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fault.User("invalid request body", "send JSON with resource_type, name, source and strategy"))
	}

	l.Info("Triggering merge",
		zap.String("resource", req.ResourceType+"/"+req.Name),
		zap.String("strategy", req.Strategy),
		zap.Bool("apply", req.Apply))

	// The interactive strategy needs a terminal; it is CLI-only.
	result, err := h.service.Merge(c.Context(), req.ResourceType, req.Name, req.Source, MergeOptions{
		Strategy: req.Strategy,
		Apply:    req.Apply,
	})
	if err != nil {
		l.Error("Merge failed", zap.Error(err))
		return errJSON(c, err)
	}
	return c.JSON(result)
}

// HandleCacheStats reports cache hit/miss counters.
// @Summary Cache statistics
// @Tags sync
// @Produce json
// @Success 200 {object} cache.Stats "Cache Stats"
// @Router /sync/cache [get]
func (h *Handler) HandleCacheStats(c *fiber.Ctx) error {
	return c.JSON(h.service.CacheStats())
}

// HandleCachePurge removes expired persisted cache records.
// @Summary Purge expired cache records
// @Tags sync
// @Produce json
// @Success 200 {object} map[string]int "Purged Count"
// @Router /sync/cache/purge [post]
func (h *Handler) HandleCachePurge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	purged, err := h.service.PurgeCache()
	if err != nil {
		l.Error("Cache purge failed", zap.Error(err))
		return errJSON(c, err)
	}
	l.Info("Cache purged", zap.Int("records", purged))
	return c.JSON(fiber.Map{"purged": purged})
}

// HandleHistory lists recent operation summaries.
// @Summary Operation history
// @Tags sync
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {array} database.OperationRecord "Operations"
// @Router /sync/history [get]
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	recs, err := h.service.History(c.Context(), limit)
	if err != nil {
		l.Error("History lookup failed", zap.Error(err))
		return errJSON(c, err)
	}
	return c.JSON(recs)
}
