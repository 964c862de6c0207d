package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/config"
	"github.com/apimgr/floodwatch/src/metrics"
	"github.com/apimgr/floodwatch/src/models"
	"github.com/apimgr/floodwatch/src/services"
	"github.com/apimgr/floodwatch/src/validation"
)

// ReportStore is the data-access capability behind the archive route
type ReportStore interface {
	All(ctx context.Context, start, end time.Time, city string) ([]models.Report, error)
}

// ArchiveHandler handles GET /reports/archive
type ArchiveHandler struct {
	cfg    *config.Config
	store  ReportStore
	cache  services.ResponseCache
	logger *logrus.Logger

	querySchema validation.Schema
}

// NewArchiveHandler creates the archive handler
func NewArchiveHandler(cfg *config.Config, store ReportStore, cache services.ResponseCache, logger *logrus.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		logger: logger,
		querySchema: validation.Schema{
			"city":      {Kind: validation.String, Enum: cfg.API.RegionCodes},
			"start":     {Kind: validation.Timestamp, Required: true},
			"end":       {Kind: validation.Timestamp, Required: true, MinField: "start"},
			"geoformat": {Kind: validation.String, Enum: cfg.API.GeoFormats, Default: cfg.API.GeoFormatDefault},
		},
	}
}

// Get returns historic flood reports within a bounded time window
// (GET /reports/archive)
func (h *ArchiveHandler) Get(c *gin.Context) {
	key := services.CacheKey(c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery)
	if cached, ok := h.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("archive").Inc()
		c.Header("X-Cache", "HIT")
		c.Data(cached.Status, cached.ContentType, cached.Body)
		return
	}
	metrics.CacheMisses.WithLabelValues("archive").Inc()

	q, verr := validation.Query(h.querySchema, c.Request.URL.Query())
	if verr != nil {
		respondValidation(c, "archive", verr)
		return
	}

	start := q.Time("start")
	end := q.Time("end")

	// The window cap is relative to start's parsed value, so it cannot be a
	// static schema rule; it runs as a secondary guard after validation.
	// Boundary equality is allowed.
	if verr := h.checkTimeWindow(start, end); verr != nil {
		respondValidation(c, "archive", verr)
		return
	}

	reports, err := h.store.All(c.Request.Context(), start, end, q.String("city"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// zero rows is valid data for the archive; it formats as an empty
	// collection
	features := make([]services.GeoFeature, 0, len(reports))
	for _, r := range reports {
		features = append(features, r.Feature())
	}

	payload, err := marshalEnvelope(features, q.String("geoformat"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := &services.CachedResponse{
		Status:      http.StatusOK,
		ContentType: contentTypeJSON,
		Body:        payload,
	}
	h.cache.Set(key, resp)

	c.Header("X-Cache", "MISS")
	c.Data(resp.Status, resp.ContentType, resp.Body)
}

// checkTimeWindow enforces the configured maximum span between start and end
func (h *ArchiveHandler) checkTimeWindow(start, end time.Time) *validation.Error {
	maxEnd := start.Add(h.cfg.TimeWindowMaxDuration())
	if end.After(maxEnd) {
		return validation.NewError(validation.SourceQuery,
			fmt.Sprintf("child 'end' fails because [end is more than %d seconds greater than 'start']",
				h.cfg.API.TimeWindowMax),
			"end")
	}
	return nil
}
