package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/config"
	"github.com/apimgr/floodwatch/src/metrics"
	"github.com/apimgr/floodwatch/src/models"
	"github.com/apimgr/floodwatch/src/services"
	"github.com/apimgr/floodwatch/src/validation"
)

const contentTypeJSON = "application/json; charset=utf-8"

// AlertStore is the data-access capability behind the alerts routes
type AlertStore interface {
	ByUser(ctx context.Context, username, network string) ([]models.Alert, error)
	Create(ctx context.Context, sub models.AlertSubscription) (*models.AlertKeys, error)
	Update(ctx context.Context, upd models.AlertUpdate) (*models.AlertUpdateResult, error)
}

// AlertsHandler handles the /alerts routes
type AlertsHandler struct {
	cfg    *config.Config
	store  AlertStore
	cache  services.ResponseCache
	logger *logrus.Logger

	querySchema  validation.Schema
	createSchema validation.Schema
	updateSchema validation.Schema
}

// NewAlertsHandler creates the alerts handler. Route schemas are built once
// from the configured value sets.
func NewAlertsHandler(cfg *config.Config, store AlertStore, cache services.ResponseCache, logger *logrus.Logger) *AlertsHandler {
	return &AlertsHandler{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		logger: logger,
		querySchema: validation.Schema{
			"username":  {Kind: validation.String, Required: true},
			"network":   {Kind: validation.String, Required: true, Enum: cfg.API.SocialNetworks},
			"format":    {Kind: validation.String, Enum: cfg.API.Formats, Default: cfg.API.FormatDefault},
			"geoformat": {Kind: validation.String, Enum: cfg.API.GeoFormats, Default: cfg.API.GeoFormatDefault},
		},
		createSchema: validation.Schema{
			"username":   {Kind: validation.String, Required: true},
			"network":    {Kind: validation.String, Required: true, Enum: cfg.API.SocialNetworks},
			"language":   {Kind: validation.String, Required: true, Enum: cfg.API.Languages},
			"subscribed": {Kind: validation.BoolString, Required: true},
			"location": {Kind: validation.Object, Required: true, Fields: validation.Schema{
				"lat": {Kind: validation.Number, Required: true, Min: validation.Float64(-90), Max: validation.Float64(90)},
				"lng": {Kind: validation.Number, Required: true, Min: validation.Float64(-180), Max: validation.Float64(180)},
			}},
		},
		updateSchema: validation.Schema{
			"userkey":      {Kind: validation.Number, Required: true, Min: validation.Float64(0)},
			"location_key": {Kind: validation.Number, Required: true, Min: validation.Float64(0)},
			"subscribed":   {Kind: validation.BoolString, Required: true},
			"log_event":    {Kind: validation.Any, Required: true},
		},
	}
}

// Get returns alert subscriptions by username and network (GET /alerts)
func (h *AlertsHandler) Get(c *gin.Context) {
	key := services.CacheKey(c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery)
	if cached, ok := h.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues("alerts").Inc()
		c.Header("X-Cache", "HIT")
		c.Data(cached.Status, cached.ContentType, cached.Body)
		return
	}
	metrics.CacheMisses.WithLabelValues("alerts").Inc()

	q, verr := validation.Query(h.querySchema, c.Request.URL.Query())
	if verr != nil {
		respondValidation(c, "alerts", verr)
		return
	}

	alerts, err := h.store.ByUser(c.Request.Context(), q.String("username"), q.String("network"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(alerts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"statusCode": http.StatusNotFound,
			"found":      false,
			"result":     nil,
		})
		return
	}

	features := make([]services.GeoFeature, 0, len(alerts))
	for _, a := range alerts {
		features = append(features, a.Feature())
	}

	h.writeFormatted(c, key, features, q.String("geoformat"))
}

// Post registers an alert subscription (POST /alerts)
func (h *AlertsHandler) Post(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondValidation(c, "alerts", validation.NewError(validation.SourceBody, "unable to read request body"))
		return
	}

	b, verr := validation.Body(h.createSchema, raw)
	if verr != nil {
		respondValidation(c, "alerts", verr)
		return
	}

	location := b.Object("location")
	keys, err := h.store.Create(c.Request.Context(), models.AlertSubscription{
		Username:   b.String("username"),
		Network:    b.String("network"),
		Language:   b.String("language"),
		Subscribed: b.Bool("subscribed"),
		Lat:        location.Float("lat"),
		Lng:        location.Float("lng"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if keys == nil {
		respondError(c, h.logger, NewDomainError("Failed to register alert"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created":      true,
		"userkey":      keys.UserKey,
		"location_key": keys.LocationKey,
	})
}

// Put updates an alert subscription and records a log event (PUT /alerts)
func (h *AlertsHandler) Put(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondValidation(c, "alerts", validation.NewError(validation.SourceBody, "unable to read request body"))
		return
	}

	b, verr := validation.Body(h.updateSchema, raw)
	if verr != nil {
		respondValidation(c, "alerts", verr)
		return
	}

	result, err := h.store.Update(c.Request.Context(), models.AlertUpdate{
		UserKey:     b.Int64("userkey"),
		LocationKey: b.Int64("location_key"),
		Subscribed:  b.Bool("subscribed"),
		LogEvent:    b["log_event"],
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if result == nil {
		respondError(c, h.logger, NewDomainError("Failed to register alert"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated":      true,
		"userkey":      result.UserKey,
		"location_key": result.LocationKey,
		"subscribed":   result.Subscribed,
	})
}

// writeFormatted renders the features in the requested geoformat, stores the
// payload in the response cache, then writes it. Caching and writing are
// separate steps so the cache is testable without HTTP framing.
func (h *AlertsHandler) writeFormatted(c *gin.Context, key string, features []services.GeoFeature, geoformat string) {
	payload, err := marshalEnvelope(features, geoformat)
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

// marshalEnvelope wraps a formatted result in the response envelope
func marshalEnvelope(features []services.GeoFeature, geoformat string) ([]byte, error) {
	return json.Marshal(gin.H{
		"statusCode": http.StatusOK,
		"result":     services.FormatGeo(features, geoformat),
	})
}
