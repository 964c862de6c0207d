// Package handlers implements the HTTP route handlers. Each handler runs the
// same linear pipeline: schema validation, optional domain guard, data
// access, formatting, response.
//
// Failure handling follows a small taxonomy. Validation failures are written
// inline so their structured 400 body is preserved exactly. Everything else
// funnels through respondError, which decides the final status code and
// client-visible message: domain rejections keep their message, while
// infrastructure errors are logged and never leak internal detail.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/metrics"
	"github.com/apimgr/floodwatch/src/middleware"
	"github.com/apimgr/floodwatch/src/validation"
)

// DomainError is a rejection by the data layer: the operation ran but did
// not produce the expected record (e.g. create/update matched nothing)
type DomainError struct {
	msg string
}

// NewDomainError creates a domain rejection with a client-visible message
func NewDomainError(msg string) *DomainError {
	return &DomainError{msg: msg}
}

func (e *DomainError) Error() string { return e.msg }

// respondValidation writes the structured 400 body for a validation failure.
// Validation failures are client errors and are never logged as server
// errors.
func respondValidation(c *gin.Context, route string, verr *validation.Error) {
	metrics.ValidationFailures.WithLabelValues(route, string(verr.Source)).Inc()
	c.JSON(http.StatusBadRequest, verr.Body())
}

// respondError is the centralized error responder for non-validation
// failures
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	message := "An internal server error occurred"

	var derr *DomainError
	if errors.As(err, &derr) {
		message = derr.Error()
	} else {
		logger.WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("data access failure")
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"statusCode": http.StatusInternalServerError,
		"error":      "Internal Server Error",
		"message":    message,
	})
}
