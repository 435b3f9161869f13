// Package handler exposes the services over HTTP with gin.
package handler

import (
	"errors"
	"net/http"

	"reggenie/internal/auth"
	"reggenie/internal/chat"
	"reggenie/internal/dose"
	"reggenie/internal/icf"
	"reggenie/internal/ingest"
	"reggenie/internal/intel"
	"reggenie/internal/llm"
	"reggenie/internal/monitoring"
	"reggenie/internal/regulation"
	"reggenie/internal/requirements"
	"reggenie/internal/store"
	"reggenie/internal/translation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var notFound = []error{
	store.ErrNotFound,
	chat.ErrSessionNotFound,
	translation.ErrJobNotFound,
	monitoring.ErrReportNotFound,
	dose.ErrStudyNotFound,
	icf.ErrDocumentNotFound,
}

var conflict = []error{
	translation.ErrInvalidTransition,
	translation.ErrNotTranslated,
	chat.ErrSessionBusy,
	auth.ErrAlreadyRegistered,
}

var badRequest = []error{
	regulation.ErrTitleRequired,
	regulation.ErrInvalidRiskLevel,
	chat.ErrEmptyMessage,
	chat.ErrInvalidRating,
	translation.ErrReviewerRequired,
	translation.ErrInvalidCorrection,
	translation.ErrEmptyDocument,
	translation.ErrUnsupportedLanguage,
	requirements.ErrPromptRequired,
	intel.ErrInputRequired,
	icf.ErrTargetRequired,
	monitoring.ErrEmptyAudio,
	ingest.ErrMalformedUpload,
	monitoring.ErrIncompleteInput,
	monitoring.ErrInvalidVisitType,
	monitoring.ErrNextVisitRequired,
	dose.ErrValidation,
	dose.ErrNoSubjects,
	icf.ErrProtocolRequired,
	icf.ErrUnknownType,
	ingest.ErrUnsupported,
	ingest.ErrNoText,
	auth.ErrCodeTooShort,
	auth.ErrCodeMismatch,
}

// statusFor maps service errors to HTTP status codes. Model output problems
// are 502, an open breaker 503, anything unrecognised is 500.
func statusFor(err error) int {
	switch {
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ingest.ErrNoExtractor):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// fail writes the error response. Server-side failures are logged with msg
// and only msg is returned; client errors echo the error text.
func fail(c *gin.Context, logger *zap.Logger, err error, msg string) {
	status := statusFor(err)

	var verr *dose.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": "Validation failed", "fields": verr.Fields})
		return
	}

	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badJSON(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("Failed to bind request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
