package controllers

import (
	"fmt"
	"net/http"

	"postsapi/app/middleware"
	"postsapi/app/models"
	"postsapi/app/repositories"
	"postsapi/app/services"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrMalformedBody is returned when a request body is not a JSON object.
var ErrMalformedBody = errors.New("malformed JSON body")

// RouteNotFoundError is returned for requests no route matches.
type RouteNotFoundError struct {
	URI string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("Route %s not found", e.URI)
}

// HandlerFunc is an HTTP handler that returns its failure instead of
// writing it.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts h to net/http, sending any returned error to renderer.
func Handle(renderer *ErrorRenderer, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			renderer.Render(w, r, err)
		}
	}
}

// ErrorRenderer turns errors into the JSON failure envelope and logs them.
type ErrorRenderer struct {
	logger      *zap.Logger
	development bool
}

// NewErrorRenderer creates an ErrorRenderer. In development the response
// carries the error's stack trace.
func NewErrorRenderer(logger *zap.Logger, development bool) *ErrorRenderer {
	return &ErrorRenderer{
		logger:      logger,
		development: development,
	}
}

// Render writes the failure response for err.
func (e *ErrorRenderer) Render(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classify(err)
	if e.development {
		resp.Stack = fmt.Sprintf("%+v", err)
	}

	fields := []zap.Field{
		zap.Int("status", status),
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		e.logger.Error(resp.Error, fields...)
	} else {
		e.logger.Warn(resp.Error, fields...)
	}

	sendJSON(w, status, resp)
}

// NotFound renders the failure for an unmatched route.
func (e *ErrorRenderer) NotFound(w http.ResponseWriter, r *http.Request) {
	e.Render(w, r, &RouteNotFoundError{URI: r.URL.RequestURI()})
}

func classify(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Success: false}

	var valErr *models.ValidationError
	var routeErr *RouteNotFoundError
	switch {
	case errors.As(err, &valErr):
		resp.Error = "Validation failed"
		resp.Details = valErr.Violations
		return http.StatusBadRequest, resp
	case errors.Is(err, ErrMalformedBody):
		resp.Error = "Malformed JSON body"
		return http.StatusBadRequest, resp
	case errors.Is(err, models.ErrInvalidID):
		resp.Error = "Invalid ID format"
		return http.StatusBadRequest, resp
	case errors.Is(err, repositories.ErrDuplicateKey):
		resp.Error = "Duplicate field value entered"
		return http.StatusBadRequest, resp
	case errors.Is(err, services.ErrPostNotFound):
		resp.Error = "Post not found"
		return http.StatusNotFound, resp
	case errors.As(err, &routeErr):
		resp.Error = routeErr.Error()
		return http.StatusNotFound, resp
	default:
		resp.Error = "Internal Server Error"
		return http.StatusInternalServerError, resp
	}
}
