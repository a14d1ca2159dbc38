package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// statusFor maps a service error to an HTTP status and a details type.
func statusFor(err error) (int, string) {
	var (
		reqErr       *domain.RequestError
		upstreamErr  *domain.UpstreamError
		httpErr      *domain.HTTPStatusError
		transportErr *domain.TransportError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownAgent):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrBlocked):
		return http.StatusForbidden, "policy_error"
	case errors.As(err, &reqErr):
		if reqErr.Kind == domain.FailureHTTPError {
			return http.StatusBadGateway, "http_error"
		}
		return http.StatusServiceUnavailable, "network_error"
	case errors.As(err, &transportErr):
		return http.StatusServiceUnavailable, "network_error"
	case errors.As(err, &upstreamErr), errors.As(err, &httpErr):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "request_error"
	}
}

// fail writes err as a JSON error body. Details are included outside
// production only.
func (h *Handler) fail(c echo.Context, summary string, err error) error {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(c.Request().Context(), err, log.KV{K: "msg", V: summary}, log.KV{K: "path", V: c.Path()})
	}

	resp := domain.ErrorResponse{Error: summary}
	if status < http.StatusInternalServerError {
		resp.Error = err.Error()
	}
	if !h.production {
		detail := &domain.ErrorDetail{
			Message:   err.Error(),
			Type:      kind,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		var reqErr *domain.RequestError
		if errors.As(err, &reqErr) {
			detail.Attempts = reqErr.Attempts
		}
		resp.Details = detail
	}
	return c.JSON(status, resp)
}
