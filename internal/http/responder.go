package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"chai-api/internal/service"
)

// responder 把 service 错误映射为 HTTP 响应，各 handler 共用
type responder struct {
	logger  *zap.Logger
	alerter service.Alerter
	metrics *service.Metrics
}

func (h responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeText(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrUnknownHome):
		writeText(w, http.StatusBadRequest, service.ErrUnknownHome.Error())
	case service.IsDataUnavailable(err):
		h.logger.Warn("Data unavailable",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeText(w, http.StatusInternalServerError, service.DataUnavailableText(err))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.logger.Warn("Request cancelled", zap.String("path", r.URL.Path), zap.Error(err))
		writeText(w, http.StatusServiceUnavailable, TimeoutText)
	case errors.Is(err, service.ErrPriceSourceUnavailable):
		h.logger.Error("Price source unavailable",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		service.RaiseAlert(r.Context(), h.alerter, h.metrics, h.logger, service.Alert{
			Kind:    service.AlertPriceSource,
			Message: err.Error(),
			Fields:  map[string]any{"path": r.URL.Path, "request_id": RequestIDFromContext(r.Context())},
		})
		writeText(w, http.StatusBadGateway, service.ErrPriceSourceUnavailable.Error())
	default:
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		service.RaiseAlert(r.Context(), h.alerter, h.metrics, h.logger, service.Alert{
			Kind:    service.AlertInternalError,
			Message: err.Error(),
			Fields:  map[string]any{"path": r.URL.Path, "request_id": RequestIDFromContext(r.Context())},
		})
		writeText(w, http.StatusInternalServerError, "internal server error")
	}
}
