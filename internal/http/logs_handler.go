package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chai-api/internal/service"
)

// LogsHandler /logs 与 /logs/export
type LogsHandler struct {
	responder
	svc *service.LogService
}

func NewLogsHandler(svc *service.LogService, base responder) *LogsHandler {
	return &LogsHandler{responder: base, svc: svc}
}

func logsRequest(r *http.Request) (service.ListLogsRequest, error) {
	p := queryParams(r)
	req := service.ListLogsRequest{
		Label:    p.str("label"),
		User:     UserFromContext(r.Context()),
		Category: p.str("category"),
	}
	var err error
	if req.Start, err = p.optTime("start"); err != nil {
		return req, err
	}
	if req.End, err = p.optTime("end"); err != nil {
		return req, err
	}
	if req.Limit, err = p.optInt("limit"); err != nil {
		return req, err
	}
	return req, nil
}

// List GET /logs?label=&category=&start=&end=&limit=
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	req, err := logsRequest(r)
	if err != nil {
		invalidParams(w, err)
		return
	}
	entries, err := h.svc.ListLogs(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Export GET /logs/export，同样的过滤条件，返回 xlsx
func (h *LogsHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, err := logsRequest(r)
	if err != nil {
		invalidParams(w, err)
		return
	}
	entries, err := h.svc.ListLogs(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := GenerateLogExport(entries)
	if err != nil {
		h.logger.Error("GenerateLogExport failed", zap.Error(err))
		h.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("chai-logs-%s-%s.xlsx", req.Label, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
