package httpapi

import (
	"net/http"

	"chai-api/internal/service"
)

// HeatingHandler /heating/mode, /heating/valve, /heating/history
type HeatingHandler struct {
	responder
	svc *service.HeatingService
}

func NewHeatingHandler(svc *service.HeatingService, base responder) *HeatingHandler {
	return &HeatingHandler{responder: base, svc: svc}
}

// GetMode GET /heating/mode?label=
func (h *HeatingHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetHeatingMode(r.Context(), service.HomeRequest{
		Label: r.URL.Query().Get("label"),
		User:  UserFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetMode PUT /heating/mode，参数可放在查询串或 JSON body
func (h *HeatingHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	if err := p.mergeBody(r); err != nil {
		invalidParams(w, err)
		return
	}
	req := service.SetHeatingModeRequest{
		Label: p.str("label"),
		User:  UserFromContext(r.Context()),
		Mode:  p.str("mode"),
	}
	var err error
	if req.Target, err = p.optFloat("target"); err != nil {
		invalidParams(w, err)
		return
	}
	if req.Timeout, err = p.optInt("timeout"); err != nil {
		invalidParams(w, err)
		return
	}
	if req.Hidden, err = p.boolean("hidden"); err != nil {
		invalidParams(w, err)
		return
	}

	resp, err := h.svc.SetHeatingMode(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetValve GET /heating/valve?label=
func (h *HeatingHandler) GetValve(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetValve(r.Context(), service.HomeRequest{
		Label: r.URL.Query().Get("label"),
		User:  UserFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHistory GET /heating/history?label=&source=&start=&end=
func (h *HeatingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	req := service.HistoryRequest{
		Label:  p.str("label"),
		User:   UserFromContext(r.Context()),
		Source: p.str("source"),
	}
	var err error
	if req.Start, err = p.optTime("start"); err != nil {
		invalidParams(w, err)
		return
	}
	if req.End, err = p.optTime("end"); err != nil {
		invalidParams(w, err)
		return
	}

	points, err := h.svc.GetHistory(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
