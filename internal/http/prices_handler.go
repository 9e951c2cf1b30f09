package httpapi

import (
	"net/http"

	"chai-api/internal/service"
)

// PricesHandler /electricity/prices
type PricesHandler struct {
	responder
	svc *service.PriceService
}

func NewPricesHandler(svc *service.PriceService, base responder) *PricesHandler {
	return &PricesHandler{responder: base, svc: svc}
}

// List GET /electricity/prices?start=&end=&limit=（unix 秒）
func (h *PricesHandler) List(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	var req service.ListPricesRequest
	var err error
	if req.Start, err = p.optTime("start"); err != nil {
		invalidParams(w, err)
		return
	}
	if req.End, err = p.optTime("end"); err != nil {
		invalidParams(w, err)
		return
	}
	if req.Limit, err = p.optInt("limit"); err != nil {
		invalidParams(w, err)
		return
	}
	slots, err := h.svc.ListPrices(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}
