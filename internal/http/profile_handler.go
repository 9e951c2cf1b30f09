package httpapi

import (
	"net/http"

	"chai-api/internal/service"
)

// ProfileHandler /heating/profile, /profile/reset 与 /xai/*
type ProfileHandler struct {
	responder
	svc *service.ProfileService
}

func NewProfileHandler(svc *service.ProfileService, base responder) *ProfileHandler {
	return &ProfileHandler{responder: base, svc: svc}
}

// List GET /heating/profile?label=&profile=
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	profile, err := p.optInt("profile")
	if err != nil {
		invalidParams(w, err)
		return
	}
	entries, err := h.svc.ListProfiles(r.Context(), service.ListProfilesRequest{
		Label:   p.str("label"),
		User:    UserFromContext(r.Context()),
		Profile: profile,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Reset GET|PUT /profile/reset?label=&profile=&hidden=
func (h *ProfileHandler) Reset(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	profile, err := p.optInt("profile")
	if err != nil {
		invalidParams(w, err)
		return
	}
	hidden, err := p.boolean("hidden")
	if err != nil {
		invalidParams(w, err)
		return
	}
	entries, err := h.svc.ResetProfiles(r.Context(), service.ResetProfilesRequest{
		Label:   p.str("label"),
		User:    UserFromContext(r.Context()),
		Profile: profile,
		Hidden:  hidden,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func xaiRequest(r *http.Request) (service.XAIRequest, error) {
	p := queryParams(r)
	profile, err := p.requiredInt("profile")
	if err != nil {
		return service.XAIRequest{}, err
	}
	skip, err := p.optInt("skip")
	if err != nil {
		return service.XAIRequest{}, err
	}
	req := service.XAIRequest{Label: p.str("label"), User: UserFromContext(r.Context()), Profile: profile}
	if skip != nil {
		req.Skip = *skip
	}
	return req, nil
}

// writeXAI 200 观测数据，206 默认参数，204 无数据
func writeXAI[T any](w http.ResponseWriter, res service.XAIResult[T]) {
	switch {
	case res.Value == nil:
		w.WriteHeader(http.StatusNoContent)
	case res.Fallback:
		writeJSON(w, http.StatusPartialContent, res.Value)
	default:
		writeJSON(w, http.StatusOK, res.Value)
	}
}

// Region GET /xai/region?label=&profile=&skip=
func (h *ProfileHandler) Region(w http.ResponseWriter, r *http.Request) {
	req, err := xaiRequest(r)
	if err != nil {
		invalidParams(w, err)
		return
	}
	res, err := h.svc.XAIRegion(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeXAI(w, res)
}

// Band GET /xai/band?label=&profile=&skip=
func (h *ProfileHandler) Band(w http.ResponseWriter, r *http.Request) {
	req, err := xaiRequest(r)
	if err != nil {
		invalidParams(w, err)
		return
	}
	res, err := h.svc.XAIBand(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeXAI(w, res)
}

// Scatter GET /xai/scatter?label=&profile=&skip=
func (h *ProfileHandler) Scatter(w http.ResponseWriter, r *http.Request) {
	req, err := xaiRequest(r)
	if err != nil {
		invalidParams(w, err)
		return
	}
	res, err := h.svc.XAIScatter(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
