package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chai-api/internal/domain"
	"chai-api/internal/service"
)

// ScheduleHandler /schedule
type ScheduleHandler struct {
	responder
	svc *service.ScheduleService
}

func NewScheduleHandler(svc *service.ScheduleService, base responder) *ScheduleHandler {
	return &ScheduleHandler{responder: base, svc: svc}
}

// Get GET /schedule?label=&daymask=
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	mask, err := p.requiredInt("daymask")
	if err != nil {
		invalidParams(w, err)
		return
	}
	days, err := h.svc.GetSchedules(r.Context(), service.GetSchedulesRequest{
		Label:   p.str("label"),
		User:    UserFromContext(r.Context()),
		Daymask: mask,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// Put PUT /schedule?label=&daymask=&hidden=，body 为 {"slot": profile} 或其列表
func (h *ScheduleHandler) Put(w http.ResponseWriter, r *http.Request) {
	p := queryParams(r)
	mask, err := p.requiredInt("daymask")
	if err != nil {
		invalidParams(w, err)
		return
	}
	hidden, err := p.boolean("hidden")
	if err != nil {
		invalidParams(w, err)
		return
	}
	entries, err := readScheduleBody(r)
	if err != nil {
		invalidParams(w, err)
		return
	}

	days, err := h.svc.ApplySchedule(r.Context(), service.ApplyScheduleRequest{
		Label:   p.str("label"),
		User:    UserFromContext(r.Context()),
		Daymask: mask,
		Entries: entries,
		Hidden:  hidden,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// readScheduleBody accepts {"0": 1, "48": 2} or [{"0": 1}, {"48": 2}]
func readScheduleBody(r *http.Request) (domain.ScheduleEntries, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("schedule: missing body")
	}
	if body[0] != '[' {
		return domain.ParseScheduleEntries(body)
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	var out domain.ScheduleEntries
	for _, part := range parts {
		entries, err := domain.ParseScheduleEntries(part)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}
