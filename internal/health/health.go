// Package health serves the liveness and readiness probes on the kiosk's
// admin port.
//
// A kiosk deployed in a shelter is typically supervised by a systemd unit
// and a field technician with curl, so the two endpoints stay deliberately
// simple:
//
//	GET /healthz   process is up; always 200
//	GET /readyz    200 only while every dependency probe passes
//	               (in practice: the hub pinger), 503 otherwise
//
// Both answer a JSON body with a "status" of "ok" or "fail"; /readyz adds a
// "checks" map with one entry per probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe so a hung dependency cannot
// stall the admin endpoint.
const probeTimeout = 3 * time.Second

// Checker is one named readiness probe. Check returns nil while the
// dependency is usable and must respect context cancellation.
type Checker struct {
	// Name keys the probe's entry in the /readyz response ("hub").
	Name string

	Check func(ctx context.Context) error
}

// Handler answers the probe endpoints. The checker list is fixed at
// construction; Handler itself holds no mutable state.
type Handler struct {
	checkers []Checker
}

// New builds a Handler over the given probes, evaluated in order on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Register mounts the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
}

// report is the JSON body of both probes.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	reply(w, http.StatusOK, report{Status: "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	code := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			code = http.StatusServiceUnavailable
			continue
		}
		rep.Checks[c.Name] = "ok"
	}

	reply(w, code, rep)
}

func reply(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
