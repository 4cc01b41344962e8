package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-resource-approvals.git/internal/availability"
	"github.com/ariefcatur/go-resource-approvals.git/internal/redisx"
	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
	"github.com/ariefcatur/go-resource-approvals.git/internal/workflow"
	"github.com/go-chi/chi/v5"
)

type Workflow interface {
	Submit(ctx context.Context, in workflow.SubmitInput) (*reservations.Request, error)
	Approve(ctx context.Context, requestID, principalID string, role reservations.Stage) (*reservations.Request, error)
	Reject(ctx context.Context, requestID, principalID string, role reservations.Stage, reason string) (*reservations.Request, error)
}

type RequestReader interface {
	LoadByID(ctx context.Context, id string) (*reservations.Request, error)
	ListByRequester(ctx context.Context, requesterID string) ([]reservations.Request, error)
	ListByStage(ctx context.Context, stage reservations.Stage) ([]reservations.Request, error)
}

// Cache: get/set string dengan TTL (lihat redisx.KV).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type ReservationsHandler struct {
	Workflow Workflow
	Engine   *availability.Engine
	Requests RequestReader
	Cache    Cache
}

type SubmitReq struct {
	ExternalID  string     `json:"external_id,omitempty"`
	ResourceID  string     `json:"resource_id"`
	RequesterID string     `json:"requester_id"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Quantity    int        `json:"quantity,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

type DecisionReq struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
	Reason      string `json:"reason,omitempty"`
}

type AvailabilityResp struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func (h *ReservationsHandler) Register(r *chi.Mux) {
	r.Post("/requests", h.submit)
	r.Post("/requests/{id}/approve", h.approve)
	r.Post("/requests/{id}/reject", h.reject)
	r.Get("/requests/{id}", h.getRequest)
	r.Get("/requests", h.listRequests)
	r.Get("/resources/availability", h.checkAvailability)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor: taxonomy error -> HTTP. Kegagalan yang diharapkan tidak pernah
// jadi 500.
func statusFor(err error) int {
	var (
		vErr  *reservations.ValidationError
		naErr *reservations.NotAvailableError
		wsErr *reservations.WrongStageError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &naErr):
		return http.StatusConflict
	case errors.As(err, &wsErr):
		return http.StatusForbidden
	case errors.Is(err, reservations.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func (h *ReservationsHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency: external_id yang sama = request yang sama,
	// jangan debit stok / klaim slot dua kali karena re-POST.
	idemKey := ""
	if req.ExternalID != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemSubmit, req.ExternalID)
		if id, err := h.Cache.Get(ctx, idemKey); err == nil && id != "" {
			if existing, err := h.Requests.LoadByID(ctx, id); err == nil {
				writeJSON(w, http.StatusOK, existing)
				return
			}
		}
	}

	in := workflow.SubmitInput{
		ResourceID:  req.ResourceID,
		RequesterID: req.RequesterID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		TraceID:     r.Header.Get("X-Request-Id"),
	}
	if req.StartTime != nil || req.EndTime != nil {
		if req.StartTime == nil || req.EndTime == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window: both start_time and end_time required"})
			return
		}
		in.Window = &reservations.Window{Start: *req.StartTime, End: *req.EndTime}
	}

	created, err := h.Workflow.Submit(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}

	if idemKey != "" {
		_ = h.Cache.Set(ctx, idemKey, created.ID, redisx.TTLIdempotency)
	}
	h.cacheStatus(ctx, created)
	writeJSON(w, http.StatusCreated, created)
}

func (h *ReservationsHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id string, d DecisionReq) (*reservations.Request, error) {
		return h.Workflow.Approve(ctx, id, d.PrincipalID, reservations.Stage(d.Role))
	})
}

func (h *ReservationsHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id string, d DecisionReq) (*reservations.Request, error) {
		return h.Workflow.Reject(ctx, id, d.PrincipalID, reservations.Stage(d.Role), d.Reason)
	})
}

func (h *ReservationsHandler) decide(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string, d DecisionReq) (*reservations.Request, error)) {
	id := chi.URLParam(r, "id")
	var req DecisionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.PrincipalID == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing principal_id or role"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	updated, err := fn(ctx, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReservationsHandler) getRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyRequestStatus, id)
	if s, err := h.Cache.Get(ctx, key); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	req, err := h.Requests.LoadByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, req)
	writeJSON(w, http.StatusOK, req)
}

func (h *ReservationsHandler) listRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var (
		out []reservations.Request
		err error
	)
	switch {
	case r.URL.Query().Get("requester") != "":
		out, err = h.Requests.ListByRequester(ctx, r.URL.Query().Get("requester"))
	case r.URL.Query().Get("stage") != "":
		out, err = h.Requests.ListByStage(ctx, reservations.Stage(r.URL.Query().Get("stage")))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "requester or stage filter required"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReservationsHandler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resourceID := q.Get("resource_id")
	if resourceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing resource_id"})
		return
	}

	var window *reservations.Window
	if s, e := q.Get("start_time"), q.Get("end_time"); s != "" && e != "" {
		start, err1 := time.Parse(time.RFC3339, s)
		end, err2 := time.Parse(time.RFC3339, e)
		if err1 != nil || err2 != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_time/end_time"})
			return
		}
		window = &reservations.Window{Start: start, End: end}
	}
	qty := 1
	if v := q.Get("quantity"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &qty); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, reason, err := h.Engine.Check(ctx, resourceID, window, qty)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResp{Available: ok, Reason: string(reason)})
}

func (h *ReservationsHandler) cacheStatus(ctx context.Context, req *reservations.Request) {
	key := fmt.Sprintf(redisx.KeyRequestStatus, req.ID)
	b, err := json.Marshal(req)
	if err != nil {
		return
	}
	_ = h.Cache.Set(ctx, key, string(b), redisx.TTLStatusCache)
}
