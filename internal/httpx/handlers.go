package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/freshcrate/go-drop-orders/internal/drops"
	"github.com/freshcrate/go-drop-orders/internal/ledger"
	"github.com/freshcrate/go-drop-orders/internal/orders"
	"github.com/freshcrate/go-drop-orders/internal/ratelimit"
	"github.com/freshcrate/go-drop-orders/internal/redisx"
	"github.com/freshcrate/go-drop-orders/internal/waitlist"
)

type Policies struct {
	Checkout ratelimit.Policy
	Browse   ratelimit.Policy
}

type Handlers struct {
	Registrar  *waitlist.Registrar
	Orders     *orders.Service
	OrderStore orders.Store
	Ledger     ledger.Store
	Converter  *drops.Converter
	Redis      *redis.Client
	Limiter    *ratelimit.Limiter
	Policies   Policies
	Log        *zap.SugaredLogger
}

func clientKey(r *http.Request) string { return r.RemoteAddr }

func context5s(r *http.Request) (context.Context, context.CancelFunc) {
	return contextFor(r, 5*time.Second)
}

func contextFor(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func (h *Handlers) Register(r *chi.Mux) {
	checkout := ratelimit.Middleware(h.Limiter, h.Policies.Checkout, clientKey)
	browse := ratelimit.Middleware(h.Limiter, h.Policies.Browse, clientKey)

	r.Group(func(r chi.Router) {
		r.Use(checkout)
		r.Post("/waitlist", h.submitWaitlist)
		r.Post("/orders", h.createOrder)
		r.Patch("/orders/{id}/status", h.updateStatus)
		r.Post("/drops/{id}/process", h.processDrop)
	})
	r.Group(func(r chi.Router) {
		r.Use(browse)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getOrderStatus)
		r.Get("/batches", h.listBatches)
	})
}

func (h *Handlers) submitWaitlist(w http.ResponseWriter, r *http.Request) {
	var sub waitlist.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context5s(r)
	defer cancel()

	entries, err := h.Registrar.Submit(ctx, sub)
	if err != nil {
		writeErr(w, err)
		return
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"entry_ids": ids})
}

type createOrderReq struct {
	Lines        []orders.Line `json:"lines"`
	CustomerName string        `json:"customer_name"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	Address      string        `json:"address"`
	TimeSlot     string        `json:"time_slot"`
	DeliverAt    time.Time     `json:"deliver_at"`
	Payment      string        `json:"payment"`
	CourierID    string        `json:"courier_id"`
}

func (h *Handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context5s(r)
	defer cancel()

	o, err := h.Orders.Create(ctx, orders.Draft{
		Lines:        req.Lines,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		TimeSlot:     req.TimeSlot,
		DeliverAt:    req.DeliverAt,
		Payment:      req.Payment,
		CourierID:    req.CourierID,
		Source:       "checkout",
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(r, o.ID, o.Status)
	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":    o.ID,
		"number":      o.Number,
		"status":      o.Status,
		"total_cents": o.TotalCents(),
	})
}

type statusPatchReq struct {
	Status  orders.Status `json:"status"`
	Role    orders.Role   `json:"role"`
	ActorID string        `json:"actor_id"`
	Note    string        `json:"note"`
}

func (h *Handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req statusPatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context5s(r)
	defer cancel()

	o, err := h.Orders.Transition(ctx, orderID, req.Role, req.ActorID, req.Status, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(r, o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]any{"order_id": o.ID, "status": o.Status})
}

func (h *Handlers) processDrop(w http.ResponseWriter, r *http.Request) {
	dropID := chi.URLParam(r, "id")
	// Conversion walks every pending entry; give it more room than the
	// per-request default.
	ctx, cancel := contextFor(r, 30*time.Second)
	defer cancel()

	sum, err := h.Converter.Process(ctx, dropID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// getOrderStatus is the cheap polling endpoint; it serves the cached
// status when present and falls back to the store.
func (h *Handlers) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context5s(r)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}
	o, err := h.OrderStore.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(r, o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]any{"order_id": o.ID, "status": o.Status})
}

// getOrder always builds the full detail from the store; the status
// cache holds only {order_id, status} and would starve the dashboard of
// lines and history until the TTL lapsed.
func (h *Handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context5s(r)
	defer cancel()

	o, err := h.OrderStore.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	hist, err := h.OrderStore.History(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	body := map[string]any{
		"order_id":    o.ID,
		"number":      o.Number,
		"status":      o.Status,
		"lines":       o.Lines,
		"deliver_at":  o.DeliverAt,
		"courier_id":  o.CourierID,
		"total_cents": o.TotalCents(),
		"history":     hist,
	}
	h.cacheStatus(r, o.ID, o.Status)
	writeJSON(w, http.StatusOK, body)
}

type batchLineView struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Reserved  int    `json:"reserved"`
	Remaining int    `json:"remaining"`
}

func (h *Handlers) listBatches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context5s(r)
	defer cancel()

	batches, err := h.Ledger.ListBatches(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(batches))
	for _, b := range batches {
		lines := make([]batchLineView, 0, len(b.Lines))
		for _, l := range b.Lines {
			lines = append(lines, batchLineView{
				ProductID: l.ProductID,
				VariantID: l.VariantID,
				Quantity:  l.Quantity,
				Reserved:  l.Reserved,
				Remaining: l.Remaining(),
			})
		}
		out = append(out, map[string]any{
			"batch_id":  b.ID,
			"label":     b.Label,
			"arrive_at": b.ArriveAt,
			"active":    b.Active,
			"lines":     lines,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) cacheStatus(r *http.Request, orderID string, status orders.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]any{"order_id": orderID, "status": status})
	if err := h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err(); err != nil {
		h.Log.Debugw("status cache set failed", "order_id", orderID, "error", err)
	}
}
