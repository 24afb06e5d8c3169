package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/freshcrate/go-drop-orders/internal/orders"
	"github.com/freshcrate/go-drop-orders/internal/ratelimit"
)

func testHandlers() (*Handlers, *chi.Mux) {
	svc := &orders.Service{
		Store:       orders.NewMemStore(),
		ServiceName: "api-test",
		Log:         zap.NewNop().Sugar(),
	}
	h := &Handlers{
		Orders:     svc,
		OrderStore: svc.Store,
		Limiter:    ratelimit.New(),
		Policies: Policies{
			Checkout: ratelimit.Policy{Name: "checkout", Window: time.Minute, Max: 1000},
			Browse:   ratelimit.Policy{Name: "browse", Window: time.Minute, Max: 1000},
		},
		Log: zap.NewNop().Sugar(),
	}
	r := NewRouter()
	h.Register(r)
	return h, r
}

func doJSON(t *testing.T, r *chi.Mux, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, out
}

func TestOrderDetailIsCompleteAfterTransition(t *testing.T) {
	_, r := testHandlers()

	w, created := doJSON(t, r, http.MethodPost, "/orders", map[string]any{
		"lines":         []map[string]any{{"product_id": "kale", "qty": 2, "price_cents": 450}},
		"customer_name": "Nadia",
		"phone":         "+620001",
		"address":       "Jl. Melati 4",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	orderID := created["order_id"].(string)

	w, _ = doJSON(t, r, http.MethodPatch, "/orders/"+orderID+"/status", map[string]any{
		"status":   orders.StatusConfirmed,
		"role":     orders.RoleOperations,
		"actor_id": "staff-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("transition: status %d body %s", w.Code, w.Body.String())
	}

	// The detail endpoint must carry lines, history and totals right
	// after a transition, not a thinned-down status body.
	w, detail := doJSON(t, r, http.MethodGet, "/orders/"+orderID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detail: status %d body %s", w.Code, w.Body.String())
	}
	if detail["status"] != string(orders.StatusConfirmed) {
		t.Fatalf("status = %v, want %s", detail["status"], orders.StatusConfirmed)
	}
	lines, ok := detail["lines"].([]any)
	if !ok || len(lines) != 1 {
		t.Fatalf("lines = %v, want 1 line", detail["lines"])
	}
	hist, ok := detail["history"].([]any)
	if !ok || len(hist) != 1 {
		t.Fatalf("history = %v, want 1 entry", detail["history"])
	}
	if got := detail["total_cents"].(float64); got != 900 {
		t.Fatalf("total_cents = %v, want 900", got)
	}

	w, status := doJSON(t, r, http.MethodGet, "/orders/"+orderID+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status read: %d body %s", w.Code, w.Body.String())
	}
	if status["status"] != string(orders.StatusConfirmed) {
		t.Fatalf("status endpoint = %v, want %s", status["status"], orders.StatusConfirmed)
	}
}
