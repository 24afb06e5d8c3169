package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/freshcrate/go-drop-orders/internal/faults"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr translates the error taxonomy into HTTP responses. Capacity
// shortfalls carry their per-line availability so clients can adjust
// without re-polling.
func writeErr(w http.ResponseWriter, err error) {
	var (
		ve *faults.ValidationError
		ce *faults.CapacityError
		te *faults.TransitionError
		ne *faults.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "insufficient_capacity",
			"details": ce.Details,
		})
	case errors.As(err, &te):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "invalid_transition", "detail": te.Error(),
		})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ne.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
