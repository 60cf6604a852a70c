package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Meta    any    `json:"meta,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: msg, Data: data})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(k orders.Kind) int {
	switch k {
	case orders.KindInvalidInput, orders.KindInvalidState:
		return http.StatusBadRequest
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindConflict:
		return http.StatusConflict
	case orders.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Unclassified errors are logged and their text withheld.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := orders.KindOf(err)
	code := statusFor(kind)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal server error"
	}
	writeJSON(w, code, envelope{Success: false, Message: msg, Code: kind.String()})
}

const maxBody = 1 << 20

// decode reads a JSON body of at most maxBody bytes into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return orders.Errorf(orders.KindInvalidInput, "request body is empty")
		}
		return orders.Errorf(orders.KindInvalidInput, "invalid json: %v", err)
	}
	return nil
}

const defaultTimeout = 5 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
