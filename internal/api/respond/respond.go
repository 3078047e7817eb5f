// Package respond writes JSON bodies and the error envelope shared by every
// API endpoint and middleware.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hugh/inkpress/internal/apperr"
)

const internalMessage = "An internal error occurred"

type ErrorBody struct {
	Status  int               `json:"status"`
	Name    string            `json:"name"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as the error envelope. Errors outside the apperr taxonomy
// are logged and reported as a generic 500 so driver details never leak.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		e = &apperr.Error{Kind: apperr.KindInternal, Message: internalMessage}
	} else if e.Err != nil {
		slog.WarnContext(r.Context(), "request rejected",
			"kind", e.Kind.String(),
			"path", r.URL.Path,
			"cause", e.Err,
		)
	}

	details := e.Details
	if details == nil {
		details = map[string]string{}
	}

	JSON(w, e.Kind.Status(), ErrorResponse{Error: ErrorBody{
		Status:  e.Kind.Status(),
		Name:    e.Kind.String(),
		Message: e.Message,
		Details: details,
	}})
}
