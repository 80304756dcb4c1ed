package observability

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Audit writes one structured audit line for an identity or session event.
// Callers pass identifiers only; opaque strings and key material stay out.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"remote_ip", r.RemoteAddr,
	}
	base = append(base, TraceAttrs(r.Context())...)
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
