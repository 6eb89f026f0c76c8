package v1

import (
    "context"
    "net/http"
    "time"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz pings the store when it can be pinged, with a short timeout.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
    type readyIf interface{ Ready(context.Context) error }
    ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
    defer cancel()
    if rc, ok := any(s.store).(readyIf); ok {
        if err := rc.Ready(ctx); err != nil {
            s.log.Warn("readiness check failed", "err", err)
            w.WriteHeader(http.StatusServiceUnavailable)
            return
        }
    }
    w.WriteHeader(http.StatusOK)
}
