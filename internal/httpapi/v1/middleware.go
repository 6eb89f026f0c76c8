package v1

import (
    "context"
    "net/http"
    "strings"

    "github.com/google/uuid"
)

type ctxKey int

const (
    ctxUserID ctxKey = iota
    ctxSubject
)

// requireUser resolves the user from the user_id query parameter or the
// X-User-ID header and stores it in the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
        if raw == "" { raw = strings.TrimSpace(r.Header.Get("X-User-ID")) }
        if raw == "" { badRequest(w, "user_id is required"); return }
        id, err := uuid.Parse(raw)
        if err != nil || id == uuid.Nil { badRequest(w, "invalid user_id"); return }
        next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserID, id)))
    })
}

func userFrom(r *http.Request) uuid.UUID {
    id, _ := r.Context().Value(ctxUserID).(uuid.UUID)
    return id
}

// actorFrom names who performed an action: the token subject when auth is
// on, otherwise the supplied fallback.
func actorFrom(r *http.Request, fallback string) string {
    if sub, ok := r.Context().Value(ctxSubject).(string); ok && sub != "" { return sub }
    return strings.TrimSpace(fallback)
}
