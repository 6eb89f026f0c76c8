package v1

import (
    "context"
    "net/http"
    "strings"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/dictionary"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/service/notify"
)

// GET /v1/notifications?type=&status=&q=&grouped=
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    f := notify.Filter{
        Type:   ledger.NotificationType(strings.TrimSpace(q.Get("type"))),
        Status: notify.ReadFilter(strings.TrimSpace(q.Get("status"))),
        Search: q.Get("q"),
    }
    if f.Type != "" && f.Type != "all" && !dictionary.IsNotificationType(f.Type) {
        writeServiceErr(w, s.log, errs.Invalid("type", "unknown notification type"))
        return
    }
    switch f.Status {
    case "", notify.ReadAll, notify.ReadOnly, notify.UnreadOnly:
    default:
        writeServiceErr(w, s.log, errs.Invalid("status", "must be all, read or unread"))
        return
    }
    grouped, err := boolParam(r, "grouped", false)
    if err != nil { writeServiceErr(w, s.log, err); return }
    ns, err := s.panel.List(r.Context(), userFrom(r), f)
    if err != nil { writeServiceErr(w, s.log, err); return }
    if grouped {
        var groups []notify.Group
        for _, g := range s.panel.GroupByDate(ns) {
            if len(g.Notifications) > 0 { groups = append(groups, g) }
        }
        toJSON(w, http.StatusOK, items(groups))
        return
    }
    toJSON(w, http.StatusOK, items(ns))
}

// GET /v1/notifications/sidebar
func (s *Server) getSidebar(w http.ResponseWriter, r *http.Request) {
    ns, err := s.panel.Sidebar(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(ns))
}

// GET /v1/notifications/unread
func (s *Server) getUnread(w http.ResponseWriter, r *http.Request) {
    n, err := s.panel.Unread(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, countResponse{Count: n})
}

// POST /v1/notifications/scan derives notifications from the user's titles now.
func (s *Server) scanNotifications(w http.ResponseWriter, r *http.Request) {
    res, err := s.scanner.Scan(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, res)
}

// POST /v1/notifications/read-all
func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
    n, err := s.panel.MarkAllRead(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, countResponse{Count: n})
}

// POST /v1/notifications/clear hides sidebar entries; pinned and important
// ones stay unless included.
func (s *Server) clearSidebar(w http.ResponseWriter, r *http.Request) {
    var req clearSidebarRequest
    if r.ContentLength != 0 {
        if !decodeJSON(w, r, &req) { return }
    }
    n, err := s.panel.ClearSidebar(r.Context(), userFrom(r), req.IncludePinned, req.IncludeImportant)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, countResponse{Count: n})
}

type notificationAction func(ctx context.Context, userID uuid.UUID, id string) (ledger.Notification, error)

func (s *Server) notificationAction(w http.ResponseWriter, r *http.Request, act notificationAction) {
    n, err := act(r.Context(), userFrom(r), chi.URLParam(r, "id"))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, n)
}

// POST /v1/notifications/{id}/read
func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
    s.notificationAction(w, r, s.panel.MarkRead)
}

// POST /v1/notifications/{id}/pin
func (s *Server) togglePin(w http.ResponseWriter, r *http.Request) {
    s.notificationAction(w, r, s.panel.TogglePin)
}

// POST /v1/notifications/{id}/important
func (s *Server) toggleImportant(w http.ResponseWriter, r *http.Request) {
    s.notificationAction(w, r, s.panel.ToggleImportant)
}

// DELETE /v1/notifications/{id}
func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
    if err := s.panel.Delete(r.Context(), userFrom(r), chi.URLParam(r, "id")); err != nil { writeServiceErr(w, s.log, err); return }
    w.WriteHeader(http.StatusNoContent)
}
