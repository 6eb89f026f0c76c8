package v1

import (
    "net/http"

    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/whatif"
)

func (s *Server) session(r *http.Request) *whatif.Session { return s.sessions.Get(userFrom(r)) }

func sessionItems(sess *whatif.Session) whatIfItemsResponse {
    out := whatIfItemsResponse{Items: sess.Items()}
    if id, cmp := sess.Comparison(); id != uuid.Nil {
        out.ComparisonID = &id
        out.Comparison = cmp
    }
    return out
}

// GET /v1/whatif/items
func (s *Server) listWhatIfItems(w http.ResponseWriter, r *http.Request) {
    toJSON(w, http.StatusOK, sessionItems(s.session(r)))
}

// POST /v1/whatif/items expands the form and adds the items to the session.
func (s *Server) postWhatIfItems(w http.ResponseWriter, r *http.Request) {
    var req whatIfItemRequest
    if !decodeJSON(w, r, &req) { return }
    added, err := whatif.Expand(req.input())
    if err != nil { writeServiceErr(w, s.log, err); return }
    s.session(r).AddItems(added...)
    toJSON(w, http.StatusCreated, items(added))
}

// POST /v1/whatif/preview expands the form without touching the session.
func (s *Server) previewWhatIf(w http.ResponseWriter, r *http.Request) {
    var req whatIfItemRequest
    if !decodeJSON(w, r, &req) { return }
    out, err := whatif.Expand(req.input())
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(out))
}

// DELETE /v1/whatif/items
func (s *Server) clearWhatIfItems(w http.ResponseWriter, r *http.Request) {
    s.session(r).Clear()
    w.WriteHeader(http.StatusNoContent)
}

// DELETE /v1/whatif/items/{id}
func (s *Server) deleteWhatIfItem(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    if err := s.session(r).RemoveItem(id); err != nil { writeServiceErr(w, s.log, err); return }
    w.WriteHeader(http.StatusNoContent)
}

// GET /v1/whatif/scenarios
func (s *Server) listScenarios(w http.ResponseWriter, r *http.Request) {
    scs, err := s.planner.List(r.Context(), userFrom(r))
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, items(scs))
}

// POST /v1/whatif/scenarios saves the session's items under a name.
func (s *Server) saveScenario(w http.ResponseWriter, r *http.Request) {
    var req saveScenarioRequest
    if !decodeJSON(w, r, &req) { return }
    sc, err := s.planner.Save(r.Context(), userFrom(r), s.session(r), req.Name)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusCreated, sc)
}

// POST /v1/whatif/scenarios/{id}/load replaces the session's items.
func (s *Server) loadScenario(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    sc, err := s.planner.Load(r.Context(), userFrom(r), s.session(r), id)
    if err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, sc)
}

// DELETE /v1/whatif/scenarios/{id}
func (s *Server) deleteScenario(w http.ResponseWriter, r *http.Request) {
    id, err := idParam(r)
    if err != nil { writeServiceErr(w, s.log, err); return }
    if err := s.planner.Delete(r.Context(), userFrom(r), s.session(r), id); err != nil { writeServiceErr(w, s.log, err); return }
    w.WriteHeader(http.StatusNoContent)
}

// PUT /v1/whatif/comparison selects a saved scenario to compare against.
func (s *Server) setComparison(w http.ResponseWriter, r *http.Request) {
    var req comparisonRequest
    if !decodeJSON(w, r, &req) { return }
    if req.ScenarioID == uuid.Nil { badRequest(w, "scenario_id is required"); return }
    sess := s.session(r)
    if err := s.planner.Compare(r.Context(), userFrom(r), sess, req.ScenarioID); err != nil { writeServiceErr(w, s.log, err); return }
    toJSON(w, http.StatusOK, sessionItems(sess))
}

// DELETE /v1/whatif/comparison
func (s *Server) clearComparison(w http.ResponseWriter, r *http.Request) {
    s.session(r).ClearComparison()
    w.WriteHeader(http.StatusNoContent)
}
