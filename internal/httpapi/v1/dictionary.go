package v1

import (
	"net/http"

	"github.com/tinoosan/cashflow/internal/dictionary"
	"github.com/tinoosan/cashflow/internal/errs"
	"github.com/tinoosan/cashflow/internal/ledger"
)

// GET /v1/dictionary/statuses?kind=
func (s *Server) getStatusesDictionary(w http.ResponseWriter, r *http.Request) {
	var k *ledger.TitleKind
	if ks := r.URL.Query().Get("kind"); ks != "" {
		kk := ledger.TitleKind(ks)
		if kk != ledger.TitleExpense && kk != ledger.TitleRevenue {
			writeServiceErr(w, s.log, errs.Invalid("kind", "must be expense or revenue"))
			return
		}
		k = &kk
	}
	type statusItem struct {
		Kind     ledger.TitleKind      `json:"kind"`
		Statuses []dictionary.LabelDef `json:"statuses"`
	}
	out := struct {
		Items []statusItem `json:"items"`
	}{Items: []statusItem{}}
	byKind := dictionary.StatusesFor(k)
	for _, kind := range []ledger.TitleKind{ledger.TitleExpense, ledger.TitleRevenue} {
		if list, ok := byKind[kind]; ok {
			out.Items = append(out.Items, statusItem{Kind: kind, Statuses: list})
		}
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/dictionary/activities
func (s *Server) getActivitiesDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, items(dictionary.Activities()))
}

// GET /v1/dictionary/notifications
func (s *Server) getNotificationsDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, items(dictionary.Notifications()))
}
