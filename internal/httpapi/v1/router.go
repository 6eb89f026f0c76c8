// Package v1 wires the HTTP surface of the cash-flow service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
    "context"
    "log/slog"
    "net/http"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    "github.com/google/uuid"

    "github.com/tinoosan/cashflow/internal/fetch"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/service/account"
    "github.com/tinoosan/cashflow/internal/service/dashboard"
    "github.com/tinoosan/cashflow/internal/service/notify"
    "github.com/tinoosan/cashflow/internal/service/reconcile"
    "github.com/tinoosan/cashflow/internal/statement"
    "github.com/tinoosan/cashflow/internal/whatif"
)

// Store is the persistence surface the API needs. Both the memory and the
// Postgres stores satisfy it.
type Store interface {
    fetch.Reader
    account.Repo
    account.Writer
    reconcile.Store
    statement.Source
    notify.Store
    notify.Source
    notify.UserLister
    whatif.ScenarioStore
    ListMovements(ctx context.Context, userID, accountID uuid.UUID) ([]ledger.BankMovement, error)
    GetMovement(ctx context.Context, userID, id uuid.UUID) (ledger.BankMovement, error)
    TitleHistory(ctx context.Context, userID, titleID uuid.UUID) ([]ledger.Settlement, error)
    PutChartAccount(ctx context.Context, c ledger.ChartAccount) (ledger.ChartAccount, error)
}

// Server wires handlers and middleware using Chi.
type Server struct {
    store      Store
    fetcher    *fetch.Fetcher
    clock      ledger.Clock
    accountSvc account.Service
    reconSvc   reconcile.Service
    dash       *dashboard.Service
    planner    *whatif.Planner
    sessions   *whatif.Sessions
    scanner    *notify.Scanner
    panel      *notify.Panel
    log        *slog.Logger
    rt         *chi.Mux
}

// New constructs the HTTP server with routes and middleware. A nil fetcher
// reads straight from store; a nil clock uses the system clock.
func New(store Store, fetcher *fetch.Fetcher, clock ledger.Clock, logger *slog.Logger) *Server {
    if logger == nil { logger = slog.Default() }
    if clock == nil { clock = ledger.SystemClock }
    if fetcher == nil { fetcher = fetch.New(store, fetch.WithLogger(logger)) }

    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(requestLogger(logger))
    r.Use(recoverer(logger))
    r.Use(metricsMiddleware)
    if auth := authJWTFromEnv(); auth != nil {
        r.Use(auth)
    }

    s := &Server{
        store:      store,
        fetcher:    fetcher,
        clock:      clock,
        accountSvc: account.New(store, store),
        reconSvc:   reconcile.New(store, clock, logger),
        dash:       dashboard.New(fetcher, logger),
        planner:    whatif.NewPlanner(store),
        sessions:   whatif.NewSessions(),
        scanner:    notify.NewScanner(store, clock, logger),
        panel:      notify.NewPanel(store, clock),
        log:        logger,
        rt:         r,
    }
    s.routes()
    return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// Scanner exposes the notification scanner so a scheduler can share it.
func (s *Server) Scanner() *notify.Scanner { return s.scanner }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
    s.rt.Route("/v1", func(v chi.Router) {
        // Dictionary needs no user.
        v.Get("/dictionary/statuses", s.getStatusesDictionary)
        v.Get("/dictionary/activities", s.getActivitiesDictionary)
        v.Get("/dictionary/notifications", s.getNotificationsDictionary)

        v.Group(func(r chi.Router) {
            r.Use(s.requireUser)

            // Cash flow
            r.Get("/cashflow", s.getCashflow)
            r.Get("/cashflow/opening-balance", s.getOpeningBalance)
            r.Get("/cashflow/compare", s.getComparePeriods)

            // Reports
            r.Get("/reports/dre", s.getDRE)
            r.Get("/reports/aging", s.getAging)
            r.Get("/reports/forecast", s.getForecast)
            r.Get("/reports/portfolio", s.getPortfolio)
            r.Get("/reports/categories", s.getCategoryTotals)
            r.Get("/reports/chart-tree", s.getChartTree)
            r.Get("/reports/monthly", s.getMonthly)
            r.Get("/reports/daily-balance", s.getDailyBalance)
            r.Get("/reports/top-categories", s.getTopCategories)
            r.Get("/reports/expenses", s.getExpensesByCategory)
            r.Get("/reports/export", s.notImplemented)
            r.Get("/cashflow/export", s.notImplemented)

            // Titles and settlements
            r.Get("/titles", s.listTitles)
            r.Get("/titles/{id}/history", s.getTitleHistory)
            r.Post("/titles/{id}/settlements", s.postSettlement)
            r.Post("/settlements/reconcile", s.reconcileSettlements)

            // Bank statement
            r.Get("/accounts/{id}/statement", s.getStatement)
            r.Get("/accounts/{id}/statement/stream", s.streamStatement)
            r.Post("/movements/reconcile", s.reconcileMovements)
            r.Post("/movements/actions", s.movementActions)
            r.Post("/movements/{id}/reverse", s.reverseMovement)

            // Accounts and transfers
            r.Get("/accounts", s.listAccounts)
            r.Post("/accounts", s.postAccount)
            r.Post("/accounts/batch", s.postAccountsBatch)
            r.Patch("/accounts/{id}", s.patchAccount)
            r.Post("/transfers", s.postTransfer)

            // Chart of accounts
            r.Get("/chart", s.listChart)
            r.Put("/chart/{id}", s.putChartAccount)

            // What-if
            r.Get("/whatif/items", s.listWhatIfItems)
            r.Post("/whatif/items", s.postWhatIfItems)
            r.Delete("/whatif/items", s.clearWhatIfItems)
            r.Delete("/whatif/items/{id}", s.deleteWhatIfItem)
            r.Post("/whatif/preview", s.previewWhatIf)
            r.Get("/whatif/scenarios", s.listScenarios)
            r.Post("/whatif/scenarios", s.saveScenario)
            r.Post("/whatif/scenarios/{id}/load", s.loadScenario)
            r.Delete("/whatif/scenarios/{id}", s.deleteScenario)
            r.Put("/whatif/comparison", s.setComparison)
            r.Delete("/whatif/comparison", s.clearComparison)

            // Notifications
            r.Get("/notifications", s.listNotifications)
            r.Get("/notifications/sidebar", s.getSidebar)
            r.Get("/notifications/unread", s.getUnread)
            r.Post("/notifications/scan", s.scanNotifications)
            r.Post("/notifications/read-all", s.markAllRead)
            r.Post("/notifications/clear", s.clearSidebar)
            r.Post("/notifications/{id}/read", s.markRead)
            r.Post("/notifications/{id}/pin", s.togglePin)
            r.Post("/notifications/{id}/important", s.toggleImportant)
            r.Delete("/notifications/{id}", s.deleteNotification)
        })
    })

    // Health (unversioned)
    s.rt.Get("/healthz", s.healthz)
    s.rt.Get("/readyz", s.readyz)
    s.rt.Handle("/metrics", metricsHandler())
}
