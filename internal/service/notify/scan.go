// Package notify generates due-date alerts for payables and receivables and
// implements the notification panel operations.
package notify

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "github.com/tinoosan/cashflow/internal/dictionary"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/meta"
)

// DueSoonDays is how far ahead titles are reported as due soon.
const DueSoonDays = 3

var notificationsCreated = promauto.NewCounterVec(
    prometheus.CounterOpts{
        Namespace: "cashflow",
        Name:      "notifications_created_total",
        Help:      "Notifications inserted by the scanner",
    },
    []string{"type"},
)

// Source is what the scanner reads and writes.
type Source interface {
    ListTitles(ctx context.Context, userID uuid.UUID, kind ledger.TitleKind) ([]ledger.Title, error)
    CreateNotificationIfAbsent(ctx context.Context, n ledger.Notification) (bool, error)
}

// ScanResult counts what one scan did.
type ScanResult struct {
    Created  int `json:"created"`
    Existing int `json:"existing"`
}

// Scanner derives notifications from titles.
type Scanner struct {
    src   Source
    clock ledger.Clock
    log   *slog.Logger
}

func NewScanner(src Source, clock ledger.Clock, logger *slog.Logger) *Scanner {
    if clock == nil { clock = ledger.SystemClock }
    if logger == nil { logger = slog.Default() }
    return &Scanner{src: src, clock: clock, log: logger}
}

// Scan checks payables and receivables of one user. Inserts are conditional
// on the deterministic notification id, so repeating a scan on unchanged data
// creates nothing.
func (s *Scanner) Scan(ctx context.Context, userID uuid.UUID) (ScanResult, error) {
    if userID == uuid.Nil { return ScanResult{}, errs.ErrInvalid }
    today := ledger.Day(s.clock())
    var res ScanResult
    for _, kind := range []ledger.TitleKind{ledger.TitleExpense, ledger.TitleRevenue} {
        titles, err := s.src.ListTitles(ctx, userID, kind)
        if err != nil { return res, errs.Fetch("list_"+string(kind)+"s", err) }
        for _, t := range titles {
            typ, ok := classify(t, today)
            if !ok { continue }
            created, err := s.src.CreateNotificationIfAbsent(ctx, build(userID, t, typ))
            if err != nil { return res, fmt.Errorf("create notification for %s: %w", t.ID, err) }
            if created {
                res.Created++
                notificationsCreated.WithLabelValues(string(typ)).Inc()
            } else {
                res.Existing++
            }
        }
    }
    if res.Created > 0 {
        s.log.Info("notifications created", "user_id", userID, "created", res.Created)
    }
    return res, nil
}

// classify returns the notification kind for a title, if any.
func classify(t ledger.Title, today time.Time) (ledger.NotificationType, bool) {
    payable := t.Kind == ledger.TitleExpense
    pick := func(p, r ledger.NotificationType) ledger.NotificationType {
        if payable { return p }
        return r
    }
    switch t.EffectiveStatus() {
    case ledger.StatusOverdue:
        return pick(ledger.NotifyOverduePayable, ledger.NotifyOverdueReceivable), true
    case ledger.StatusPending, ledger.StatusPartial:
        days := ledger.DaysBetween(today, t.DueDate)
        switch {
        case days == 0:
            return pick(ledger.NotifyDueTodayPayable, ledger.NotifyDueTodayReceivable), true
        case days > 0 && days <= DueSoonDays:
            return pick(ledger.NotifyDueSoonPayable, ledger.NotifyDueSoonReceivable), true
        }
    }
    return "", false
}

func build(userID uuid.UUID, t ledger.Title, typ ledger.NotificationType) ledger.Notification {
    def := dictionary.NotificationFor(typ)
    return ledger.Notification{
        ID:        ledger.NotificationID(t.ID, typ),
        UserID:    userID,
        RelatedID: t.ID,
        Type:      typ,
        Title:     def.Label,
        Message:   message(t, typ),
        Metadata:  meta.Presentation(def.Icon, def.IconClass, def.Severity),
        Link:      def.Link,
    }
}

func message(t ledger.Title, typ ledger.NotificationType) string {
    who := fmt.Sprintf("Payable to %q", t.Counterparty)
    if t.Kind == ledger.TitleRevenue { who = fmt.Sprintf("Receivable from %q", t.Counterparty) }
    switch typ {
    case ledger.NotifyDueTodayPayable, ledger.NotifyDueTodayReceivable:
        return fmt.Sprintf("%s of %s is due today.", who, t.Outstanding())
    case ledger.NotifyDueSoonPayable, ledger.NotifyDueSoonReceivable:
        return fmt.Sprintf("%s is due on %s.", who, t.DueDate.Format(ledger.DateLayout))
    default:
        return fmt.Sprintf("%s of %s is overdue.", who, t.Outstanding())
    }
}

// UserLister enumerates the users to scan.
type UserLister interface {
    ListUsers(ctx context.Context) ([]uuid.UUID, error)
}

// Scheduler runs a scan for every user at start and then on each tick.
type Scheduler struct {
    scanner  *Scanner
    users    UserLister
    interval time.Duration
    log      *slog.Logger
}

func NewScheduler(scanner *Scanner, users UserLister, interval time.Duration, logger *slog.Logger) *Scheduler {
    if interval <= 0 { interval = 5 * time.Minute }
    if logger == nil { logger = slog.Default() }
    return &Scheduler{scanner: scanner, users: users, interval: interval, log: logger}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
    s.RunOnce(ctx)
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            s.RunOnce(ctx)
        }
    }
}

// RunOnce scans every user. A failing user is logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
    users, err := s.users.ListUsers(ctx)
    if err != nil {
        s.log.Error("notification scan: list users", "err", err)
        return
    }
    for _, u := range users {
        if ctx.Err() != nil { return }
        if _, err := s.scanner.Scan(ctx, u); err != nil {
            s.log.Warn("notification scan failed", "user_id", u, "err", err)
        }
    }
}
