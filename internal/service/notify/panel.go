package notify

import (
    "context"
    "sort"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
)

// SidebarLimit is how many recent notifications the sidebar shows.
const SidebarLimit = 50

// Store is the notification persistence used by the panel.
type Store interface {
    ListNotifications(ctx context.Context, userID uuid.UUID) ([]ledger.Notification, error)
    GetNotification(ctx context.Context, userID uuid.UUID, id string) (ledger.Notification, error)
    UpdateNotifications(ctx context.Context, userID uuid.UUID, ns []ledger.Notification) error
    DeleteNotification(ctx context.Context, userID uuid.UUID, id string) error
}

// ReadFilter selects by read state.
type ReadFilter string

const (
    ReadAll    ReadFilter = "all"
    ReadOnly   ReadFilter = "read"
    UnreadOnly ReadFilter = "unread"
)

// Filter narrows the full notification list.
type Filter struct {
    Type   ledger.NotificationType
    Status ReadFilter
    Search string
}

func (f Filter) match(n ledger.Notification) bool {
    if f.Type != "" && f.Type != "all" && n.Type != f.Type { return false }
    switch f.Status {
    case ReadOnly:
        if !n.Read { return false }
    case UnreadOnly:
        if n.Read { return false }
    }
    if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
        return strings.Contains(strings.ToLower(n.Message), q)
    }
    return true
}

// Group is a bucket of notifications by age.
type Group struct {
    Label         string                `json:"label"`
    Notifications []ledger.Notification `json:"notifications"`
}

// Panel implements the notification panel actions.
type Panel struct {
    store Store
    clock ledger.Clock
}

func NewPanel(store Store, clock ledger.Clock) *Panel {
    if clock == nil { clock = ledger.SystemClock }
    return &Panel{store: store, clock: clock}
}

// List returns notifications matching f, newest first.
func (p *Panel) List(ctx context.Context, userID uuid.UUID, f Filter) ([]ledger.Notification, error) {
    all, err := p.store.ListNotifications(ctx, userID)
    if err != nil { return nil, errs.Fetch("list_notifications", err) }
    out := make([]ledger.Notification, 0, len(all))
    for _, n := range all {
        if f.match(n) { out = append(out, n) }
    }
    return out, nil
}

// Sidebar returns the most recent notifications not cleared from the sidebar,
// pinned first.
func (p *Panel) Sidebar(ctx context.Context, userID uuid.UUID) ([]ledger.Notification, error) {
    all, err := p.store.ListNotifications(ctx, userID)
    if err != nil { return nil, errs.Fetch("list_notifications", err) }
    if len(all) > SidebarLimit { all = all[:SidebarLimit] }
    out := make([]ledger.Notification, 0, len(all))
    for _, n := range all {
        if !n.Cleared { out = append(out, n) }
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Pinned && !out[j].Pinned })
    return out, nil
}

// Unread counts unread notifications still visible in the sidebar.
func (p *Panel) Unread(ctx context.Context, userID uuid.UUID) (int, error) {
    side, err := p.Sidebar(ctx, userID)
    if err != nil { return 0, err }
    n := 0
    for _, x := range side {
        if !x.Read { n++ }
    }
    return n, nil
}

// GroupByDate buckets notifications into Today, Yesterday, This week, This month and Older.
// Weeks start on Sunday.
func (p *Panel) GroupByDate(ns []ledger.Notification) []Group {
    today := ledger.Day(p.clock())
    yesterday := today.AddDate(0, 0, -1)
    weekStart := today.AddDate(0, 0, -int(today.Weekday()))
    monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

    groups := []Group{{Label: "Today"}, {Label: "Yesterday"}, {Label: "This week"}, {Label: "This month"}, {Label: "Older"}}
    for _, n := range ns {
        d := ledger.Day(n.CreatedAt)
        i := 4
        switch {
        case d.Equal(today):
            i = 0
        case d.Equal(yesterday):
            i = 1
        case !d.Before(weekStart):
            i = 2
        case !d.Before(monthStart):
            i = 3
        }
        groups[i].Notifications = append(groups[i].Notifications, n)
    }
    return groups
}

func (p *Panel) update(ctx context.Context, userID uuid.UUID, id string, fn func(n *ledger.Notification)) (ledger.Notification, error) {
    n, err := p.store.GetNotification(ctx, userID, id)
    if err != nil { return ledger.Notification{}, err }
    fn(&n)
    if err := p.store.UpdateNotifications(ctx, userID, []ledger.Notification{n}); err != nil { return ledger.Notification{}, err }
    return n, nil
}

func (p *Panel) MarkRead(ctx context.Context, userID uuid.UUID, id string) (ledger.Notification, error) {
    return p.update(ctx, userID, id, func(n *ledger.Notification) { n.Read = true })
}

func (p *Panel) TogglePin(ctx context.Context, userID uuid.UUID, id string) (ledger.Notification, error) {
    return p.update(ctx, userID, id, func(n *ledger.Notification) { n.Pinned = !n.Pinned })
}

func (p *Panel) ToggleImportant(ctx context.Context, userID uuid.UUID, id string) (ledger.Notification, error) {
    return p.update(ctx, userID, id, func(n *ledger.Notification) { n.Important = !n.Important })
}

func (p *Panel) Delete(ctx context.Context, userID uuid.UUID, id string) error {
    return p.store.DeleteNotification(ctx, userID, id)
}

// MarkAllRead marks every unread notification read in one batch. It returns
// how many were unread.
func (p *Panel) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
    all, err := p.store.ListNotifications(ctx, userID)
    if err != nil { return 0, errs.Fetch("list_notifications", err) }
    batch := make([]ledger.Notification, 0)
    for _, n := range all {
        if !n.Read {
            n.Read = true
            batch = append(batch, n)
        }
    }
    if len(batch) == 0 { return 0, nil }
    return len(batch), p.store.UpdateNotifications(ctx, userID, batch)
}

// ClearSidebar hides sidebar notifications in one batch. Pinned and important
// ones are kept unless their flag is passed.
func (p *Panel) ClearSidebar(ctx context.Context, userID uuid.UUID, includePinned, includeImportant bool) (int, error) {
    side, err := p.Sidebar(ctx, userID)
    if err != nil { return 0, err }
    batch := make([]ledger.Notification, 0)
    for _, n := range side {
        if n.Pinned && !includePinned { continue }
        if n.Important && !includeImportant { continue }
        n.Cleared = true
        batch = append(batch, n)
    }
    if len(batch) == 0 { return 0, nil }
    return len(batch), p.store.UpdateNotifications(ctx, userID, batch)
}
