package dictionary

import "github.com/tinoosan/cashflow/internal/ledger"

// NotificationDef describes how a notification kind is presented.
type NotificationDef struct {
	Type      ledger.NotificationType `json:"type"`
	Label     string                  `json:"label"`
	Icon      string                  `json:"icon"`
	IconClass string                  `json:"icon_class"`
	Link      string                  `json:"link"`
	Severity  string                  `json:"severity"`
}

const (
	linkPayables    = "/payables"
	linkReceivables = "/receivables"
)

var notificationDefs = []NotificationDef{
	{Type: ledger.NotifyDueTodayPayable, Label: "Payable due today", Icon: "event_busy", IconClass: "notification-icon-danger", Link: linkPayables, Severity: "high"},
	{Type: ledger.NotifyDueSoonPayable, Label: "Payable due soon", Icon: "calendar_month", IconClass: "notification-icon-warning", Link: linkPayables, Severity: "medium"},
	{Type: ledger.NotifyOverduePayable, Label: "Payable overdue", Icon: "error", IconClass: "notification-icon-danger", Link: linkPayables, Severity: "high"},
	{Type: ledger.NotifyDueTodayReceivable, Label: "Receivable due today", Icon: "event_busy", IconClass: "notification-icon-danger", Link: linkReceivables, Severity: "high"},
	{Type: ledger.NotifyDueSoonReceivable, Label: "Receivable due soon", Icon: "event_available", IconClass: "notification-icon-info", Link: linkReceivables, Severity: "low"},
	{Type: ledger.NotifyOverdueReceivable, Label: "Receivable overdue", Icon: "warning", IconClass: "notification-icon-danger", Link: linkReceivables, Severity: "high"},
}

// Notifications lists every notification kind in display order.
func Notifications() []NotificationDef {
	out := make([]NotificationDef, len(notificationDefs))
	copy(out, notificationDefs)
	return out
}

// NotificationFor returns the presentation of a kind. Unknown kinds get a neutral default.
func NotificationFor(t ledger.NotificationType) NotificationDef {
	for _, d := range notificationDefs {
		if d.Type == t {
			return d
		}
	}
	return NotificationDef{Type: t, Label: string(t), Icon: "notifications", IconClass: "notification-icon-info"}
}

// IsNotificationType reports whether t is a known kind.
func IsNotificationType(t ledger.NotificationType) bool {
	for _, d := range notificationDefs {
		if d.Type == t {
			return true
		}
	}
	return false
}
