package ledger

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NotificationType enumerates the alert kinds produced by the scanner.
type NotificationType string

const (
	NotifyDueTodayPayable    NotificationType = "due_today_payable"
	NotifyDueSoonPayable     NotificationType = "due_soon_payable"
	NotifyOverduePayable     NotificationType = "overdue_payable"
	NotifyDueTodayReceivable NotificationType = "due_today_receivable"
	NotifyDueSoonReceivable  NotificationType = "due_soon_receivable"
	NotifyOverdueReceivable  NotificationType = "overdue_receivable"
)

// NotificationID is the document id for (relatedID, type). Inserting by this id
// lets the store enforce at most one live notification per pair.
func NotificationID(relatedID uuid.UUID, t NotificationType) string {
	sum := sha256.Sum256([]byte(relatedID.String() + "|" + string(t)))
	return hex.EncodeToString(sum[:])
}
