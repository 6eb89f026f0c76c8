package statement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/storage"
)

// Source is the store surface a view reads from.
type Source interface {
	GetBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	SubscribeMovements(ctx context.Context, userID, accountID uuid.UUID, fn storage.MovementListener) (func(), error)
}

// View follows one account at a time. Selecting another account drops the
// previous subscription before the new one is opened.
type View struct {
	src    Source
	userID uuid.UUID
	onLoad func(Statement)
	log    *slog.Logger

	selMu  sync.Mutex
	cancel func()

	mu     sync.Mutex
	gen    uint64
	latest *Statement
}

// NewView returns a view for userID. onLoad, when set, receives every new statement.
func NewView(src Source, userID uuid.UUID, onLoad func(Statement), logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{src: src, userID: userID, onLoad: onLoad, log: logger}
}

// Select switches the view to accountID over [start, end].
func (v *View) Select(ctx context.Context, accountID uuid.UUID, start, end time.Time) error {
	v.selMu.Lock()
	defer v.selMu.Unlock()

	v.unsubscribeLocked()
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.latest = nil
	v.mu.Unlock()

	if accountID == uuid.Nil {
		return nil
	}
	acc, err := v.src.GetBankAccount(ctx, v.userID, accountID)
	if err != nil {
		return err
	}
	cancel, err := v.src.SubscribeMovements(ctx, v.userID, accountID, func(ms []ledger.BankMovement) {
		v.deliver(gen, Build(acc, ms, start, end))
	})
	if err != nil {
		return err
	}
	v.cancel = cancel
	v.log.Debug("statement subscribed", "user_id", v.userID, "account_id", accountID)
	return nil
}

// Latest returns the most recent statement for the current selection.
func (v *View) Latest() (Statement, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latest == nil {
		return Statement{}, false
	}
	return *v.latest, true
}

// Close drops the subscription.
func (v *View) Close() {
	v.selMu.Lock()
	defer v.selMu.Unlock()
	v.unsubscribeLocked()
	v.mu.Lock()
	v.gen++
	v.mu.Unlock()
}

func (v *View) unsubscribeLocked() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// deliver drops snapshots from a selection that has since been replaced.
func (v *View) deliver(gen uint64, st Statement) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.latest = &st
	v.mu.Unlock()
	if v.onLoad != nil {
		v.onLoad(st)
	}
}
