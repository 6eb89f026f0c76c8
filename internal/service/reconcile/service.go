// Package reconcile implements reconciliation toggles, settlement
// registration and the reversal protocol that undoes a settled payment or
// receipt while keeping its history.
package reconcile

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/storage"
)

// ReversalReason is recorded on every reversal record created here.
const ReversalReason = "Reversed via bank reconciliation"

var reversalsTotal = promauto.NewCounterVec(
    prometheus.CounterOpts{
        Namespace: "cashflow",
        Name:      "reversals_total",
        Help:      "Reversal attempts by outcome",
    },
    []string{"result"},
)

// Writer holds the batched, non-atomic reconciliation writes. Each returns the
// number of records written; a missing record yields errs.ErrNotFound after the
// others have been written.
type Writer interface {
    SetSettlementsReconciled(ctx context.Context, userID uuid.UUID, refs []storage.SettlementRef, value bool) (int, error)
    SetMovementsReconciled(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, rec storage.Reconciliation) (int, error)
}

// Store is everything the service needs from persistence.
type Store interface {
    Writer
    storage.Transactor
}

// SettleInput registers a payment against an expense or a receipt against a revenue.
type SettleInput struct {
    UserID          uuid.UUID
    TitleID         uuid.UUID
    AccountID       uuid.UUID
    Date            time.Time
    Principal       money.Cents
    Interest        money.Cents
    Discount        money.Cents
    ResponsibleUser string
}

// SettleResult is the state written by Settle.
type SettleResult struct {
    Settlement ledger.Settlement   `json:"settlement"`
    Movement   ledger.BankMovement `json:"movement"`
    Title      ledger.Title        `json:"title"`
}

// ReversalResult describes what a reversal did.
type ReversalResult struct {
    MovementID uuid.UUID
    // Manual is true when the movement had no origin and was only deleted.
    Manual   bool
    Reversal *ledger.Settlement
    Title    *ledger.Title
    // Transfer is set when a transfer leg was reversed; both legs and the
    // transfer record are gone.
    Transfer *ledger.Transfer
}

type Service interface {
    ReconcileSettlements(ctx context.Context, userID uuid.UUID, refs []storage.SettlementRef, value bool) (int, error)
    ReconcileMovements(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, value bool, actor string) (int, error)
    Settle(ctx context.Context, in SettleInput) (SettleResult, error)
    Reverse(ctx context.Context, userID, movementID uuid.UUID, actor string) (ReversalResult, error)
}

type service struct {
    store Store
    clock ledger.Clock
    log   *slog.Logger
}

func New(store Store, clock ledger.Clock, logger *slog.Logger) Service {
    if clock == nil { clock = ledger.SystemClock }
    if logger == nil { logger = slog.Default() }
    return &service{store: store, clock: clock, log: logger}
}

// ReconcileSettlements sets the reconciled flag on each settlement. Setting the
// same value twice leaves the same state.
func (s *service) ReconcileSettlements(ctx context.Context, userID uuid.UUID, refs []storage.SettlementRef, value bool) (int, error) {
    if userID == uuid.Nil { return 0, errs.ErrInvalid }
    if len(refs) == 0 { return 0, errs.Invalid("items", "select at least one settlement") }
    n, err := s.store.SetSettlementsReconciled(ctx, userID, refs, value)
    if err != nil {
        s.log.Warn("settlement reconcile batch incomplete", "user_id", userID, "written", n, "requested", len(refs), "err", err)
    }
    return n, err
}

// ReconcileMovements marks movements reconciled with the actor and time, or
// clears both when value is false.
func (s *service) ReconcileMovements(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, value bool, actor string) (int, error) {
    if userID == uuid.Nil { return 0, errs.ErrInvalid }
    if len(ids) == 0 { return 0, errs.Invalid("ids", "select at least one movement") }
    rec := storage.Reconciliation{Reconciled: value}
    if value {
        at := s.clock().UTC()
        rec.At = &at
        rec.By = actor
    }
    n, err := s.store.SetMovementsReconciled(ctx, userID, ids, rec)
    if err != nil {
        s.log.Warn("movement reconcile batch incomplete", "user_id", userID, "written", n, "requested", len(ids), "err", err)
    }
    return n, err
}

func validateSettle(in SettleInput) error {
    switch {
    case in.UserID == uuid.Nil:
        return errs.ErrInvalid
    case in.TitleID == uuid.Nil:
        return errs.Invalid("title_id", "required")
    case in.AccountID == uuid.Nil:
        return errs.Invalid("account_id", "required")
    case in.Date.IsZero():
        return errs.Invalid("date", "required")
    case in.Principal <= 0:
        return errs.Invalid("principal", "must be greater than zero")
    case in.Interest < 0:
        return errs.Invalid("interest", "must not be negative")
    case in.Discount < 0:
        return errs.Invalid("discount", "must not be negative")
    }
    return nil
}

// Settle writes the settlement, its bank movement and the title aggregates in
// one transaction.
func (s *service) Settle(ctx context.Context, in SettleInput) (SettleResult, error) {
    if err := validateSettle(in); err != nil { return SettleResult{}, err }
    var out SettleResult
    err := s.store.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        title, err := tx.GetTitle(ctx, in.UserID, in.TitleID)
        if err != nil { return fmt.Errorf("title %s: %w", in.TitleID, err) }
        if title.Status == ledger.StatusSettled || title.Status == ledger.StatusSplit {
            return fmt.Errorf("title %s is %s: %w", title.ID, title.Status, errs.ErrConflict)
        }
        acc, err := tx.GetBankAccount(ctx, in.UserID, in.AccountID)
        if err != nil { return fmt.Errorf("account %s: %w", in.AccountID, err) }

        st := ledger.Settlement{
            ID:              uuid.New(),
            TitleID:         title.ID,
            UserID:          in.UserID,
            Kind:            ledger.SettlementKindFor(title.Kind),
            Date:            ledger.Day(in.Date),
            Principal:       in.Principal,
            Interest:        in.Interest,
            Discount:        in.Discount,
            AccountID:       acc.ID,
            ResponsibleUser: in.ResponsibleUser,
            CreatedAt:       s.clock().UTC(),
        }
        mv := ledger.BankMovement{
            ID:          uuid.New(),
            UserID:      in.UserID,
            AccountID:   acc.ID,
            Date:        st.Date,
            Amount:      st.SignedAmount(),
            Description: title.Description,
            Origin:      &ledger.Origin{Type: ledger.OriginTypeFor(title.Kind), ParentID: title.ID, RecordID: st.ID},
            CreatedAt:   st.CreatedAt,
        }
        title.ApplySettlement(st)
        if err := tx.InsertSettlement(ctx, st); err != nil { return err }
        if err := tx.InsertMovement(ctx, mv); err != nil { return err }
        if err := tx.UpdateTitle(ctx, title); err != nil { return err }
        out = SettleResult{Settlement: st, Movement: mv, Title: title}
        return nil
    })
    if err != nil { return SettleResult{}, err }
    return out, nil
}

// Reverse undoes the movement. A manual movement is deleted. A transfer leg
// takes the transfer and its opposite leg with it. A settlement movement is
// deleted, its settlement is marked reversed, a reversal record is appended
// and the parent title is recomputed, all in one transaction.
func (s *service) Reverse(ctx context.Context, userID, movementID uuid.UUID, actor string) (ReversalResult, error) {
    if userID == uuid.Nil || movementID == uuid.Nil { return ReversalResult{}, errs.ErrInvalid }
    actor = strings.TrimSpace(actor)
    res := ReversalResult{MovementID: movementID}
    err := s.store.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        res = ReversalResult{MovementID: movementID}
        mv, err := tx.GetMovement(ctx, userID, movementID)
        if err != nil { return fmt.Errorf("movement %s: %w", movementID, err) }
        if mv.Origin == nil {
            res.Manual = true
            return tx.DeleteMovement(ctx, userID, mv.ID)
        }
        if mv.Origin.Type == ledger.OriginTransfer {
            tr, err := reverseTransfer(ctx, tx, userID, mv)
            if err != nil { return err }
            res.Transfer = &tr
            return nil
        }

        title, err := tx.GetTitle(ctx, userID, mv.Origin.ParentID)
        if errors.Is(err, errs.ErrNotFound) { return errs.OriginNotFound(string(ledger.TitleKindFor(mv.Origin.Type)), mv.Origin.ParentID) }
        if err != nil { return err }
        st, err := tx.GetSettlement(ctx, userID, title.ID, mv.Origin.RecordID)
        if errors.Is(err, errs.ErrNotFound) { return errs.OriginNotFound(string(ledger.SettlementKindFor(title.Kind)), mv.Origin.RecordID) }
        if err != nil { return err }
        if st.Reversed || st.Kind == ledger.SettlementReversal {
            return fmt.Errorf("settlement %s already reversed: %w", st.ID, errs.ErrConflict)
        }

        if err := tx.DeleteMovement(ctx, userID, mv.ID); err != nil { return err }

        st.Reversed = true
        if err := tx.UpdateSettlement(ctx, st); err != nil { return err }

        now := s.clock()
        rev := ledger.Settlement{
            ID:              uuid.New(),
            TitleID:         title.ID,
            UserID:          userID,
            Kind:            ledger.SettlementReversal,
            Date:            ledger.Day(now),
            Principal:       st.Principal,
            Interest:        st.Interest,
            Discount:        st.Discount,
            AccountID:       st.AccountID,
            ResponsibleUser: actor,
            Reason:          ReversalReason,
            CreatedAt:       now.UTC(),
        }
        if err := tx.InsertSettlement(ctx, rev); err != nil { return err }

        title.ApplyReversal(st, now)
        if err := tx.UpdateTitle(ctx, title); err != nil { return err }

        res.Reversal = &rev
        res.Title = &title
        return nil
    })
    if err != nil {
        reversalsTotal.WithLabelValues(resultLabel(err)).Inc()
        s.log.Error("reversal aborted", "user_id", userID, "movement_id", movementID, "err", err)
        return ReversalResult{}, err
    }
    switch {
    case res.Manual:
        reversalsTotal.WithLabelValues("manual").Inc()
    case res.Transfer != nil:
        reversalsTotal.WithLabelValues("transfer").Inc()
    default:
        reversalsTotal.WithLabelValues("reversed").Inc()
    }
    s.log.Info("movement reversed", "user_id", userID, "movement_id", movementID, "manual", res.Manual)
    return res, nil
}

func resultLabel(err error) string {
    switch {
    case errors.Is(err, errs.ErrOriginNotFound):
        return "origin_not_found"
    case errors.Is(err, errs.ErrConcurrentWrite):
        return "conflict"
    case errors.Is(err, errs.ErrNotFound):
        return "not_found"
    default:
        return "error"
    }
}

// reverseTransfer removes a transfer with both of its legs.
func reverseTransfer(ctx context.Context, tx storage.Tx, userID uuid.UUID, mv ledger.BankMovement) (ledger.Transfer, error) {
    tr, err := tx.GetTransfer(ctx, userID, mv.Origin.ParentID)
    if errors.Is(err, errs.ErrNotFound) { return ledger.Transfer{}, errs.OriginNotFound("transfer", mv.Origin.ParentID) }
    if err != nil { return ledger.Transfer{}, err }
    if err := tx.DeleteMovement(ctx, userID, mv.ID); err != nil { return ledger.Transfer{}, err }
    err = tx.DeleteMovement(ctx, userID, mv.Origin.RecordID)
    if err != nil && !errors.Is(err, errs.ErrNotFound) { return ledger.Transfer{}, err }
    if err := tx.DeleteTransfer(ctx, userID, tr.ID); err != nil { return ledger.Transfer{}, err }
    return tr, nil
}
