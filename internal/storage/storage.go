// Package storage declares the store capabilities shared by the memory and
// Postgres backends: atomic multi-record transactions and batched writes.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/cashflow/internal/ledger"
)

// Tx is the read-modify-write surface available inside an atomic transaction.
// Reads return errs.ErrNotFound for missing records. Nothing written through a
// Tx is visible outside it until the transaction commits.
type Tx interface {
	GetBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	GetMovement(ctx context.Context, userID, id uuid.UUID) (ledger.BankMovement, error)
	GetTitle(ctx context.Context, userID, id uuid.UUID) (ledger.Title, error)
	GetSettlement(ctx context.Context, userID, titleID, id uuid.UUID) (ledger.Settlement, error)

	InsertMovement(ctx context.Context, m ledger.BankMovement) error
	DeleteMovement(ctx context.Context, userID, id uuid.UUID) error
	InsertSettlement(ctx context.Context, s ledger.Settlement) error
	UpdateSettlement(ctx context.Context, s ledger.Settlement) error
	UpdateTitle(ctx context.Context, t ledger.Title) error
	GetTransfer(ctx context.Context, userID, id uuid.UUID) (ledger.Transfer, error)
	InsertTransfer(ctx context.Context, tr ledger.Transfer) error
	DeleteTransfer(ctx context.Context, userID, id uuid.UUID) error
}

// TxFunc is the body of an atomic transaction. Returning an error rolls back.
type TxFunc func(ctx context.Context, tx Tx) error

// Transactor runs fn atomically. Serialization conflicts surface as errs.ErrConcurrentWrite.
type Transactor interface {
	RunTx(ctx context.Context, fn TxFunc) error
}

// SettlementRef addresses a settlement inside its title's history.
type SettlementRef struct {
	TitleID      uuid.UUID `json:"parent_id"`
	SettlementID uuid.UUID `json:"id"`
}

// Reconciliation is the value written by a reconcile toggle.
type Reconciliation struct {
	Reconciled bool
	At         *time.Time
	By         string
}

// MovementListener receives the full matching movement list after every change.
type MovementListener func(movements []ledger.BankMovement)
