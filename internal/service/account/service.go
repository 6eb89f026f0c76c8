// Package account implements the bank account rules (required name, opening
// balance immutable after creation) and transfers between owned accounts.
package account

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/tinoosan/cashflow/internal/errs"
    "github.com/tinoosan/cashflow/internal/ledger"
    "github.com/tinoosan/cashflow/internal/money"
    "github.com/tinoosan/cashflow/internal/storage"
)

type Repo interface {
    ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error)
    GetBankAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.BankAccount, error)
}

type Writer interface {
    CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
    RenameBankAccount(ctx context.Context, userID, accountID uuid.UUID, name string) (ledger.BankAccount, error)
    storage.Transactor
}

// TransferInput is the transfer-entry form.
type TransferInput struct {
    UserID      uuid.UUID
    FromAccount uuid.UUID
    ToAccount   uuid.UUID
    Date        time.Time
    Amount      money.Cents
    Description string
}

// TransferResult holds the transfer and the two movements written with it.
type TransferResult struct {
    Transfer ledger.Transfer
    Outflow  ledger.BankMovement
    Inflow   ledger.BankMovement
}

type Service interface {
    ValidateCreate(a ledger.BankAccount) error
    Create(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
    CreateBatch(ctx context.Context, userID uuid.UUID, specs []ledger.BankAccount) ([]ledger.BankAccount, []ItemError, error)
    List(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error)
    Update(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
    CreateTransfer(ctx context.Context, in TransferInput) (TransferResult, error)
}

type service struct {
    repo   Repo
    writer Writer
    now    func() time.Time
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer, now: time.Now} }

// ItemError represents a per-item failure in a batch operation.
type ItemError struct {
    Index int
    Code  string
    Err   error
}

func (s *service) ValidateCreate(a ledger.BankAccount) error {
    if a.UserID == uuid.Nil { return errs.ErrInvalid }
    if strings.TrimSpace(a.Name) == "" { return errs.Invalid("name", "name is required") }
    return nil
}

func (s *service) Create(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
    a.Name = strings.TrimSpace(a.Name)
    if err := s.ValidateCreate(a); err != nil { return ledger.BankAccount{}, err }
    existing, err := s.repo.ListBankAccounts(ctx, a.UserID)
    if err != nil { return ledger.BankAccount{}, err }
    for _, other := range existing {
        if strings.EqualFold(other.Name, a.Name) { return ledger.BankAccount{}, ErrNameExists }
    }
    return s.writer.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: a.UserID, Name: a.Name, OpeningBalance: a.OpeningBalance})
}

// CreateBatch validates all specs and only then creates them. If any item fails
// validation or conflicts, nothing is created and per-item errors are returned.
func (s *service) CreateBatch(ctx context.Context, userID uuid.UUID, specs []ledger.BankAccount) ([]ledger.BankAccount, []ItemError, error) {
    if userID == uuid.Nil { return nil, nil, errs.ErrInvalid }
    errsList := make([]ItemError, 0)
    normalized := make([]ledger.BankAccount, len(specs))
    for i, in := range specs {
        in.UserID = userID
        in.Name = strings.TrimSpace(in.Name)
        normalized[i] = in
        if err := s.ValidateCreate(in); err != nil {
            errsList = append(errsList, ItemError{Index: i, Code: "validation_error", Err: err})
        }
    }
    if len(errsList) > 0 { return nil, errsList, nil }
    existing, err := s.repo.ListBankAccounts(ctx, userID)
    if err != nil { return nil, nil, err }
    seen := make(map[string]int)
    for i, a := range normalized {
        key := strings.ToLower(a.Name)
        if prev, ok := seen[key]; ok {
            errsList = append(errsList, ItemError{Index: i, Code: "conflict", Err: ErrNameExists})
            errsList = append(errsList, ItemError{Index: prev, Code: "conflict", Err: ErrNameExists})
            continue
        }
        seen[key] = i
        for _, other := range existing {
            if strings.EqualFold(other.Name, a.Name) {
                errsList = append(errsList, ItemError{Index: i, Code: "conflict", Err: ErrNameExists})
                break
            }
        }
    }
    if len(errsList) > 0 { return nil, errsList, nil }
    created := make([]ledger.BankAccount, 0, len(normalized))
    for _, a := range normalized {
        acc, err := s.writer.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: userID, Name: a.Name, OpeningBalance: a.OpeningBalance})
        if err != nil { return nil, nil, err }
        created = append(created, acc)
    }
    return created, nil, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
    if userID == uuid.Nil { return nil, errs.ErrInvalid }
    return s.repo.ListBankAccounts(ctx, userID)
}

// ErrNameExists indicates the user already has an account with this name.
var ErrNameExists = fmt.Errorf("bank account name already exists: %w", errs.ErrConflict)

// Update renames an account. The opening balance cannot change once set.
func (s *service) Update(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
    if a.UserID == uuid.Nil || a.ID == uuid.Nil { return ledger.BankAccount{}, errs.ErrInvalid }
    current, err := s.repo.GetBankAccount(ctx, a.UserID, a.ID)
    if err != nil { return ledger.BankAccount{}, err }
    if current.OpeningBalance != a.OpeningBalance { return ledger.BankAccount{}, errs.ErrImmutable }
    a.Name = strings.TrimSpace(a.Name)
    if a.Name == "" { return ledger.BankAccount{}, errs.Invalid("name", "name is required") }
    if a.Name == current.Name { return current, nil }
    existing, err := s.repo.ListBankAccounts(ctx, a.UserID)
    if err != nil { return ledger.BankAccount{}, err }
    for _, other := range existing {
        if other.ID != a.ID && strings.EqualFold(other.Name, a.Name) { return ledger.BankAccount{}, ErrNameExists }
    }
    return s.writer.RenameBankAccount(ctx, a.UserID, a.ID, a.Name)
}

func validateTransfer(in TransferInput) error {
    switch {
    case in.UserID == uuid.Nil:
        return errs.ErrInvalid
    case in.FromAccount == uuid.Nil:
        return errs.Invalid("from_account", "source account is required")
    case in.ToAccount == uuid.Nil:
        return errs.Invalid("to_account", "destination account is required")
    case in.FromAccount == in.ToAccount:
        return errs.Invalid("to_account", "source and destination accounts must be different")
    case in.Amount <= 0:
        return errs.Invalid("amount", "must be greater than zero")
    case in.Date.IsZero():
        return errs.Invalid("date", "required")
    }
    return nil
}

// CreateTransfer writes the transfer and its outflow/inflow movements atomically.
func (s *service) CreateTransfer(ctx context.Context, in TransferInput) (TransferResult, error) {
    if err := validateTransfer(in); err != nil { return TransferResult{}, err }
    var out TransferResult
    err := s.writer.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        from, err := tx.GetBankAccount(ctx, in.UserID, in.FromAccount)
        if err != nil { return errs.Invalid("from_account", "unknown account") }
        to, err := tx.GetBankAccount(ctx, in.UserID, in.ToAccount)
        if err != nil { return errs.Invalid("to_account", "unknown account") }

        now := s.now().UTC()
        desc := strings.TrimSpace(in.Description)
        if desc == "" { desc = fmt.Sprintf("Transfer from %s to %s", from.Name, to.Name) }
        tr := ledger.Transfer{
            ID: uuid.New(), UserID: in.UserID, Date: ledger.Day(in.Date), Amount: in.Amount,
            FromAccount: from.ID, ToAccount: to.ID, Description: desc, CreatedAt: now,
        }
        outID, inID := uuid.New(), uuid.New()
        outMv := ledger.BankMovement{
            ID: outID, UserID: in.UserID, AccountID: from.ID, Date: tr.Date,
            Amount: -in.Amount, Description: desc, CreatedAt: now,
            Origin: &ledger.Origin{Type: ledger.OriginTransfer, ParentID: tr.ID, RecordID: inID},
        }
        inMv := ledger.BankMovement{
            ID: inID, UserID: in.UserID, AccountID: to.ID, Date: tr.Date,
            Amount: in.Amount, Description: desc, CreatedAt: now,
            Origin: &ledger.Origin{Type: ledger.OriginTransfer, ParentID: tr.ID, RecordID: outID},
        }
        if err := tx.InsertTransfer(ctx, tr); err != nil { return err }
        if err := tx.InsertMovement(ctx, outMv); err != nil { return err }
        if err := tx.InsertMovement(ctx, inMv); err != nil { return err }
        out = TransferResult{Transfer: tr, Outflow: outMv, Inflow: inMv}
        return nil
    })
    if err != nil { return TransferResult{}, err }
    return out, nil
}
