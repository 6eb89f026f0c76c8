package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/cashflow/internal/errs"
	"github.com/tinoosan/cashflow/internal/ledger"
	"github.com/tinoosan/cashflow/internal/meta"
	"github.com/tinoosan/cashflow/internal/storage"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

// setup applies the init migration and empties every table.
func setup(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	t.Cleanup(s.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	b, err := os.ReadFile(filepath.Join(repoRoot, "db", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `truncate table scenarios, notifications, bank_movements, transfers, settlements, titles, chart_accounts, bank_accounts, users cascade`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestStore_BankAccounts(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	user := uuid.New()

	a, err := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Checking", OpeningBalance: 12345})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Checking"}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("duplicate name: want ErrConflict, got %v", err)
	}
	renamed, err := s.RenameBankAccount(ctx, user, a.ID, "Main")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Main" || renamed.OpeningBalance != 12345 {
		t.Fatalf("unexpected account after rename: %+v", renamed)
	}
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0] != user {
		t.Fatalf("list users: %v %v", users, err)
	}
	if _, err := s.GetBankAccount(ctx, uuid.New(), a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("other user's account: want ErrNotFound, got %v", err)
	}
}

func TestStore_SettleInTxAndReconcile(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	user := uuid.New()
	acc, err := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Checking"})
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	title, err := s.CreateTitle(ctx, ledger.Title{ID: uuid.New(), UserID: user, Kind: ledger.TitleExpense, Description: "Rent", DueDate: ledger.Date(2024, time.March, 5), Original: 5000})
	if err != nil {
		t.Fatalf("title: %v", err)
	}
	if title.Status != ledger.StatusPending {
		t.Fatalf("default status: %s", title.Status)
	}

	st := ledger.Settlement{ID: uuid.New(), TitleID: title.ID, UserID: user, Kind: ledger.SettlementPayment, Date: ledger.Date(2024, time.March, 5), Principal: 5000, AccountID: acc.ID}
	mv := ledger.BankMovement{ID: uuid.New(), UserID: user, AccountID: acc.ID, Date: st.Date, Amount: -5000, Description: "Rent",
		Origin: &ledger.Origin{Type: ledger.OriginPaymentExpense, ParentID: title.ID, RecordID: st.ID}}
	err = s.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		cur, err := tx.GetTitle(ctx, user, title.ID)
		if err != nil {
			return err
		}
		if err := tx.InsertSettlement(ctx, st); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, mv); err != nil {
			return err
		}
		cur.ApplySettlement(st)
		return tx.UpdateTitle(ctx, cur)
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}

	got, err := s.GetTitle(ctx, user, title.ID)
	if err != nil || got.Status != ledger.StatusSettled || got.Remaining == nil || *got.Remaining != 0 {
		t.Fatalf("title after settle: %+v %v", got, err)
	}
	m, err := s.GetMovement(ctx, user, mv.ID)
	if err != nil || m.Origin == nil || m.Origin.RecordID != st.ID {
		t.Fatalf("movement origin: %+v %v", m, err)
	}
	pays, err := s.ListSettlements(ctx, user, ledger.TitleExpense)
	if err != nil || len(pays) != 1 {
		t.Fatalf("list settlements: %v %v", pays, err)
	}
	if recv, _ := s.ListSettlements(ctx, user, ledger.TitleRevenue); len(recv) != 0 {
		t.Fatalf("receipts should be empty, got %d", len(recv))
	}

	n, err := s.SetSettlementsReconciled(ctx, user, []storage.SettlementRef{{TitleID: title.ID, SettlementID: st.ID}, {TitleID: title.ID, SettlementID: uuid.New()}}, true)
	if n != 1 || !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("reconcile settlements: n=%d err=%v", n, err)
	}
	at := time.Now().UTC()
	if n, err := s.SetMovementsReconciled(ctx, user, []uuid.UUID{mv.ID}, storage.Reconciliation{Reconciled: true, At: &at, By: "ana"}); n != 1 || err != nil {
		t.Fatalf("reconcile movements: n=%d err=%v", n, err)
	}
}

func TestStore_RunTxRollsBack(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	user := uuid.New()
	acc, _ := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Checking"})
	boom := errors.New("boom")
	mv := ledger.BankMovement{ID: uuid.New(), UserID: user, AccountID: acc.ID, Date: ledger.Date(2024, time.March, 1), Amount: 100}
	err := s.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertMovement(ctx, mv); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := s.GetMovement(ctx, user, mv.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("movement should not exist: %v", err)
	}
}

func TestStore_TransferTx(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	user := uuid.New()
	from, _ := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Checking"})
	to, _ := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Savings"})
	tr := ledger.Transfer{ID: uuid.New(), UserID: user, Date: ledger.Date(2024, time.March, 1), Amount: 700, FromAccount: from.ID, ToAccount: to.ID}
	err := s.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertTransfer(ctx, tr); err != nil {
			return err
		}
		got, err := tx.GetTransfer(ctx, user, tr.ID)
		if err != nil {
			return err
		}
		if got.Amount != 700 || got.ToAccount != to.ID {
			t.Errorf("unexpected transfer inside tx: %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	err = s.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteTransfer(ctx, user, tr.ID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	trs, err := s.ListTransfers(ctx, user)
	if err != nil || len(trs) != 0 {
		t.Fatalf("transfers after delete: %+v %v", trs, err)
	}
	err = s.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteTransfer(ctx, user, tr.ID)
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestStore_NotificationsAndScenarios(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	user := uuid.New()
	related := uuid.New()
	n := ledger.Notification{ID: ledger.NotificationID(related, ledger.NotifyOverduePayable), UserID: user, RelatedID: related, Type: ledger.NotifyOverduePayable, Message: "late",
		Metadata: meta.Presentation("alert", "text-red", "high")}
	bad := n
	bad.ID = "bad"
	bad.Metadata = meta.Metadata{strings.Repeat("k", meta.MaxKeyLen+1): "v"}
	if _, err := s.CreateNotificationIfAbsent(ctx, bad); err == nil {
		t.Fatalf("oversized metadata must be rejected")
	}
	for i, want := range []bool{true, false} {
		created, err := s.CreateNotificationIfAbsent(ctx, n)
		if err != nil || created != want {
			t.Fatalf("insert %d: created=%v err=%v", i, created, err)
		}
	}
	n.Pinned = true
	if err := s.UpdateNotifications(ctx, user, []ledger.Notification{n}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetNotification(ctx, user, n.ID)
	if err != nil || !got.Pinned {
		t.Fatalf("get: %+v %v", got, err)
	}
	if v, _ := got.Metadata.Get(meta.KeySeverity); v != "high" {
		t.Fatalf("metadata did not round-trip: %+v", got.Metadata)
	}

	sc := ledger.Scenario{ID: uuid.New(), UserID: user, Name: "Hire", Items: []ledger.ScenarioItem{{ID: uuid.New(), Kind: ledger.TitleExpense, Description: "Salary", Date: ledger.Date(2024, time.June, 1), Amount: 300000}}}
	if _, err := s.SaveScenario(ctx, sc); err != nil {
		t.Fatalf("save scenario: %v", err)
	}
	loaded, err := s.GetScenario(ctx, user, sc.ID)
	if err != nil || len(loaded.Items) != 1 || loaded.Items[0].Amount != 300000 {
		t.Fatalf("load scenario: %+v %v", loaded, err)
	}
	if err := s.DeleteScenario(ctx, user, sc.ID); err != nil {
		t.Fatalf("delete scenario: %v", err)
	}
}

func TestStore_SubscribeMovements(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	user := uuid.New()
	acc, _ := s.CreateBankAccount(ctx, ledger.BankAccount{ID: uuid.New(), UserID: user, Name: "Checking"})

	got := make(chan int, 4)
	cancel, err := s.SubscribeMovements(ctx, user, acc.ID, func(ms []ledger.BankMovement) { got <- len(ms) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if n := <-got; n != 0 {
		t.Fatalf("initial snapshot: %d", n)
	}
	err = s.RunTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertMovement(ctx, ledger.BankMovement{ID: uuid.New(), UserID: user, AccountID: acc.ID, Date: ledger.Date(2024, time.March, 1), Amount: 100})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	select {
	case n := <-got:
		if n != 1 {
			t.Fatalf("after insert: %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery after insert")
	}
}
