package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
	"github.com/mealmasters/api/internal/notify"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	commits   int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// recordingNotifier keeps every event it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.OrderEvent
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, e notify.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// --- Test helpers ---

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	return numericToDecimal(n).Equal(mustDecimal(expected))
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func customer(id uuid.UUID) Actor { return Actor{Role: enum.UserRoleCustomer, ID: id} }
func vendor(id uuid.UUID) Actor   { return Actor{Role: enum.UserRoleVendor, ID: id} }
func admin() Actor                { return Actor{Role: enum.UserRoleAdmin, ID: uuid.New()} }

// orderFixture is a store with one vendor, one customer and one tiffin.
type orderFixture struct {
	store      *memStore
	notifier   *recordingNotifier
	svc        *OrderService
	vendorID   uuid.UUID
	customerID uuid.UUID
	tiffin     database.Tiffin
}

// newOrderFixture builds an OrderService whose clock reads 2026-01-05 10:00
// in Asia/Kolkata.
func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	store := newMemStore()
	f := &orderFixture{
		store:      store,
		notifier:   &recordingNotifier{},
		vendorID:   store.addUser("Annapurna Kitchen"),
		customerID: store.addUser("Ravi"),
	}
	f.tiffin = store.addTiffin(f.vendorID, "80")
	f.svc = NewOrderService(store, f.notifier, loc)
	f.svc.now = func() time.Time { return time.Date(2026, 1, 5, 10, 0, 0, 0, loc) }
	return f
}

func assertErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error: got %v, want %v", err, target)
	}
}
