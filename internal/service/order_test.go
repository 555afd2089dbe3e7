package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealmasters/api/internal/enum"
	"golang.org/x/sync/errgroup"
)

// --- PlaceOrder ---

func TestPlaceOrder_SingleDay(t *testing.T) {
	f := newOrderFixture(t)

	got, err := f.svc.PlaceOrder(context.Background(), customer(f.customerID), PlaceOrderRequest{
		TiffinID:  f.tiffin.ID,
		StartDate: "2026-01-23",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got.Status != enum.OrderStatusPending {
		t.Errorf("status: got %s, want PENDING", got.Status)
	}
	if got.StartDate.Time.Format(DateLayout) != "2026-01-23" || got.EndDate.Time.Format(DateLayout) != "2026-01-23" {
		t.Errorf("range: got %s..%s, want 2026-01-23..2026-01-23",
			got.StartDate.Time.Format(DateLayout), got.EndDate.Time.Format(DateLayout))
	}
	if !numericEquals(got.Price, "80") {
		t.Errorf("price: got %s, want 80", numericToDecimal(got.Price))
	}
	if got.PlanID.Valid {
		t.Error("plan_id: want null for single-day order")
	}
	if got.CustomerName != "Ravi" || got.VendorName != "Annapurna Kitchen" {
		t.Errorf("names: got %q/%q", got.CustomerName, got.VendorName)
	}
	if types := f.notifier.types(); len(types) != 1 || types[0] != enum.EventOrderCreated {
		t.Errorf("events: got %v, want [%s]", types, enum.EventOrderCreated)
	}
}

func TestPlaceOrder_SnapshotsPlan(t *testing.T) {
	f := newOrderFixture(t)
	plan := f.store.addPlan(f.tiffin.ID, enum.PlanTypeWeekly, 7, 2, "700")
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, customer(f.customerID), PlaceOrderRequest{
		TiffinID:  f.tiffin.ID,
		PlanID:    &plan.ID,
		StartDate: "2026-01-10",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	catalog := NewCatalogService(f.store)
	if _, err := catalog.UpdatePlan(ctx, vendor(f.vendorID), plan.ID, PlanInput{
		PlanType: enum.PlanTypeMonthly, DurationDays: 30, MealsPerDay: 3, Price: "2500",
	}); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if err := catalog.DeletePlan(ctx, vendor(f.vendorID), plan.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}

	got, err := f.svc.GetOrder(ctx, customer(f.customerID), order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !numericEquals(got.Price, "700") {
		t.Errorf("price: got %s, want 700", numericToDecimal(got.Price))
	}
	if got.EndDate.Time.Format(DateLayout) != "2026-01-16" {
		t.Errorf("end_date: got %s, want 2026-01-16", got.EndDate.Time.Format(DateLayout))
	}
	if got.DurationDays != 7 || got.MealsPerDay != 2 || got.PlanType.String != enum.PlanTypeWeekly {
		t.Errorf("snapshot: got %d days, %d meals, %s", got.DurationDays, got.MealsPerDay, got.PlanType.String)
	}
}

func TestPlaceOrder_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	otherTiffin := f.store.addTiffin(f.vendorID, "120")
	foreignPlan := f.store.addPlan(otherTiffin.ID, enum.PlanTypeWeekly, 7, 1, "700")
	missing := uuid.New()

	deleted := f.store.addTiffin(f.vendorID, "60")
	if _, err := f.store.SoftDeleteTiffin(context.Background(), deleted.ID); err != nil {
		t.Fatalf("SoftDeleteTiffin: %v", err)
	}

	tests := []struct {
		name  string
		actor Actor
		req   PlaceOrderRequest
		want  error
	}{
		{"vendor", vendor(f.vendorID), PlaceOrderRequest{TiffinID: f.tiffin.ID, StartDate: "2026-01-10"}, ErrForbidden},
		{"unknown role", Actor{Role: "GUEST", ID: uuid.New()}, PlaceOrderRequest{TiffinID: f.tiffin.ID, StartDate: "2026-01-10"}, ErrForbidden},
		{"no tiffin", customer(f.customerID), PlaceOrderRequest{StartDate: "2026-01-10"}, ErrValidation},
		{"no start date", customer(f.customerID), PlaceOrderRequest{TiffinID: f.tiffin.ID}, ErrValidation},
		{"bad date", customer(f.customerID), PlaceOrderRequest{TiffinID: f.tiffin.ID, StartDate: "2026-02-30"}, ErrInvalidInput},
		{"past date", customer(f.customerID), PlaceOrderRequest{TiffinID: f.tiffin.ID, StartDate: "2026-01-04"}, ErrInvalidInput},
		{"unknown tiffin", customer(f.customerID), PlaceOrderRequest{TiffinID: missing, StartDate: "2026-01-10"}, ErrNotFound},
		{"deleted tiffin", customer(f.customerID), PlaceOrderRequest{TiffinID: deleted.ID, StartDate: "2026-01-10"}, ErrNotFound},
		{"unknown plan", customer(f.customerID), PlaceOrderRequest{TiffinID: f.tiffin.ID, PlanID: &missing, StartDate: "2026-01-10"}, ErrNotFound},
		{"plan of other tiffin", customer(f.customerID), PlaceOrderRequest{TiffinID: f.tiffin.ID, PlanID: &foreignPlan.ID, StartDate: "2026-01-10"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(context.Background(), tt.actor, tt.req)
			assertErrIs(t, err, tt.want)
		})
	}
	if n := len(f.store.orders); n != 0 {
		t.Errorf("orders persisted: got %d, want 0", n)
	}
}

func TestPlaceOrder_TodayInBusinessTimezone(t *testing.T) {
	f := newOrderFixture(t)
	// 00:30 on Jan 5 in Kolkata is still Jan 4 in UTC.
	f.svc.now = func() time.Time { return time.Date(2026, 1, 4, 19, 0, 0, 0, time.UTC) }

	if _, err := f.svc.PlaceOrder(context.Background(), customer(f.customerID), PlaceOrderRequest{
		TiffinID: f.tiffin.ID, StartDate: "2026-01-04",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("yesterday in Kolkata: got %v, want ErrInvalidInput", err)
	}
	if _, err := f.svc.PlaceOrder(context.Background(), customer(f.customerID), PlaceOrderRequest{
		TiffinID: f.tiffin.ID, StartDate: "2026-01-05",
	}); err != nil {
		t.Fatalf("today in Kolkata: %v", err)
	}
}

func TestPlaceOrder_NotifierFailureDoesNotFail(t *testing.T) {
	f := newOrderFixture(t)
	f.notifier.err = errors.New("broker down")

	if _, err := f.svc.PlaceOrder(context.Background(), customer(f.customerID), PlaceOrderRequest{
		TiffinID: f.tiffin.ID, StartDate: "2026-01-10",
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if n := len(f.store.orders); n != 1 {
		t.Errorf("orders: got %d, want 1", n)
	}
}

// --- Transitions ---

// legalEdges lists the roles allowed on each edge when the actor is related
// to the order (own customer, owning vendor).
var legalEdges = map[[2]string][]string{
	{enum.OrderStatusPending, enum.OrderStatusApproved}: {enum.UserRoleVendor, enum.UserRoleAdmin},
	{enum.OrderStatusPending, enum.OrderStatusCancelled}: {enum.UserRoleCustomer, enum.UserRoleVendor, enum.UserRoleAdmin},
	{enum.OrderStatusApproved, enum.OrderStatusDelivered}: {enum.UserRoleVendor, enum.UserRoleAdmin},
	{enum.OrderStatusApproved, enum.OrderStatusCancelled}: {enum.UserRoleVendor, enum.UserRoleAdmin},
}

func expectedTransitionErr(role, from, to string) error {
	for _, r := range legalEdges[[2]string{from, to}] {
		if r == role {
			return nil
		}
	}
	if role == enum.UserRoleCustomer && (to == enum.OrderStatusApproved || to == enum.OrderStatusDelivered) {
		return ErrForbidden
	}
	return ErrInvalidTransition
}

func TestTransition_AllEdges(t *testing.T) {
	statuses := []string{enum.OrderStatusPending, enum.OrderStatusApproved, enum.OrderStatusDelivered, enum.OrderStatusCancelled}
	roles := []string{enum.UserRoleCustomer, enum.UserRoleVendor, enum.UserRoleAdmin}

	for _, role := range roles {
		for _, from := range statuses {
			for _, to := range statuses {
				t.Run(fmt.Sprintf("%s_%s_to_%s", role, from, to), func(t *testing.T) {
					f := newOrderFixture(t)
					order := f.store.addOrder(f.customerID, f.tiffin, from)

					var actor Actor
					switch role {
					case enum.UserRoleCustomer:
						actor = customer(f.customerID)
					case enum.UserRoleVendor:
						actor = vendor(f.vendorID)
					default:
						actor = admin()
					}

					got, err := f.svc.Transition(context.Background(), actor, order.ID, to)
					want := expectedTransitionErr(role, from, to)
					if want == nil {
						if err != nil {
							t.Fatalf("Transition: %v", err)
						}
						if got.Status != to || f.store.orderStatus(order.ID) != to {
							t.Fatalf("status: got %s (stored %s), want %s", got.Status, f.store.orderStatus(order.ID), to)
						}
						return
					}
					assertErrIs(t, err, want)
					if s := f.store.orderStatus(order.ID); s != from {
						t.Fatalf("status changed on failure: got %s, want %s", s, from)
					}
					if len(f.notifier.events) != 0 {
						t.Fatalf("events on failure: %v", f.notifier.types())
					}
				})
			}
		}
	}
}

func TestTransition_NonOwningVendorForbidden(t *testing.T) {
	f := newOrderFixture(t)
	order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)
	otherVendor := vendor(f.store.addUser("Other Kitchen"))

	_, err := f.svc.Approve(context.Background(), otherVendor, order.ID)
	assertErrIs(t, err, ErrForbidden)
	if s := f.store.orderStatus(order.ID); s != enum.OrderStatusPending {
		t.Errorf("status: got %s, want PENDING", s)
	}
}

func TestTransition_OtherCustomerForbidden(t *testing.T) {
	f := newOrderFixture(t)
	order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)

	_, err := f.svc.Cancel(context.Background(), customer(f.store.addUser("Meera")), order.ID)
	assertErrIs(t, err, ErrForbidden)
}

func TestTransition_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, Actor{}, order.ID, enum.OrderStatusCancelled)
	assertErrIs(t, err, ErrForbidden)

	_, err = f.svc.Transition(ctx, vendor(f.vendorID), order.ID, "SHIPPED")
	assertErrIs(t, err, ErrValidation)

	_, err = f.svc.Transition(ctx, vendor(f.vendorID), uuid.New(), enum.OrderStatusApproved)
	assertErrIs(t, err, ErrNotFound)

	got, err := f.svc.Transition(ctx, vendor(f.vendorID), order.ID, "approved")
	if err != nil {
		t.Fatalf("lowercase status: %v", err)
	}
	if got.Status != enum.OrderStatusApproved {
		t.Errorf("status: got %s, want APPROVED", got.Status)
	}
}

func TestTransition_StaleRead(t *testing.T) {
	f := newOrderFixture(t)
	order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)

	// Another writer cancels between our read and our write.
	f.store.afterOrderRead = func() {
		f.store.afterOrderRead = nil
		f.store.mu.Lock()
		o := f.store.orders[order.ID]
		o.Status = enum.OrderStatusCancelled
		f.store.orders[order.ID] = o
		f.store.mu.Unlock()
	}

	_, err := f.svc.Approve(context.Background(), vendor(f.vendorID), order.ID)
	assertErrIs(t, err, ErrStaleState)
	if s := f.store.orderStatus(order.ID); s != enum.OrderStatusCancelled {
		t.Errorf("status: got %s, want CANCELLED", s)
	}
}

func TestTransition_ConcurrentCancelAndApprove(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newOrderFixture(t)
		order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)

		// Both callers read PENDING before either writes.
		var reads sync.WaitGroup
		reads.Add(2)
		f.store.afterOrderRead = func() {
			reads.Done()
			reads.Wait()
		}

		var cancelErr, approveErr error
		var g errgroup.Group
		g.Go(func() error {
			_, cancelErr = f.svc.Cancel(context.Background(), customer(f.customerID), order.ID)
			return nil
		})
		g.Go(func() error {
			_, approveErr = f.svc.Approve(context.Background(), vendor(f.vendorID), order.ID)
			return nil
		})
		_ = g.Wait()

		final := f.store.orderStatus(order.ID)
		switch {
		case cancelErr == nil && approveErr != nil:
			assertErrIs(t, approveErr, ErrStaleState)
			if final != enum.OrderStatusCancelled {
				t.Fatalf("run %d: status %s, want CANCELLED", i, final)
			}
		case approveErr == nil && cancelErr != nil:
			assertErrIs(t, cancelErr, ErrStaleState)
			if final != enum.OrderStatusApproved {
				t.Fatalf("run %d: status %s, want APPROVED", i, final)
			}
		default:
			t.Fatalf("run %d: want exactly one winner, got cancel=%v approve=%v", i, cancelErr, approveErr)
		}
		if n := len(f.notifier.events); n != 1 {
			t.Fatalf("run %d: events: got %d, want 1", i, n)
		}
	}
}

func TestTransition_PublishesPreviousStatus(t *testing.T) {
	f := newOrderFixture(t)
	order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusApproved)

	if _, err := f.svc.MarkDelivered(context.Background(), vendor(f.vendorID), order.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if len(f.notifier.events) != 1 {
		t.Fatalf("events: got %d, want 1", len(f.notifier.events))
	}
	e := f.notifier.events[0]
	if e.Type != enum.EventOrderStatusChanged || e.Status != enum.OrderStatusDelivered || e.PreviousStatus != enum.OrderStatusApproved {
		t.Errorf("event: got %+v", e)
	}
	if e.CustomerID != f.customerID || e.VendorID != f.vendorID {
		t.Errorf("event recipients: got %s/%s", e.CustomerID, e.VendorID)
	}
}

// --- Reads ---

func TestGetOrder_Access(t *testing.T) {
	f := newOrderFixture(t)
	order := f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)
	ctx := context.Background()

	for _, a := range []Actor{customer(f.customerID), vendor(f.vendorID), admin()} {
		if _, err := f.svc.GetOrder(ctx, a, order.ID); err != nil {
			t.Errorf("%s: %v", a.Role, err)
		}
	}
	for _, a := range []Actor{customer(uuid.New()), vendor(uuid.New()), {Role: enum.UserRoleAdmin}} {
		_, err := f.svc.GetOrder(ctx, a, order.ID)
		assertErrIs(t, err, ErrForbidden)
	}
}

func TestVendorOrders_FilterByStatus(t *testing.T) {
	f := newOrderFixture(t)
	f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusPending)
	f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusApproved)
	f.store.addOrder(f.customerID, f.tiffin, enum.OrderStatusApproved)
	other := f.store.addTiffin(f.store.addUser("Other Kitchen"), "90")
	f.store.addOrder(f.customerID, other, enum.OrderStatusApproved)
	ctx := context.Background()

	all, err := f.svc.VendorOrders(ctx, vendor(f.vendorID), "")
	if err != nil {
		t.Fatalf("VendorOrders: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all: got %d, want 3", len(all))
	}

	approved, err := f.svc.VendorOrders(ctx, vendor(f.vendorID), "approved")
	if err != nil {
		t.Fatalf("VendorOrders: %v", err)
	}
	if len(approved) != 2 {
		t.Errorf("approved: got %d, want 2", len(approved))
	}

	_, err = f.svc.VendorOrders(ctx, vendor(f.vendorID), "LOST")
	assertErrIs(t, err, ErrValidation)
	_, err = f.svc.VendorOrders(ctx, customer(f.customerID), "")
	assertErrIs(t, err, ErrForbidden)
}

func TestCustomerSubscriptions_Progress(t *testing.T) {
	f := newOrderFixture(t)
	plan := f.store.addPlan(f.tiffin.ID, enum.PlanTypeWeekly, 7, 1, "700")
	ctx := context.Background()

	// Clock says 2026-01-05; start three days later.
	if _, err := f.svc.PlaceOrder(ctx, customer(f.customerID), PlaceOrderRequest{
		TiffinID: f.tiffin.ID, PlanID: &plan.ID, StartDate: "2026-01-08",
	}); err != nil {
		t.Fatalf("PlaceOrder plan: %v", err)
	}
	if _, err := f.svc.PlaceOrder(ctx, customer(f.customerID), PlaceOrderRequest{
		TiffinID: f.tiffin.ID, StartDate: "2026-01-08",
	}); err != nil {
		t.Fatalf("PlaceOrder single: %v", err)
	}

	subs, err := f.svc.CustomerSubscriptions(ctx, customer(f.customerID))
	if err != nil {
		t.Fatalf("CustomerSubscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions: got %d, want 1", len(subs))
	}
	if p := subs[0].Progress; p.Phase != enum.SubscriptionPhaseUpcoming || p.TotalDays != 7 || p.RemainingDays != 7 {
		t.Errorf("progress: got %+v", p)
	}

	f.svc.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	subs, err = f.svc.CustomerSubscriptions(ctx, customer(f.customerID))
	if err != nil {
		t.Fatalf("CustomerSubscriptions: %v", err)
	}
	if p := subs[0].Progress; p.Phase != enum.SubscriptionPhaseActive || p.ElapsedDays != 3 || p.RemainingDays != 4 {
		t.Errorf("progress: got %+v", p)
	}

	history, err := f.svc.CustomerOrderHistory(ctx, customer(f.customerID))
	if err != nil {
		t.Fatalf("CustomerOrderHistory: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history: got %d, want 2", len(history))
	}
}

func TestSchedule(t *testing.T) {
	f := newOrderFixture(t)
	plan := f.store.addPlan(f.tiffin.ID, enum.PlanTypeWeekly, 7, 2, "700")
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, customer(f.customerID), PlaceOrderRequest{
		TiffinID: f.tiffin.ID, PlanID: &plan.ID, StartDate: "2026-01-05",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	_, days, progress, err := f.svc.Schedule(ctx, vendor(f.vendorID), order.ID)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("days: got %d, want 7", len(days))
	}
	if last := days[6]; last.Date.Format(DateLayout) != "2026-01-11" || last.DayNumber != 7 || last.MealsPerDay != 2 {
		t.Errorf("last day: got %+v", last)
	}
	if progress.Phase != enum.SubscriptionPhaseActive || progress.ElapsedDays != 1 {
		t.Errorf("progress: got %+v", progress)
	}

	_, _, _, err = f.svc.Schedule(ctx, customer(uuid.New()), order.ID)
	assertErrIs(t, err, ErrForbidden)
}

func TestAdminReads(t *testing.T) {
	f := newOrderFixture(t)
	for _, s := range []string{enum.OrderStatusPending, enum.OrderStatusPending, enum.OrderStatusApproved, enum.OrderStatusDelivered, enum.OrderStatusCancelled} {
		f.store.addOrder(f.customerID, f.tiffin, s)
	}
	ctx := context.Background()

	counts, err := f.svc.Dashboard(ctx, admin())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if counts.AllOrders != 5 || counts.PendingOrders != 2 || counts.ApprovedOrders != 1 ||
		counts.DeliveredOrders != 1 || counts.CancelledOrders != 1 || counts.TotalTiffins != 1 || counts.TotalUsers != 2 {
		t.Errorf("counts: got %+v", counts)
	}

	pending, err := f.svc.OrdersByStatus(ctx, admin(), enum.OrderStatusPending, 50, 0)
	if err != nil {
		t.Fatalf("OrdersByStatus: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending: got %d, want 2", len(pending))
	}

	page, err := f.svc.AllOrders(ctx, admin(), 2, 4)
	if err != nil {
		t.Fatalf("AllOrders: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("page: got %d, want 1", len(page))
	}

	_, err = f.svc.Dashboard(ctx, vendor(f.vendorID))
	assertErrIs(t, err, ErrForbidden)
	_, err = f.svc.AllOrders(ctx, customer(f.customerID), 10, 0)
	assertErrIs(t, err, ErrForbidden)
}
