package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
)

// memStore is an in-memory stand-in for *database.Queries. Status updates
// are compare-and-set like the SQL they replace, and the one active
// assignment per order rule raises the same unique violation.
type memStore struct {
	mu          sync.Mutex
	clock       time.Time
	users       map[uuid.UUID]string
	tiffins     map[uuid.UUID]database.Tiffin
	plans       map[uuid.UUID]database.SubscriptionPlan
	orders      map[uuid.UUID]database.Order
	partners    map[uuid.UUID]database.DeliveryPartner
	assignments []database.DeliveryAssignment

	// afterOrderRead runs after GetOrderDetail has read its row, outside the lock.
	afterOrderRead func()
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		users:    map[uuid.UUID]string{},
		tiffins:  map[uuid.UUID]database.Tiffin{},
		plans:    map[uuid.UUID]database.SubscriptionPlan{},
		orders:   map[uuid.UUID]database.Order{},
		partners: map[uuid.UUID]database.DeliveryPartner{},
	}
}

// tick returns a strictly increasing timestamp. Caller holds mu.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = name
	return id
}

func (m *memStore) addTiffin(vendorID uuid.UUID, cost string) database.Tiffin {
	t, _ := m.CreateTiffin(context.Background(), database.CreateTiffinParams{
		VendorID: vendorID,
		Title:    "Thali",
		Type:     enum.TiffinTypeVeg,
		Cost:     decimalToNumeric(mustDecimal(cost)),
	})
	return t
}

func (m *memStore) addPlan(tiffinID uuid.UUID, planType string, days, meals int32, price string) database.SubscriptionPlan {
	p, _ := m.CreatePlan(context.Background(), database.CreatePlanParams{
		TiffinID:     tiffinID,
		PlanType:     planType,
		DurationDays: days,
		MealsPerDay:  meals,
		Price:        decimalToNumeric(mustDecimal(price)),
	})
	return p
}

func (m *memStore) addOrder(customerID uuid.UUID, tiffin database.Tiffin, status string) database.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	o := database.Order{
		ID:           uuid.New(),
		CustomerID:   customerID,
		TiffinID:     tiffin.ID,
		DurationDays: 1,
		MealsPerDay:  1,
		Status:       status,
		StartDate:    dateToPg(start),
		EndDate:      dateToPg(start),
		Price:        tiffin.Cost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.orders[o.ID] = o
	return o
}

func (m *memStore) addPartner(name string) database.DeliveryPartner {
	p, _ := m.CreateDeliveryPartner(context.Background(), database.CreateDeliveryPartnerParams{Name: name, Phone: "9000000000"})
	return p
}

func (m *memStore) orderStatus(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

// --- Catalog ---

func (m *memStore) CreateTiffin(ctx context.Context, arg database.CreateTiffinParams) (database.Tiffin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	t := database.Tiffin{
		ID:          uuid.New(),
		VendorID:    arg.VendorID,
		Title:       arg.Title,
		Type:        arg.Type,
		Description: arg.Description,
		Cost:        arg.Cost,
		ImageRef:    arg.ImageRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tiffins[t.ID] = t
	return t, nil
}

func (m *memStore) GetTiffin(ctx context.Context, id uuid.UUID) (database.Tiffin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tiffins[id]
	if !ok || t.DeletedAt.Valid {
		return database.Tiffin{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) UpdateTiffin(ctx context.Context, arg database.UpdateTiffinParams) (database.Tiffin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tiffins[arg.ID]
	if !ok || t.DeletedAt.Valid {
		return database.Tiffin{}, pgx.ErrNoRows
	}
	t.Title, t.Type, t.Description, t.Cost, t.ImageRef = arg.Title, arg.Type, arg.Description, arg.Cost, arg.ImageRef
	t.UpdatedAt = m.tick()
	m.tiffins[t.ID] = t
	return t, nil
}

func (m *memStore) SoftDeleteTiffin(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tiffins[id]
	if !ok || t.DeletedAt.Valid {
		return uuid.Nil, pgx.ErrNoRows
	}
	t.DeletedAt = pgtype.Timestamptz{Time: m.tick(), Valid: true}
	m.tiffins[id] = t
	return id, nil
}

func (m *memStore) ListTiffins(ctx context.Context, tiffinType pgtype.Text) ([]database.Tiffin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Tiffin
	for _, t := range m.tiffins {
		if t.DeletedAt.Valid || (tiffinType.Valid && t.Type != tiffinType.String) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b database.Tiffin) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *memStore) ListTiffinsByVendor(ctx context.Context, vendorID uuid.UUID) ([]database.Tiffin, error) {
	all, _ := m.ListTiffins(ctx, pgtype.Text{})
	var out []database.Tiffin
	for _, t := range all {
		if t.VendorID == vendorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) CreatePlan(ctx context.Context, arg database.CreatePlanParams) (database.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	p := database.SubscriptionPlan{
		ID:           uuid.New(),
		TiffinID:     arg.TiffinID,
		PlanType:     arg.PlanType,
		DurationDays: arg.DurationDays,
		MealsPerDay:  arg.MealsPerDay,
		Price:        arg.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.plans[p.ID] = p
	return p, nil
}

func (m *memStore) GetPlan(ctx context.Context, id uuid.UUID) (database.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.DeletedAt.Valid {
		return database.SubscriptionPlan{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) UpdatePlan(ctx context.Context, arg database.UpdatePlanParams) (database.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[arg.ID]
	if !ok || p.DeletedAt.Valid {
		return database.SubscriptionPlan{}, pgx.ErrNoRows
	}
	p.PlanType, p.DurationDays, p.MealsPerDay, p.Price = arg.PlanType, arg.DurationDays, arg.MealsPerDay, arg.Price
	p.UpdatedAt = m.tick()
	m.plans[p.ID] = p
	return p, nil
}

func (m *memStore) SoftDeletePlan(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.DeletedAt.Valid {
		return uuid.Nil, pgx.ErrNoRows
	}
	p.DeletedAt = pgtype.Timestamptz{Time: m.tick(), Valid: true}
	m.plans[id] = p
	return id, nil
}

func (m *memStore) ListPlansByTiffin(ctx context.Context, tiffinID uuid.UUID) ([]database.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.SubscriptionPlan
	for _, p := range m.plans {
		if p.TiffinID == tiffinID && !p.DeletedAt.Valid {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b database.SubscriptionPlan) int { return int(a.DurationDays - b.DurationDays) })
	return out, nil
}

// --- Orders ---

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	o := database.Order{
		ID:           uuid.New(),
		CustomerID:   arg.CustomerID,
		TiffinID:     arg.TiffinID,
		PlanID:       arg.PlanID,
		PlanType:     arg.PlanType,
		DurationDays: arg.DurationDays,
		MealsPerDay:  arg.MealsPerDay,
		Status:       enum.OrderStatusPending,
		StartDate:    arg.StartDate,
		EndDate:      arg.EndDate,
		Price:        arg.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.orders[o.ID] = o
	return o, nil
}

// detail joins an order with its tiffin and user names. Caller holds mu.
// Soft-deleted tiffins still join.
func (m *memStore) detail(o database.Order) database.OrderDetailRow {
	t := m.tiffins[o.TiffinID]
	return database.OrderDetailRow{
		Order:        o,
		TiffinTitle:  t.Title,
		VendorID:     t.VendorID,
		VendorName:   m.users[t.VendorID],
		CustomerName: m.users[o.CustomerID],
	}
}

func (m *memStore) GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetailRow, error) {
	m.mu.Lock()
	o, ok := m.orders[id]
	var row database.OrderDetailRow
	if ok {
		row = m.detail(o)
	}
	hook := m.afterOrderRead
	m.mu.Unlock()
	if !ok {
		return database.OrderDetailRow{}, pgx.ErrNoRows
	}
	if hook != nil {
		hook()
	}
	return row, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.ExpectedStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.UpdatedAt = m.tick()
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) LockOrderStatus(ctx context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return o.Status, nil
}

func (m *memStore) listOrders(keep func(database.OrderDetailRow) bool) []database.OrderDetailRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.OrderDetailRow
	for _, o := range m.orders {
		row := m.detail(o)
		if keep(row) {
			out = append(out, row)
		}
	}
	slices.SortFunc(out, func(a, b database.OrderDetailRow) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (m *memStore) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.OrderDetailRow, error) {
	return m.listOrders(func(r database.OrderDetailRow) bool { return r.CustomerID == customerID }), nil
}

func (m *memStore) ListSubscriptionsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.OrderDetailRow, error) {
	return m.listOrders(func(r database.OrderDetailRow) bool {
		return r.CustomerID == customerID && r.PlanID.Valid && r.DurationDays > 1
	}), nil
}

func (m *memStore) ListOrdersByVendor(ctx context.Context, arg database.ListOrdersByVendorParams) ([]database.OrderDetailRow, error) {
	return m.listOrders(func(r database.OrderDetailRow) bool {
		return r.VendorID == arg.VendorID && (!arg.Status.Valid || r.Status == arg.Status.String)
	}), nil
}

func (m *memStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.OrderDetailRow, error) {
	rows := m.listOrders(func(r database.OrderDetailRow) bool {
		return !arg.Status.Valid || r.Status == arg.Status.String
	})
	start := min(int(arg.Offset), len(rows))
	end := min(start+int(arg.Limit), len(rows))
	return rows[start:end], nil
}

func (m *memStore) GetDashboardCounts(ctx context.Context) (database.GetDashboardCountsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var row database.GetDashboardCountsRow
	for _, t := range m.tiffins {
		if !t.DeletedAt.Valid {
			row.TotalTiffins++
		}
	}
	for _, o := range m.orders {
		row.AllOrders++
		switch o.Status {
		case enum.OrderStatusPending:
			row.PendingOrders++
		case enum.OrderStatusApproved:
			row.ApprovedOrders++
		case enum.OrderStatusDelivered:
			row.DeliveredOrders++
		case enum.OrderStatusCancelled:
			row.CancelledOrders++
		}
	}
	row.TotalUsers = int64(len(m.users))
	return row, nil
}

// --- Delivery ---

func (m *memStore) CreateDeliveryPartner(ctx context.Context, arg database.CreateDeliveryPartnerParams) (database.DeliveryPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := database.DeliveryPartner{ID: uuid.New(), Name: arg.Name, Phone: arg.Phone, CreatedAt: m.tick()}
	m.partners[p.ID] = p
	return p, nil
}

func (m *memStore) GetDeliveryPartner(ctx context.Context, id uuid.UUID) (database.DeliveryPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partners[id]
	if !ok {
		return database.DeliveryPartner{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListDeliveryPartners(ctx context.Context) ([]database.DeliveryPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.DeliveryPartner
	for _, p := range m.partners {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b database.DeliveryPartner) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *memStore) GetActiveAssignment(ctx context.Context, orderID uuid.UUID) (database.GetActiveAssignmentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.OrderID == orderID && !a.SupersededAt.Valid {
			p := m.partners[a.DeliveryPartnerID]
			return database.GetActiveAssignmentRow{
				ID:                a.ID,
				OrderID:           a.OrderID,
				DeliveryPartnerID: a.DeliveryPartnerID,
				AssignedBy:        a.AssignedBy,
				AssignedAt:        a.AssignedAt,
				PartnerName:       p.Name,
				PartnerPhone:      p.Phone,
			}, nil
		}
	}
	return database.GetActiveAssignmentRow{}, pgx.ErrNoRows
}

func (m *memStore) SupersedeActiveAssignment(ctx context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	for i, a := range m.assignments {
		if a.OrderID == orderID && !a.SupersededAt.Valid {
			m.assignments[i].SupersededAt = pgtype.Timestamptz{Time: now, Valid: true}
		}
	}
	return nil
}

func (m *memStore) CreateAssignment(ctx context.Context, arg database.CreateAssignmentParams) (database.DeliveryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.OrderID == arg.OrderID && !a.SupersededAt.Valid {
			return database.DeliveryAssignment{}, &pgconn.PgError{Code: "23505", ConstraintName: activeAssignmentIndex}
		}
	}
	a := database.DeliveryAssignment{
		ID:                uuid.New(),
		OrderID:           arg.OrderID,
		DeliveryPartnerID: arg.DeliveryPartnerID,
		AssignedBy:        arg.AssignedBy,
		AssignedAt:        m.tick(),
	}
	m.assignments = append(m.assignments, a)
	return a, nil
}

func (m *memStore) ListAssignmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.DeliveryAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.DeliveryAssignment
	for _, a := range m.assignments {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b database.DeliveryAssignment) int { return b.AssignedAt.Compare(a.AssignedAt) })
	return out, nil
}
