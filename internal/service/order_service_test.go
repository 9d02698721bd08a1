package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/ordernum"
)

// fakeMenuRepo 内存菜单仓储
type fakeMenuRepo struct {
	items map[int64]*menuitem.MenuItem
}

func newFakeMenuRepo(items ...*menuitem.MenuItem) *fakeMenuRepo {
	r := &fakeMenuRepo{items: make(map[int64]*menuitem.MenuItem)}
	for _, m := range items {
		r.items[m.ID] = m
	}
	return r
}

func (r *fakeMenuRepo) GetByID(ctx context.Context, id int64) (*menuitem.MenuItem, error) {
	m, ok := r.items[id]
	if !ok || m.IsDeleted {
		return nil, errs.New(errs.KindNotFound, "菜品不存在")
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMenuRepo) ListAvailable(ctx context.Context) ([]*menuitem.MenuItem, error) {
	return nil, nil
}
func (r *fakeMenuRepo) ListAll(ctx context.Context) ([]*menuitem.MenuItem, error) { return nil, nil }
func (r *fakeMenuRepo) Create(ctx context.Context, m *menuitem.MenuItem) error    { return nil }
func (r *fakeMenuRepo) Update(ctx context.Context, m *menuitem.MenuItem) error    { return nil }
func (r *fakeMenuRepo) SoftDelete(ctx context.Context, id int64) error            { return nil }
func (r *fakeMenuRepo) ResetDailyCounts(ctx context.Context) error                { return nil }

// fakeTableRepo 内存桌台仓储，记录 SetAvailable 调用
type fakeTableRepo struct {
	tables   map[int64]*table.Table
	released []int64
}

func newFakeTableRepo(tables ...*table.Table) *fakeTableRepo {
	r := &fakeTableRepo{tables: make(map[int64]*table.Table)}
	for _, t := range tables {
		r.tables[t.ID] = t
	}
	return r
}

func (r *fakeTableRepo) GetByID(ctx context.Context, id int64) (*table.Table, error) {
	t, ok := r.tables[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "桌台不存在")
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTableRepo) ListAll(ctx context.Context) ([]*table.Table, error) { return nil, nil }
func (r *fakeTableRepo) Create(ctx context.Context, t *table.Table) error    { return nil }
func (r *fakeTableRepo) Update(ctx context.Context, t *table.Table) error    { return nil }
func (r *fakeTableRepo) Delete(ctx context.Context, id int64) error          { return nil }

func (r *fakeTableRepo) SetAvailable(ctx context.Context, id int64, available bool) error {
	if available {
		r.released = append(r.released, id)
	}
	if t, ok := r.tables[id]; ok {
		t.IsAvailable = available
	}
	return nil
}

func menuFixture() *fakeMenuRepo {
	return newFakeMenuRepo(
		&menuitem.MenuItem{ID: 1, Name: "Koshari", Price: decimal.RequireFromString("45.00"), IsAvailable: true},
		&menuitem.MenuItem{ID: 2, Name: "Mango Juice", Price: decimal.RequireFromString("25.00"), IsAvailable: true},
		&menuitem.MenuItem{ID: 3, Name: "Sold Out", Price: decimal.RequireFromString("10.00"), IsAvailable: false},
	)
}

func newTestOrderService(orderRepo *fakeOrderRepo, menuRepo *fakeMenuRepo, tableRepo *fakeTableRepo) *OrderService {
	gen := ordernum.NewGenerator(ordernum.NewMemorySequencer())
	return NewOrderService(orderRepo, menuRepo, tableRepo, gen, nil)
}

func TestCreateOrderTakeaway(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	svc := newTestOrderService(orderRepo, menuFixture(), newFakeTableRepo())

	o, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: 10,
		OrderType:  order.TypeTakeaway,
		Items: []CreateOrderItemInput{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 2, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if o.Status != order.StatusPending {
		t.Errorf("status = %v, want Pending", o.Status)
	}
	if matched, _ := regexp.MatchString(`^ORD-\d{8}-\d{4}$`, o.OrderNumber); !matched {
		t.Errorf("order number %q does not match ORD-yyyyMMdd-NNNN", o.OrderNumber)
	}
	// 2*45 + 1*25 = 115，价格来自菜单快照
	if !o.Subtotal.Equal(decimal.RequireFromString("115.00")) {
		t.Errorf("subtotal = %s, want 115.00", o.Subtotal)
	}
	if o.Total.LessThanOrEqual(o.Subtotal.Sub(o.DiscountAmount)) {
		t.Errorf("total %s should include tax on top of %s", o.Total, o.Subtotal)
	}
}

func TestCreateOrderRejections(t *testing.T) {
	tableID := int64(7)
	tests := []struct {
		name     string
		in       *CreateOrderInput
		wantKind errs.Kind
	}{
		{
			name:     "空订单",
			in:       &CreateOrderInput{CustomerID: 10, OrderType: order.TypeTakeaway},
			wantKind: errs.KindValidation,
		},
		{
			name: "非法订单类型",
			in: &CreateOrderInput{CustomerID: 10, OrderType: order.Type(9),
				Items: []CreateOrderItemInput{{MenuItemID: 1, Quantity: 1}}},
			wantKind: errs.KindValidation,
		},
		{
			name: "数量越界",
			in: &CreateOrderInput{CustomerID: 10, OrderType: order.TypeTakeaway,
				Items: []CreateOrderItemInput{{MenuItemID: 1, Quantity: 101}}},
			wantKind: errs.KindValidation,
		},
		{
			name: "菜品不存在",
			in: &CreateOrderInput{CustomerID: 10, OrderType: order.TypeTakeaway,
				Items: []CreateOrderItemInput{{MenuItemID: 404, Quantity: 1}}},
			wantKind: errs.KindValidation,
		},
		{
			name: "菜品已下架",
			in: &CreateOrderInput{CustomerID: 10, OrderType: order.TypeTakeaway,
				Items: []CreateOrderItemInput{{MenuItemID: 3, Quantity: 1}}},
			wantKind: errs.KindValidation,
		},
		{
			name: "外送缺地址",
			in: &CreateOrderInput{CustomerID: 10, OrderType: order.TypeDelivery,
				Items: []CreateOrderItemInput{{MenuItemID: 1, Quantity: 1}}},
			wantKind: errs.KindValidation,
		},
		{
			name: "桌台被占用",
			in: &CreateOrderInput{CustomerID: 10, OrderType: order.TypeDineIn, TableID: &tableID,
				Items: []CreateOrderItemInput{{MenuItemID: 1, Quantity: 1}}},
			wantKind: errs.KindConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tableRepo := newFakeTableRepo(&table.Table{ID: 7, TableNumber: "T7", IsAvailable: false})
			svc := newTestOrderService(newFakeOrderRepo(), menuFixture(), tableRepo)
			_, err := svc.CreateOrder(context.Background(), tt.in)
			if errs.KindOf(err) != tt.wantKind {
				t.Errorf("CreateOrder() kind = %v, want %v (err = %v)", errs.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	tableID := int64(7)
	orderRepo := newFakeOrderRepo(
		&order.Order{ID: 1, CustomerID: 10, Status: order.StatusPending,
			OrderType: order.TypeDineIn, TableID: &tableID},
		&order.Order{ID: 2, CustomerID: 10, Status: order.StatusReady},
	)
	tableRepo := newFakeTableRepo(&table.Table{ID: 7, TableNumber: "T7", IsAvailable: false})
	svc := newTestOrderService(orderRepo, menuFixture(), tableRepo)

	// 不能取消他人订单，也不暴露其存在
	if err := svc.CancelOrder(context.Background(), 1, 99, ""); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("cancel foreign order = %v, want NotFound", err)
	}

	// Ready 之后不可取消
	if err := svc.CancelOrder(context.Background(), 2, 10, ""); !errs.Is(err, errs.KindInvalidTransition) {
		t.Errorf("cancel ready order = %v, want InvalidTransition", err)
	}

	if err := svc.CancelOrder(context.Background(), 1, 10, "改主意了"); err != nil {
		t.Fatalf("CancelOrder() error = %v", err)
	}
	o, _ := orderRepo.GetByID(context.Background(), 1)
	if o.Status != order.StatusCancelled {
		t.Errorf("status = %v, want Cancelled", o.Status)
	}
	if len(tableRepo.released) != 1 || tableRepo.released[0] != 7 {
		t.Errorf("table 7 not released, released = %v", tableRepo.released)
	}
}

func TestUpdateOrderStatusByRole(t *testing.T) {
	tableID := int64(7)
	newRepo := func(status order.Status) *fakeOrderRepo {
		return newFakeOrderRepo(&order.Order{ID: 1, CustomerID: 10, Status: status,
			OrderType: order.TypeDineIn, TableID: &tableID})
	}

	// 后厨可以推进到 Preparing/Ready
	orderRepo := newRepo(order.StatusPending)
	svc := newTestOrderService(orderRepo, menuFixture(), newFakeTableRepo(&table.Table{ID: 7}))
	if err := svc.UpdateOrderStatus(context.Background(), 1, user.RoleStaff, order.StatusPreparing); err != nil {
		t.Fatalf("staff to Preparing: %v", err)
	}

	// 后厨不能标记送达
	orderRepo = newRepo(order.StatusReady)
	svc = newTestOrderService(orderRepo, menuFixture(), newFakeTableRepo(&table.Table{ID: 7}))
	if err := svc.UpdateOrderStatus(context.Background(), 1, user.RoleStaff, order.StatusDelivered); !errs.Is(err, errs.KindForbidden) {
		t.Errorf("staff to Delivered = %v, want Forbidden", err)
	}

	// 经理标记送达：盖完成时间戳并释放桌台
	orderRepo = newRepo(order.StatusReady)
	tableRepo := newFakeTableRepo(&table.Table{ID: 7, IsAvailable: false})
	svc = newTestOrderService(orderRepo, menuFixture(), tableRepo)
	if err := svc.UpdateOrderStatus(context.Background(), 1, user.RoleManager, order.StatusDelivered); err != nil {
		t.Fatalf("manager to Delivered: %v", err)
	}
	o, _ := orderRepo.GetByID(context.Background(), 1)
	if o.CompletedAt == nil {
		t.Error("CompletedAt not stamped on delivery")
	}
	if len(tableRepo.released) != 1 {
		t.Errorf("table not released after delivery, released = %v", tableRepo.released)
	}

	// 状态不能回退
	orderRepo = newRepo(order.StatusReady)
	svc = newTestOrderService(orderRepo, menuFixture(), newFakeTableRepo())
	if err := svc.UpdateOrderStatus(context.Background(), 1, user.RoleManager, order.StatusPending); !errs.Is(err, errs.KindInvalidTransition) {
		t.Errorf("backward transition = %v, want InvalidTransition", err)
	}
}

func pendingOrderWithItems(id, customerID int64) *order.Order {
	o := &order.Order{
		ID:         id,
		CustomerID: customerID,
		Status:     order.StatusPending,
		OrderType:  order.TypeTakeaway,
		Items: []order.OrderItem{
			{ID: 11, OrderID: id, MenuItemID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("45.00")},
			{ID: 12, OrderID: id, MenuItemID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("25.00")},
		},
	}
	return o
}

func TestAddOrderItem(t *testing.T) {
	orderRepo := newFakeOrderRepo(pendingOrderWithItems(1, 10))
	svc := newTestOrderService(orderRepo, menuFixture(), newFakeTableRepo())

	o, err := svc.AddOrderItem(context.Background(), 1, 10, CreateOrderItemInput{MenuItemID: 2, Quantity: 2})
	if err != nil {
		t.Fatalf("AddOrderItem() error = %v", err)
	}
	if len(o.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(o.Items))
	}
	// 115 + 2*25 = 165，金额随明细重算
	if !o.Subtotal.Equal(decimal.RequireFromString("165.00")) {
		t.Errorf("subtotal = %s, want 165.00", o.Subtotal)
	}
	want := o.Subtotal.Add(o.TaxAmount).Sub(o.DiscountAmount)
	if !o.Total.Equal(want) {
		t.Errorf("total = %s, want %s", o.Total, want)
	}

	stored, _ := orderRepo.GetByID(context.Background(), 1)
	if len(stored.Items) != 3 {
		t.Errorf("stored items = %d, want 3", len(stored.Items))
	}
}

func TestAddOrderItemRejections(t *testing.T) {
	tests := []struct {
		name     string
		status   order.Status
		customer int64
		in       CreateOrderItemInput
		wantKind errs.Kind
	}{
		{"数量越界", order.StatusPending, 10, CreateOrderItemInput{MenuItemID: 1, Quantity: 0}, errs.KindValidation},
		{"菜品不存在", order.StatusPending, 10, CreateOrderItemInput{MenuItemID: 404, Quantity: 1}, errs.KindValidation},
		{"菜品已下架", order.StatusPending, 10, CreateOrderItemInput{MenuItemID: 3, Quantity: 1}, errs.KindValidation},
		{"他人订单", order.StatusPending, 99, CreateOrderItemInput{MenuItemID: 1, Quantity: 1}, errs.KindNotFound},
		{"备餐中不可改单", order.StatusPreparing, 10, CreateOrderItemInput{MenuItemID: 1, Quantity: 1}, errs.KindInvalidTransition},
		{"已送达不可改单", order.StatusDelivered, 10, CreateOrderItemInput{MenuItemID: 1, Quantity: 1}, errs.KindInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := pendingOrderWithItems(1, 10)
			o.Status = tt.status
			svc := newTestOrderService(newFakeOrderRepo(o), menuFixture(), newFakeTableRepo())
			_, err := svc.AddOrderItem(context.Background(), 1, tt.customer, tt.in)
			if errs.KindOf(err) != tt.wantKind {
				t.Errorf("AddOrderItem() kind = %v, want %v (err = %v)", errs.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestRemoveOrderItem(t *testing.T) {
	orderRepo := newFakeOrderRepo(pendingOrderWithItems(1, 10))
	svc := newTestOrderService(orderRepo, menuFixture(), newFakeTableRepo())

	o, err := svc.RemoveOrderItem(context.Background(), 1, 10, 11)
	if err != nil {
		t.Fatalf("RemoveOrderItem() error = %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].ID != 12 {
		t.Fatalf("items after remove = %+v, want only item 12", o.Items)
	}
	// 只剩 1*25
	if !o.Subtotal.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("subtotal = %s, want 25.00", o.Subtotal)
	}

	// 明细不存在
	if _, err := svc.RemoveOrderItem(context.Background(), 1, 10, 999); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("remove unknown item = %v, want NotFound", err)
	}

	// 最后一个菜品不可撤，应取消订单
	if _, err := svc.RemoveOrderItem(context.Background(), 1, 10, 12); !errs.Is(err, errs.KindValidation) {
		t.Errorf("remove last item = %v, want Validation", err)
	}
}

func TestRemoveOrderItemNonPending(t *testing.T) {
	o := pendingOrderWithItems(1, 10)
	o.Status = order.StatusReady
	svc := newTestOrderService(newFakeOrderRepo(o), menuFixture(), newFakeTableRepo())
	if _, err := svc.RemoveOrderItem(context.Background(), 1, 10, 11); !errs.Is(err, errs.KindInvalidTransition) {
		t.Errorf("remove from ready order = %v, want InvalidTransition", err)
	}
}

func TestGetCurrentActiveOrder(t *testing.T) {
	orderRepoWith := func(statuses ...order.Status) *fakeOrderRepo {
		r := newFakeOrderRepo()
		for i, s := range statuses {
			r.orders[int64(i+1)] = &order.Order{ID: int64(i + 1), CustomerID: 10, Status: s}
		}
		return r
	}

	svc := newTestOrderService(orderRepoWith(order.StatusDelivered, order.StatusCancelled), menuFixture(), newFakeTableRepo())
	o, err := svc.GetCurrentActiveOrder(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetCurrentActiveOrder() error = %v", err)
	}
	if o != nil {
		t.Errorf("expected no active order, got %+v", o)
	}

	svc = newTestOrderService(orderRepoWith(order.StatusDelivered, order.StatusPreparing), menuFixture(), newFakeTableRepo())
	o, err = svc.GetCurrentActiveOrder(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetCurrentActiveOrder() error = %v", err)
	}
	if o == nil || o.Status != order.StatusPreparing {
		t.Errorf("active order = %+v, want the Preparing one", o)
	}
}

func TestListByDateRangeValidation(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo(), menuFixture(), newFakeTableRepo())
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.ListByDateRange(context.Background(), start, start.Add(-time.Hour)); !errs.Is(err, errs.KindValidation) {
		t.Errorf("reversed range = %v, want Validation", err)
	}
}
