package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/payment"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

// fakePaymentRepo 内存支付仓储，模拟 (order_id, is_deleted) 唯一约束
type fakePaymentRepo struct {
	nextID   int64
	payments map[int64]*payment.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{nextID: 1, payments: make(map[int64]*payment.Payment)}
}

func (r *fakePaymentRepo) CreateActive(ctx context.Context, p *payment.Payment) error {
	for _, existing := range r.payments {
		if existing.OrderID == p.OrderID && !existing.IsDeleted {
			return errs.New(errs.KindConflict, "该订单已存在支付记录")
		}
	}
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.IsDeleted {
		return nil, errs.New(errs.KindNotFound, "支付记录不存在")
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetActiveByOrder(ctx context.Context, orderID int64) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.OrderID == orderID && !p.IsDeleted {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return errs.New(errs.KindNotFound, "支付记录不存在")
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*payment.Payment, error) {
	return nil, nil
}

// fakeOrderRepo 内存订单仓储，只实现服务层用到的读写
type fakeOrderRepo struct {
	nextID int64
	orders map[int64]*order.Order
}

func newFakeOrderRepo(orders ...*order.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{nextID: 1000, orders: make(map[int64]*order.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	o.ID = r.nextID
	r.nextID++
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "订单不存在")
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, n string) (*order.Order, error) {
	return nil, errs.New(errs.KindNotFound, "订单不存在")
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *order.Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) UpdateItems(ctx context.Context, o *order.Order) error {
	if existing, ok := r.orders[o.ID]; ok && existing.Version != o.Version {
		return errs.New(errs.KindConflict, "订单已被其他操作修改，请刷新后重试")
	}
	o.Version++
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) SoftDelete(ctx context.Context, id int64) error { return nil }
func (r *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID int64) ([]*order.Order, error) {
	var list []*order.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			cp := *o
			list = append(list, &cp)
		}
	}
	return list, nil
}
func (r *fakeOrderRepo) ListByStatus(ctx context.Context, status order.Status) ([]*order.Order, error) {
	return nil, nil
}
func (r *fakeOrderRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]*order.Order, error) {
	return nil, nil
}
func (r *fakeOrderRepo) ListActive(ctx context.Context) ([]*order.Order, error) { return nil, nil }
func (r *fakeOrderRepo) ListToday(ctx context.Context) ([]*order.Order, error)  { return nil, nil }
func (r *fakeOrderRepo) ListAll(ctx context.Context) ([]*order.Order, error)    { return nil, nil }
func (r *fakeOrderRepo) CountToday(ctx context.Context, day time.Time) (int64, error) {
	return 0, nil
}
func (r *fakeOrderRepo) ActiveOrderForTable(ctx context.Context, tableID int64) (*order.Order, error) {
	return nil, nil
}
func (r *fakeOrderRepo) RevenueBetween(ctx context.Context, start, end *time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// fakeGateway 可编排返回值的网关
type fakeGateway struct {
	createErr  error
	confirmOK  bool
	confirmErr error
	refundOK   bool
	refundErr  error
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, orderID int64) (*payment.Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.Intent{IntentID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (g *fakeGateway) ConfirmIntent(ctx context.Context, intentID string) (bool, error) {
	return g.confirmOK, g.confirmErr
}

func (g *fakeGateway) Refund(ctx context.Context, intentID string, amount decimal.Decimal) (bool, error) {
	return g.refundOK, g.refundErr
}

func testPaymentConfig() *config.PaymentConfig {
	return &config.PaymentConfig{Currency: "EGP", GatewayTimeoutSeconds: 1}
}

func pendingOrder(id, customerID int64) *order.Order {
	return &order.Order{ID: id, CustomerID: customerID, Status: order.StatusPending}
}

func TestCreatePaymentCash(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{}, testPaymentConfig())

	res, err := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1,
		Method:  payment.MethodCash,
		Amount:  decimal.RequireFromString("50.00"),
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	if res.Payment.Status != payment.StatusPending {
		t.Errorf("status = %v, want Pending", res.Payment.Status)
	}
	if !strings.HasPrefix(res.Payment.TransactionID, "CASH-") {
		t.Errorf("transaction id = %q, want CASH- prefix", res.Payment.TransactionID)
	}
	if res.Payment.Currency != "EGP" {
		t.Errorf("currency = %q, want EGP (config default)", res.Payment.Currency)
	}
	if res.ClientSecret != "" {
		t.Errorf("cash payment should not carry a client secret, got %q", res.ClientSecret)
	}
}

func TestCreatePaymentGateway(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{}, testPaymentConfig())

	res, err := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1,
		Method:  payment.MethodStripe,
		Amount:  decimal.RequireFromString("50.00"),
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	if res.Payment.Status != payment.StatusProcessing {
		t.Errorf("status = %v, want Processing", res.Payment.Status)
	}
	if res.Payment.PaymentIntentID != "pi_test" {
		t.Errorf("intent id = %q, want pi_test", res.Payment.PaymentIntentID)
	}
	if res.ClientSecret == "" {
		t.Error("gateway payment must return a client secret")
	}
}

func TestCreatePaymentRejections(t *testing.T) {
	tests := []struct {
		name     string
		userID   int64
		in       *CreatePaymentInput
		wantKind errs.Kind
	}{
		{
			name:     "不支持的支付方式",
			userID:   10,
			in:       &CreatePaymentInput{OrderID: 1, Method: payment.Method(99), Amount: decimal.RequireFromString("10.00")},
			wantKind: errs.KindUnsupported,
		},
		{
			name:     "金额必须为正",
			userID:   10,
			in:       &CreatePaymentInput{OrderID: 1, Method: payment.MethodCash, Amount: decimal.Zero},
			wantKind: errs.KindValidation,
		},
		{
			name:     "不能为他人订单支付",
			userID:   99,
			in:       &CreatePaymentInput{OrderID: 1, Method: payment.MethodCash, Amount: decimal.RequireFromString("10.00")},
			wantKind: errs.KindUnauthorized,
		},
		{
			name:     "订单不存在",
			userID:   10,
			in:       &CreatePaymentInput{OrderID: 404, Method: payment.MethodCash, Amount: decimal.RequireFromString("10.00")},
			wantKind: errs.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPaymentService(newFakePaymentRepo(), newFakeOrderRepo(pendingOrder(1, 10)), &fakeGateway{}, testPaymentConfig())
			_, err := svc.CreatePayment(context.Background(), tt.userID, tt.in)
			if errs.KindOf(err) != tt.wantKind {
				t.Errorf("CreatePayment() kind = %v, want %v (err = %v)", errs.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestCreatePaymentDuplicateOrder(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{}, testPaymentConfig())

	in := &CreatePaymentInput{OrderID: 1, Method: payment.MethodCash, Amount: decimal.RequireFromString("10.00")}
	if _, err := svc.CreatePayment(context.Background(), 10, in); err != nil {
		t.Fatalf("first CreatePayment() error = %v", err)
	}
	_, err := svc.CreatePayment(context.Background(), 10, in)
	if !errs.Is(err, errs.KindConflict) {
		t.Errorf("second CreatePayment() = %v, want Conflict", err)
	}
}

func TestGetOrderPayment(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{}, testPaymentConfig())

	res, err := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1, Method: payment.MethodStripe, Amount: decimal.RequireFromString("10.00"),
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	// 持有人查询自己订单上的支付记录
	p, err := svc.GetOrderPayment(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("GetOrderPayment() error = %v", err)
	}
	if p == nil || p.ID != res.Payment.ID {
		t.Fatalf("GetOrderPayment() = %+v, want payment %d", p, res.Payment.ID)
	}

	// 参数含义固定为（用户, 订单），反过来传必须查不到
	if _, err := svc.GetOrderPayment(context.Background(), 1, 10); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("swapped args = %v, want NotFound", err)
	}

	// 他人订单的支付记录不可见
	if _, err := svc.GetOrderPayment(context.Background(), 99, 1); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("foreign order = %v, want NotFound", err)
	}
}

func TestConfirmPaymentAdvancesOrder(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{confirmOK: true}, testPaymentConfig())

	res, err := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1, Method: payment.MethodStripe, Amount: decimal.RequireFromString("10.00"),
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	p, err := svc.ConfirmPayment(context.Background(), res.Payment.ID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if p.Status != payment.StatusCompleted {
		t.Errorf("status = %v, want Completed", p.Status)
	}
	if p.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}

	o, _ := orderRepo.GetByID(context.Background(), 1)
	if o.Status != order.StatusPreparing {
		t.Errorf("order status after payment = %v, want Preparing", o.Status)
	}
}

func TestConfirmPaymentAlreadyCompleted(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{confirmOK: true}, testPaymentConfig())

	res, _ := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1, Method: payment.MethodCash, Amount: decimal.RequireFromString("10.00"),
	})
	if _, err := svc.ConfirmPayment(context.Background(), res.Payment.ID); err != nil {
		t.Fatalf("first ConfirmPayment() error = %v", err)
	}
	_, err := svc.ConfirmPayment(context.Background(), res.Payment.ID)
	if !errs.Is(err, errs.KindConflict) {
		t.Errorf("second ConfirmPayment() = %v, want Conflict", err)
	}
}

func TestConfirmPaymentGatewayTimeout(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	gw := &fakeGateway{confirmErr: context.DeadlineExceeded}
	svc := NewPaymentService(payRepo, orderRepo, gw, testPaymentConfig())

	res, _ := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1, Method: payment.MethodStripe, Amount: decimal.RequireFromString("10.00"),
	})
	_, err := svc.ConfirmPayment(context.Background(), res.Payment.ID)
	if !errs.Is(err, errs.KindGatewayTimeout) {
		t.Fatalf("ConfirmPayment() = %v, want GatewayTimeout", err)
	}

	// 结果不确定：不能把支付标记为失败，状态保持 Processing 等待查询
	p, _ := payRepo.GetByID(context.Background(), res.Payment.ID)
	if p.Status != payment.StatusProcessing {
		t.Errorf("status after timeout = %v, want Processing (unchanged)", p.Status)
	}
}

func TestConfirmPaymentGatewayDeclined(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{confirmOK: false}, testPaymentConfig())

	res, _ := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1, Method: payment.MethodPayPal, Amount: decimal.RequireFromString("10.00"),
	})
	_, err := svc.ConfirmPayment(context.Background(), res.Payment.ID)
	if !errs.Is(err, errs.KindGateway) {
		t.Errorf("ConfirmPayment() = %v, want Gateway", err)
	}
}

func TestRefundPayment(t *testing.T) {
	payRepo := newFakePaymentRepo()
	orderRepo := newFakeOrderRepo(pendingOrder(1, 10))
	svc := NewPaymentService(payRepo, orderRepo, &fakeGateway{confirmOK: true, refundOK: true}, testPaymentConfig())

	res, _ := svc.CreatePayment(context.Background(), 10, &CreatePaymentInput{
		OrderID: 1, Method: payment.MethodCreditCard, Amount: decimal.RequireFromString("10.00"),
	})

	// Completed 之前不可退款
	if err := svc.RefundPayment(context.Background(), res.Payment.ID, "test"); !errs.Is(err, errs.KindInvalidTransition) {
		t.Errorf("refund before completion = %v, want InvalidTransition", err)
	}

	if _, err := svc.ConfirmPayment(context.Background(), res.Payment.ID); err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if err := svc.RefundPayment(context.Background(), res.Payment.ID, "customer request"); err != nil {
		t.Fatalf("RefundPayment() error = %v", err)
	}

	p, _ := payRepo.GetByID(context.Background(), res.Payment.ID)
	if p.Status != payment.StatusRefunded {
		t.Errorf("status = %v, want Refunded", p.Status)
	}

	// 已退款不可再退
	if err := svc.RefundPayment(context.Background(), res.Payment.ID, "again"); !errs.Is(err, errs.KindInvalidTransition) {
		t.Errorf("double refund = %v, want InvalidTransition", err)
	}
}
