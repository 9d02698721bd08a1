package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/ordernum"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/pricing"
)

const orderEventQueue = "order_events"

// OrderEvent 订单事件，投递到 MQ 供厨房大屏/通知端消费
type OrderEvent struct {
	Type        string    `json:"type"` // created / updated / status_changed / cancelled
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	CustomerID  int64     `json:"customer_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// CreateOrderItemInput 下单明细入参
type CreateOrderItemInput struct {
	MenuItemID          int64
	Quantity            int
	SpecialInstructions string
}

// CreateOrderInput 下单入参
type CreateOrderInput struct {
	CustomerID          int64
	OrderType           order.Type
	Items               []CreateOrderItemInput
	DeliveryAddress     string
	SpecialInstructions string
	TableID             *int64
}

// OrderService 订单编排：组合菜单读取、校验、定价、取号、落库、事件投递
type OrderService struct {
	orderRepo order.Repository
	menuRepo  menuitem.Repository
	tableRepo table.Repository
	gen       *ordernum.Generator
	mqConn    *amqp.Connection
}

// NewOrderService 创建订单服务，mqConn 可为 nil（此时不投递事件）
func NewOrderService(
	orderRepo order.Repository,
	menuRepo menuitem.Repository,
	tableRepo table.Repository,
	gen *ordernum.Generator,
	mqConn *amqp.Connection,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		menuRepo:  menuRepo,
		tableRepo: tableRepo,
		gen:       gen,
		mqConn:    mqConn,
	}
}

// CreateOrder 顾客下单。菜单价在此刻快照，之后改价不回溯；
// 桌台占用与菜品限售在仓储事务内复核，这里只做前置校验。
func (s *OrderService) CreateOrder(ctx context.Context, in *CreateOrderInput) (*order.Order, error) {
	if !in.OrderType.Valid() {
		return nil, errs.Newf(errs.KindValidation, "非法的订单类型: %d", in.OrderType)
	}
	if len(in.Items) == 0 {
		return nil, errs.New(errs.KindValidation, "订单至少需要一个菜品")
	}

	now := time.Now().UTC()
	o := &order.Order{
		CustomerID:          in.CustomerID,
		TableID:             in.TableID,
		OrderType:           in.OrderType,
		Status:              order.StatusPending,
		DeliveryAddress:     in.DeliveryAddress,
		SpecialInstructions: in.SpecialInstructions,
		OrderDate:           now,
	}

	for _, it := range in.Items {
		if it.Quantity <= 0 || it.Quantity > 100 {
			return nil, errs.Newf(errs.KindValidation, "菜品数量必须在 1-100 之间，实际: %d", it.Quantity)
		}
		m, err := s.menuRepo.GetByID(ctx, it.MenuItemID)
		if err != nil {
			if errs.Is(err, errs.KindNotFound) {
				return nil, errs.Newf(errs.KindValidation, "菜品 %d 不存在或已下架", it.MenuItemID)
			}
			return nil, err
		}
		if !m.CanOrder() {
			return nil, errs.Newf(errs.KindValidation, "菜品 %s 暂不可下单", m.Name)
		}
		o.Items = append(o.Items, order.OrderItem{
			MenuItemID:          it.MenuItemID,
			Quantity:            it.Quantity,
			UnitPrice:           m.Price, // 快照价
			SpecialInstructions: it.SpecialInstructions,
		})
	}

	// 堂食前置校验桌台（事务内还会锁行复核）
	if o.OrderType == order.TypeDineIn && o.TableID != nil {
		t, err := s.tableRepo.GetByID(ctx, *o.TableID)
		if err != nil {
			return nil, err
		}
		if !t.IsAvailable {
			return nil, errs.Newf(errs.KindConflict, "桌台 %s 当前不可用", t.TableNumber)
		}
	}

	if err := o.ValidateDeliveryOrder(); err != nil {
		return nil, err
	}

	pricing.Apply(o)

	num, err := s.gen.Next(ctx, now)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "生成订单号失败", err)
	}
	o.OrderNumber = num

	if err := s.orderRepo.Create(ctx, o); err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}

	GetMonitor().RecordOrderCreated()
	s.publishEvent(ctx, "created", o)
	return o, nil
}

// CancelOrder 顾客取消自己的订单，Ready 及之后不可取消
func (s *OrderService) CancelOrder(ctx context.Context, orderID, customerID int64, reason string) error {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CustomerID != customerID {
		// 不暴露他人订单的存在性
		return errs.New(errs.KindNotFound, "订单不存在")
	}
	if err := o.Cancel(); err != nil {
		return err
	}
	if err := s.orderRepo.Update(ctx, o); err != nil {
		return err
	}
	GetMonitor().RecordOrderCancelled()
	zap.L().Info("order cancelled",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("reason", reason))
	s.publishEvent(ctx, "cancelled", o)

	// 释放堂食桌台
	if o.OrderType == order.TypeDineIn && o.TableID != nil {
		s.releaseTable(ctx, *o.TableID)
	}
	return nil
}

// AddOrderItem 给自己的待处理订单加菜。仅 Pending 可改单，
// 金额按全部明细重新计算，乐观锁冲突返回 Conflict。
func (s *OrderService) AddOrderItem(ctx context.Context, orderID, customerID int64, in CreateOrderItemInput) (*order.Order, error) {
	if in.Quantity <= 0 || in.Quantity > 100 {
		return nil, errs.Newf(errs.KindValidation, "菜品数量必须在 1-100 之间，实际: %d", in.Quantity)
	}

	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, errs.New(errs.KindNotFound, "订单不存在")
	}
	if o.Status != order.StatusPending {
		return nil, errs.Newf(errs.KindInvalidTransition, "订单当前状态（%s）不可改单", o.Status)
	}

	m, err := s.menuRepo.GetByID(ctx, in.MenuItemID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.Newf(errs.KindValidation, "菜品 %d 不存在或已下架", in.MenuItemID)
		}
		return nil, err
	}
	if !m.CanOrder() {
		return nil, errs.Newf(errs.KindValidation, "菜品 %s 暂不可下单", m.Name)
	}

	o.Items = append(o.Items, order.OrderItem{
		OrderID:             o.ID,
		MenuItemID:          in.MenuItemID,
		Quantity:            in.Quantity,
		UnitPrice:           m.Price, // 快照价
		SpecialInstructions: in.SpecialInstructions,
	})
	pricing.Apply(o)

	if err := s.orderRepo.UpdateItems(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "updated", o)
	return o, nil
}

// RemoveOrderItem 从自己的待处理订单撤菜，订单至少保留一个菜品
func (s *OrderService) RemoveOrderItem(ctx context.Context, orderID, customerID, itemID int64) (*order.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, errs.New(errs.KindNotFound, "订单不存在")
	}
	if o.Status != order.StatusPending {
		return nil, errs.Newf(errs.KindInvalidTransition, "订单当前状态（%s）不可改单", o.Status)
	}

	idx := -1
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errs.New(errs.KindNotFound, "订单明细不存在")
	}
	if len(o.Items) == 1 {
		return nil, errs.New(errs.KindValidation, "订单至少需要一个菜品，如不再需要请直接取消订单")
	}

	o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
	pricing.Apply(o)

	if err := s.orderRepo.UpdateItems(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "updated", o)
	return o, nil
}

// UpdateOrderStatus 按角色推进订单状态，乐观锁冲突返回 Conflict
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, role user.Role, newStatus order.Status) error {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := o.UpdateStatus(role, newStatus, time.Now()); err != nil {
		return err
	}
	if err := s.orderRepo.Update(ctx, o); err != nil {
		return err
	}
	s.publishEvent(ctx, "status_changed", o)

	// 送达后释放堂食桌台
	if newStatus == order.StatusDelivered && o.OrderType == order.TypeDineIn && o.TableID != nil {
		s.releaseTable(ctx, *o.TableID)
	}
	return nil
}

// GetOrderForCustomer 顾客查询自己的订单
func (s *OrderService) GetOrderForCustomer(ctx context.Context, orderID, customerID int64) (*order.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, errs.New(errs.KindNotFound, "订单不存在")
	}
	return o, nil
}

// ListMyOrders 顾客订单列表，按下单时间倒序
func (s *OrderService) ListMyOrders(ctx context.Context, customerID int64) ([]*order.Order, error) {
	return s.orderRepo.ListByCustomer(ctx, customerID)
}

// GetCurrentActiveOrder 顾客当前进行中的订单，没有则返回 nil
func (s *OrderService) GetCurrentActiveOrder(ctx context.Context, customerID int64) (*order.Order, error) {
	list, err := s.orderRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, o := range list {
		switch o.Status {
		case order.StatusPending, order.StatusPreparing, order.StatusReady:
			return o, nil
		}
	}
	return nil, nil
}

// ListKitchenOrders 厨房视角的进行中订单，按下单先后正序
func (s *OrderService) ListKitchenOrders(ctx context.Context) ([]*order.Order, error) {
	return s.orderRepo.ListActive(ctx)
}

// ListByStatus 按状态筛选
func (s *OrderService) ListByStatus(ctx context.Context, status order.Status) ([]*order.Order, error) {
	if !status.Valid() {
		return nil, errs.Newf(errs.KindValidation, "非法的订单状态: %d", status)
	}
	return s.orderRepo.ListByStatus(ctx, status)
}

// ListByDateRange 按日期区间筛选
func (s *OrderService) ListByDateRange(ctx context.Context, start, end time.Time) ([]*order.Order, error) {
	if end.Before(start) {
		return nil, errs.New(errs.KindValidation, "结束时间不能早于开始时间")
	}
	return s.orderRepo.ListByDateRange(ctx, start, end)
}

// ListToday 今日订单
func (s *OrderService) ListToday(ctx context.Context) ([]*order.Order, error) {
	return s.orderRepo.ListToday(ctx)
}

// ListAll 全量订单（后台审计）
func (s *OrderService) ListAll(ctx context.Context) ([]*order.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

// GetOrder 后台按 ID 查询
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	return s.orderRepo.GetByID(ctx, orderID)
}

// GetOrderByNumber 后台按订单号查询（小票/客诉场景）
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.orderRepo.GetByNumber(ctx, orderNumber)
}

// ActiveOrderForTable 桌台上未完结的订单，没有则返回 nil
func (s *OrderService) ActiveOrderForTable(ctx context.Context, tableID int64) (*order.Order, error) {
	return s.orderRepo.ActiveOrderForTable(ctx, tableID)
}

// CountToday 当日订单量
func (s *OrderService) CountToday(ctx context.Context) (int64, error) {
	return s.orderRepo.CountToday(ctx, time.Now().UTC())
}

// DeleteOrder 管理员逻辑删除，保留审计记录
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.orderRepo.SoftDelete(ctx, orderID)
}

// Revenue 已送达订单的营收合计
func (s *OrderService) Revenue(ctx context.Context, start, end *time.Time) (decimal.Decimal, error) {
	return s.orderRepo.RevenueBetween(ctx, start, end)
}

// releaseTable 释放桌台，失败只记日志不影响主流程
func (s *OrderService) releaseTable(ctx context.Context, tableID int64) {
	if s.tableRepo == nil {
		return
	}
	if err := s.tableRepo.SetAvailable(ctx, tableID, true); err != nil {
		zap.L().Warn("release table failed", zap.Int64("table_id", tableID), zap.Error(err))
	}
}

// publishEvent 投递订单事件，MQ 不可用时降级为日志
func (s *OrderService) publishEvent(ctx context.Context, typ string, o *order.Order) {
	if s.mqConn == nil {
		return
	}
	ch, err := s.mqConn.Channel()
	if err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("open mq channel failed", zap.Error(err))
		return
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(orderEventQueue, true, false, false, false, nil); err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("declare order event queue failed", zap.Error(err))
		return
	}

	body, err := json.Marshal(&OrderEvent{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status.String(),
		CustomerID:  o.CustomerID,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		orderEventQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("publish order event failed",
			zap.String("type", typ),
			zap.Int64("order_id", o.ID),
			zap.Error(err))
	}
}
