package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/payment"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

// CreatePaymentInput 创建支付入参
type CreatePaymentInput struct {
	OrderID  int64
	Method   payment.Method
	Amount   decimal.Decimal
	Currency string
}

// PaymentResult 创建支付的返回，网关支付附带 ClientSecret 供客户端完成支付
type PaymentResult struct {
	Payment      *payment.Payment
	ClientSecret string
}

// PaymentService 支付编排：一单一付、网关结算、确认与退款
type PaymentService struct {
	payRepo   payment.Repository
	orderRepo order.Repository
	gateway   payment.Gateway
	cfg       *config.PaymentConfig
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	payRepo payment.Repository,
	orderRepo order.Repository,
	gateway payment.Gateway,
	cfg *config.PaymentConfig,
) *PaymentService {
	return &PaymentService{
		payRepo:   payRepo,
		orderRepo: orderRepo,
		gateway:   gateway,
		cfg:       cfg,
	}
}

// CreatePayment 为订单创建支付。
// 同一订单最多一条未删除支付记录，唯一约束由存储层兜底。
func (s *PaymentService) CreatePayment(ctx context.Context, userID int64, in *CreatePaymentInput) (*PaymentResult, error) {
	if !in.Method.Valid() {
		return nil, errs.Newf(errs.KindUnsupported, "不支持的支付方式: %d", in.Method)
	}
	if !in.Amount.IsPositive() {
		return nil, errs.New(errs.KindValidation, "支付金额必须大于 0")
	}

	o, err := s.orderRepo.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != userID {
		return nil, errs.New(errs.KindUnauthorized, "只能为自己的订单发起支付")
	}

	currency := in.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	now := time.Now().UTC()
	p := &payment.Payment{
		OrderID:       in.OrderID,
		PaymentMethod: in.Method,
		Amount:        in.Amount,
		Currency:      currency,
	}

	var clientSecret string
	if in.Method == payment.MethodCash {
		// 现金支付本地完结，无网关往返
		p.TransactionID = transactionID(payment.MethodCash, now)
		p.Status = payment.StatusPending
	} else {
		intent, err := s.createIntent(ctx, in.Amount, currency, in.OrderID)
		if err != nil {
			return nil, err
		}
		p.TransactionID = transactionID(in.Method, now)
		p.Status = payment.StatusProcessing
		p.PaymentIntentID = intent.IntentID
		clientSecret = intent.ClientSecret
	}

	if err := s.payRepo.CreateActive(ctx, p); err != nil {
		return nil, err
	}

	GetMonitor().RecordPaymentCreated()
	return &PaymentResult{Payment: p, ClientSecret: clientSecret}, nil
}

// ConfirmPayment 确认支付。网关支付先向网关核实；
// 成功后把 Pending 订单推进到 Preparing（支付完成即进入备餐）。
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	p, err := s.payRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case payment.StatusPending, payment.StatusProcessing:
		// 可确认
	case payment.StatusCompleted:
		return nil, errs.New(errs.KindConflict, "支付已确认，请勿重复操作")
	default:
		return nil, errs.Newf(errs.KindInvalidTransition, "支付当前状态（%s）不可确认", p.Status)
	}

	if p.PaymentMethod.GatewayBacked() && p.PaymentIntentID != "" {
		ok, err := s.confirmIntent(ctx, p.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.KindGateway, "支付网关确认失败")
		}
	}

	now := time.Now().UTC()
	p.Status = payment.StatusCompleted
	p.CompletedAt = &now
	if err := s.payRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	GetMonitor().RecordPaymentCompleted()

	s.nudgeOrderAfterPayment(ctx, p.OrderID)
	return p, nil
}

// RefundPayment 退款，仅允许从 Completed 发起
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID int64, reason string) error {
	p, err := s.payRepo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.Status != payment.StatusCompleted {
		return errs.Newf(errs.KindInvalidTransition, "仅已完成的支付可退款，当前状态: %s", p.Status)
	}

	if p.PaymentMethod.GatewayBacked() && p.PaymentIntentID != "" {
		ok, err := s.refundIntent(ctx, p.PaymentIntentID, p.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.KindGateway, "支付网关退款失败")
		}
	}

	p.Status = payment.StatusRefunded
	if err := s.payRepo.Update(ctx, p); err != nil {
		return err
	}
	GetMonitor().RecordPaymentRefunded()
	zap.L().Info("payment refunded",
		zap.Int64("payment_id", p.ID),
		zap.String("transaction_id", p.TransactionID),
		zap.String("reason", reason))
	return nil
}

// GetPayment 按 ID 查询支付记录
func (s *PaymentService) GetPayment(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	return s.payRepo.GetByID(ctx, paymentID)
}

// GetOrderPayment 查询自己订单上的有效支付记录，没有时返回 nil。
// 网关超时后客户端用它确认支付的真实结果。
func (s *PaymentService) GetOrderPayment(ctx context.Context, userID, orderID int64) (*payment.Payment, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != userID {
		return nil, errs.New(errs.KindNotFound, "订单不存在")
	}
	return s.payRepo.GetActiveByOrder(ctx, orderID)
}

// GetUserPayments 用户支付记录，倒序分页
func (s *PaymentService) GetUserPayments(ctx context.Context, userID int64, page, pageSize int) ([]*payment.Payment, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.payRepo.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
}

// nudgeOrderAfterPayment 支付完成后把 Pending 订单推进到 Preparing。
// 系统动作直接落状态，不走角色流转表；订单已过 Pending 则不动。
func (s *PaymentService) nudgeOrderAfterPayment(ctx context.Context, orderID int64) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		zap.L().Warn("load order after payment failed", zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	if o.Status != order.StatusPending {
		return
	}
	o.Status = order.StatusPreparing
	if err := s.orderRepo.Update(ctx, o); err != nil {
		zap.L().Warn("advance order after payment failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

// ---- 网关调用，统一带超时；超时按“结果不确定”返回，不自动重试 ----

func (s *PaymentService) createIntent(ctx context.Context, amount decimal.Decimal, currency string, orderID int64) (*payment.Intent, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout())
	defer cancel()
	intent, err := s.gateway.CreateIntent(gctx, amount, currency, orderID)
	if err != nil {
		return nil, s.gatewayError("创建支付意向", err)
	}
	return intent, nil
}

func (s *PaymentService) confirmIntent(ctx context.Context, intentID string) (bool, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout())
	defer cancel()
	ok, err := s.gateway.ConfirmIntent(gctx, intentID)
	if err != nil {
		return false, s.gatewayError("确认支付", err)
	}
	return ok, nil
}

func (s *PaymentService) refundIntent(ctx context.Context, intentID string, amount decimal.Decimal) (bool, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout())
	defer cancel()
	ok, err := s.gateway.Refund(gctx, intentID, amount)
	if err != nil {
		return false, s.gatewayError("退款", err)
	}
	return ok, nil
}

// gatewayError 网关错误分类：超时是“结果不确定”，重试可能重复扣款
func (s *PaymentService) gatewayError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		GetMonitor().RecordGatewayTimeout()
		return errs.Wrap(errs.KindGatewayTimeout,
			fmt.Sprintf("%s超时，结果不确定，请稍后查询支付状态", op), err)
	}
	GetMonitor().RecordGatewayError()
	return errs.Wrap(errs.KindGateway, fmt.Sprintf("%s失败", op), err)
}

// transactionID 交易号：方式 + UTC 时间戳 + 6 位随机十六进制
func transactionID(m payment.Method, now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("%s-%s-%s",
		strings.ToUpper(m.String()),
		now.Format("20060102150405"),
		strings.ToUpper(hex.EncodeToString(u[:3])))
}
