package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Method 支付方式
type Method int

const (
	MethodCash       Method = 1
	MethodCreditCard Method = 2
	MethodStripe     Method = 3
	MethodPayPal     Method = 4
)

// Valid 校验支付方式是否合法
func (m Method) Valid() bool {
	return m >= MethodCash && m <= MethodPayPal
}

// GatewayBacked 是否需要外部网关结算（现金之外的方式都走网关）
func (m Method) GatewayBacked() bool {
	return m == MethodCreditCard || m == MethodStripe || m == MethodPayPal
}

func (m Method) String() string {
	switch m {
	case MethodCash:
		return "Cash"
	case MethodCreditCard:
		return "CreditCard"
	case MethodStripe:
		return "Stripe"
	case MethodPayPal:
		return "PayPal"
	}
	return "Unknown"
}

// Status 支付状态
type Status int

const (
	StatusPending    Status = 1
	StatusProcessing Status = 2
	StatusCompleted  Status = 3
	StatusFailed     Status = 4
	StatusRefunded   Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusRefunded:
		return "Refunded"
	}
	return "Unknown"
}

// Payment 支付记录，同一订单最多存在一条未删除记录
type Payment struct {
	ID              int64           `gorm:"primaryKey"`
	OrderID         int64           `gorm:"index;not null"`
	TransactionID   string          `gorm:"size:64;uniqueIndex;not null"`
	PaymentMethod   Method          `gorm:"not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,6);not null"` // 与订单 Total 同精度
	Currency        string          `gorm:"size:8;not null"`
	Status          Status          `gorm:"index;not null"`
	PaymentIntentID string          `gorm:"size:64"` // 网关支付的关联 ID
	CompletedAt     *time.Time
	IsDeleted       bool `gorm:"index;not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository 支付仓储接口
type Repository interface {
	// CreateActive 创建支付记录；同订单已有未删除记录时返回 Conflict。
	// 实现必须依赖存储层唯一约束（而非先查后插）关闭并发窗口。
	CreateActive(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	GetActiveByOrder(ctx context.Context, orderID int64) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	// ListByUser 指定用户的支付记录，按创建时间倒序分页
	ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*Payment, error)
}
