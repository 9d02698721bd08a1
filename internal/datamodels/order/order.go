package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Type 订单类型
type Type int

const (
	TypeDineIn   Type = 1 // 堂食
	TypeTakeaway Type = 2 // 自取
	TypeDelivery Type = 3 // 外送
)

// Valid 校验订单类型是否合法
func (t Type) Valid() bool {
	return t >= TypeDineIn && t <= TypeDelivery
}

func (t Type) String() string {
	switch t {
	case TypeDineIn:
		return "DineIn"
	case TypeTakeaway:
		return "Takeaway"
	case TypeDelivery:
		return "Delivery"
	}
	return "Unknown"
}

// Status 订单状态
type Status int

const (
	StatusUnknown   Status = 0 // 非法哨兵值，不会落库
	StatusPending   Status = 1
	StatusPreparing Status = 2
	StatusReady     Status = 3
	StatusDelivered Status = 4
	StatusCancelled Status = 5
)

// Valid 校验状态是否在合法区间（不含 Unknown）
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusCancelled
}

// Terminal 终态不再接受任何流转
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPreparing:
		return "Preparing"
	case StatusReady:
		return "Ready"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// Order 订单聚合根，Items 与订单同生命周期
type Order struct {
	ID                  int64           `gorm:"primaryKey"`
	OrderNumber         string          `gorm:"size:32;uniqueIndex;not null"`
	CustomerID          int64           `gorm:"index;not null"`
	TableID             *int64          `gorm:"index"`
	OrderType           Type            `gorm:"not null"`
	Status              Status          `gorm:"index;not null"`
	// 小计是两位小数行金额之和，精确两位；税与折扣按比例派生，
	// 需要更多小数位（8.5% 税对两位小计最多 5 位），列宽放到 6 位保证
	// Total = Subtotal + TaxAmount - DiscountAmount 落库往返后仍然精确成立
	Subtotal            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(12,6);not null"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(12,6);not null"`
	Total               decimal.Decimal `gorm:"type:decimal(12,6);not null"`
	DeliveryAddress     string          `gorm:"size:512"`
	SpecialInstructions string          `gorm:"size:1024"`
	OrderDate           time.Time       `gorm:"index;not null"`
	CompletedAt         *time.Time
	// Version 乐观锁版本号，状态/金额更新时做 CAS 校验
	Version   int64 `gorm:"not null;default:0"`
	IsDeleted bool  `gorm:"index;not null;default:false"`
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 订单仓储接口
type Repository interface {
	// Create 在单个事务内落库：校验桌台占用、锁定菜品并累加当日销量、写入订单及明细
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	// Update 带乐观锁的更新，版本不匹配返回 Conflict
	Update(ctx context.Context, o *Order) error
	// UpdateItems 改单：在同一事务内 CAS 更新金额并整体替换明细
	UpdateItems(ctx context.Context, o *Order) error
	SoftDelete(ctx context.Context, id int64) error
	ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error)
	ListByStatus(ctx context.Context, status Status) ([]*Order, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*Order, error)
	// ListActive 厨房视角的进行中订单（Pending/Preparing/Ready），按下单时间正序
	ListActive(ctx context.Context) ([]*Order, error)
	ListToday(ctx context.Context) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	CountToday(ctx context.Context, day time.Time) (int64, error)
	// ActiveOrderForTable 查询桌台上未完结的订单，没有则返回 nil
	ActiveOrderForTable(ctx context.Context, tableID int64) (*Order, error)
	RevenueBetween(ctx context.Context, start, end *time.Time) (decimal.Decimal, error)
}
