package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem 订单明细，UnitPrice 为下单时刻的快照价，之后菜单改价不回溯
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey"`
	OrderID             int64           `gorm:"index;not null"`
	MenuItemID          int64           `gorm:"index;not null"`
	Quantity            int             `gorm:"not null"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SpecialInstructions string          `gorm:"size:512"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// LineTotal 行小计 = 数量 × 快照单价
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
