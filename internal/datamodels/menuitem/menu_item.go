package menuitem

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDailyOrders 单个菜品每日限售份数，达到上限后自动下架
const MaxDailyOrders = 50

// MenuItem 菜品模型，下单时只读取价格与可售状态
type MenuItem struct {
	ID              int64           `gorm:"primaryKey"`
	Name            string          `gorm:"size:128;not null"`
	Description     string          `gorm:"size:512"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsAvailable     bool            `gorm:"index;not null;default:true"`
	PreparationTime int             `gorm:"not null;default:0"` // 分钟
	DailyOrderCount int             `gorm:"not null;default:0"`
	CategoryID      *int64          `gorm:"index"`
	IsDeleted       bool            `gorm:"index;not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanOrder 可售 = 上架且未删除且未到当日限售上限
func (m *MenuItem) CanOrder() bool {
	return m.IsAvailable && !m.IsDeleted && m.DailyOrderCount < MaxDailyOrders
}

// IncrementDailyOrderCount 累加当日销量，到达上限自动下架
func (m *MenuItem) IncrementDailyOrderCount() {
	m.DailyOrderCount++
	if m.DailyOrderCount >= MaxDailyOrders {
		m.IsAvailable = false
	}
}

// ResetDailyOrderCount 每日重置销量并恢复上架
func (m *MenuItem) ResetDailyOrderCount() {
	m.DailyOrderCount = 0
	m.IsAvailable = true
}

// Repository 菜品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*MenuItem, error)
	ListAvailable(ctx context.Context) ([]*MenuItem, error)
	ListAll(ctx context.Context) ([]*MenuItem, error)
	Create(ctx context.Context, m *MenuItem) error
	Update(ctx context.Context, m *MenuItem) error
	SoftDelete(ctx context.Context, id int64) error
	// ResetDailyCounts 清零所有菜品的当日销量并恢复上架
	ResetDailyCounts(ctx context.Context) error
}
