package table

import (
	"context"
	"time"
)

// Table 桌台模型
type Table struct {
	ID          int64  `gorm:"primaryKey"`
	TableNumber string `gorm:"size:16;uniqueIndex;not null"`
	Capacity    int    `gorm:"not null"`
	IsAvailable bool   `gorm:"index;not null;default:true"`
	Location    string `gorm:"size:128"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository 桌台仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Table, error)
	ListAll(ctx context.Context) ([]*Table, error)
	Create(ctx context.Context, t *Table) error
	Update(ctx context.Context, t *Table) error
	Delete(ctx context.Context, id int64) error
	SetAvailable(ctx context.Context, id int64, available bool) error
}
