package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

// Create 单事务落库：锁桌台查占用、锁菜品复核限售并累加销量、写订单与明细
func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 堂食：锁定桌台，校验可用且无进行中订单
		if o.OrderType == order.TypeDineIn && o.TableID != nil {
			var t table.Table
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&t, *o.TableID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.New(errs.KindNotFound, "桌台不存在")
				}
				return errs.Wrap(errs.KindUnknown, "lock table", err)
			}
			if !t.IsAvailable {
				return errs.Newf(errs.KindConflict, "桌台 %s 当前不可用", t.TableNumber)
			}
			var active int64
			if err := tx.Model(&order.Order{}).
				Where("table_id = ? AND is_deleted = ? AND status IN ?",
					*o.TableID, false,
					[]order.Status{order.StatusPending, order.StatusPreparing, order.StatusReady}).
				Count(&active).Error; err != nil {
				return errs.Wrap(errs.KindUnknown, "count active table orders", err)
			}
			if active > 0 {
				return errs.Newf(errs.KindConflict, "桌台 %s 已有进行中的订单", t.TableNumber)
			}
		}

		// 2) 锁定菜品，复核可售状态并累加当日销量（到上限自动下架）
		for i := range o.Items {
			var m menuitem.MenuItem
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&m, o.Items[i].MenuItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.Newf(errs.KindValidation, "菜品 %d 不存在", o.Items[i].MenuItemID)
				}
				return errs.Wrap(errs.KindUnknown, "lock menu item", err)
			}
			if !m.CanOrder() {
				return errs.Newf(errs.KindValidation, "菜品 %s 暂不可下单", m.Name)
			}
			m.IncrementDailyOrderCount()
			if err := tx.Save(&m).Error; err != nil {
				return errs.Wrap(errs.KindUnknown, "update menu item count", err)
			}
		}

		// 3) 写入订单与明细（gorm 级联创建 Items）
		if err := tx.Create(o).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.New(errs.KindConflict, "订单号已存在，请重试")
			}
			return errs.Wrap(errs.KindUnknown, "create order", err)
		}
		return nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("is_deleted = ?", false).
		First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "订单不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query order", err)
	}
	return &o, nil
}

func (r *orderRepo) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("order_number = ? AND is_deleted = ?", orderNumber, false).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "订单不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query order", err)
	}
	return &o, nil
}

// Update 乐观锁更新：以读出时的版本号做 CAS，不命中说明并发修改过
func (r *orderRepo) Update(ctx context.Context, o *order.Order) error {
	prev := o.Version
	o.Version = prev + 1
	res := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND version = ?", o.ID, prev).
		Updates(map[string]interface{}{
			"status":          o.Status,
			"subtotal":        o.Subtotal,
			"tax_amount":      o.TaxAmount,
			"discount_amount": o.DiscountAmount,
			"total":           o.Total,
			"completed_at":    o.CompletedAt,
			"version":         o.Version,
		})
	if res.Error != nil {
		o.Version = prev
		return errs.Wrap(errs.KindUnknown, "update order", res.Error)
	}
	if res.RowsAffected == 0 {
		o.Version = prev
		return errs.New(errs.KindConflict, "订单已被其他操作修改，请刷新后重试")
	}
	return nil
}

// UpdateItems 改单落库：CAS 校验版本后更新金额，并整体重写明细行
func (r *orderRepo) UpdateItems(ctx context.Context, o *order.Order) error {
	prev := o.Version
	o.Version = prev + 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, prev).
			Updates(map[string]interface{}{
				"subtotal":        o.Subtotal,
				"tax_amount":      o.TaxAmount,
				"discount_amount": o.DiscountAmount,
				"total":           o.Total,
				"version":         o.Version,
			})
		if res.Error != nil {
			return errs.Wrap(errs.KindUnknown, "update order totals", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.New(errs.KindConflict, "订单已被其他操作修改，请刷新后重试")
		}

		if err := tx.Where("order_id = ?", o.ID).
			Delete(&order.OrderItem{}).Error; err != nil {
			return errs.Wrap(errs.KindUnknown, "clear order items", err)
		}
		for i := range o.Items {
			o.Items[i].ID = 0
			o.Items[i].OrderID = o.ID
		}
		if len(o.Items) > 0 {
			if err := tx.Create(&o.Items).Error; err != nil {
				return errs.Wrap(errs.KindUnknown, "insert order items", err)
			}
		}
		return nil
	})
	if err != nil {
		o.Version = prev
		return err
	}
	return nil
}

func (r *orderRepo) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return errs.Wrap(errs.KindUnknown, "soft delete order", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.KindNotFound, "订单不存在")
	}
	return nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, customerID int64) ([]*order.Order, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("customer_id = ?", customerID).Order("order_date DESC")
	})
}

func (r *orderRepo) ListByStatus(ctx context.Context, status order.Status) ([]*order.Order, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", status).Order("order_date DESC")
	})
}

func (r *orderRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]*order.Order, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("order_date >= ? AND order_date <= ?", start, end).Order("order_date DESC")
	})
}

// ListActive 厨房按下单先后出餐，正序返回
func (r *orderRepo) ListActive(ctx context.Context) ([]*order.Order, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("status IN ?", []order.Status{
			order.StatusPending, order.StatusPreparing, order.StatusReady,
		}).Order("order_date ASC")
	})
}

func (r *orderRepo) ListToday(ctx context.Context) ([]*order.Order, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("order_date >= ? AND order_date < ?", today, today.AddDate(0, 0, 1)).
			Order("order_date DESC")
	})
}

func (r *orderRepo) ListAll(ctx context.Context) ([]*order.Order, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Order("order_date DESC")
	})
}

func (r *orderRepo) CountToday(ctx context.Context, day time.Time) (int64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	var count int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("order_date >= ? AND order_date < ? AND is_deleted = ?",
			start, start.AddDate(0, 0, 1), false).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(errs.KindUnknown, "count today orders", err)
	}
	return count, nil
}

func (r *orderRepo) ActiveOrderForTable(ctx context.Context, tableID int64) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND is_deleted = ? AND status IN ?", tableID, false,
			[]order.Status{order.StatusPending, order.StatusPreparing, order.StatusReady}).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.KindUnknown, "query table order", err)
	}
	return &o, nil
}

// RevenueBetween 已送达订单的营收合计，时间端点可省略
func (r *orderRepo) RevenueBetween(ctx context.Context, start, end *time.Time) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("status = ? AND is_deleted = ?", order.StatusDelivered, false)
	if start != nil {
		q = q.Where("order_date >= ?", *start)
	}
	if end != nil {
		q = q.Where("order_date <= ?", *end)
	}
	var total decimal.NullDecimal
	if err := q.Select("SUM(total)").Scan(&total).Error; err != nil {
		return decimal.Zero, errs.Wrap(errs.KindUnknown, "sum revenue", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *orderRepo) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*order.Order, error) {
	var list []*order.Order
	q := r.db.WithContext(ctx).Preload("Items").Where("is_deleted = ?", false)
	if err := scope(q).Find(&list).Error; err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "list orders", err)
	}
	return list, nil
}
