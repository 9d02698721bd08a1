package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/payment"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

type paymentRepo struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓储
func NewPaymentRepository(db *gorm.DB) payment.Repository {
	return &paymentRepo{db: db}
}

// CreateActive 依赖 (order_id, is_deleted) 唯一索引拦截重复支付，
// 并发的第二次插入直接吃唯一键冲突，返回 Conflict
func (r *paymentRepo) CreateActive(ctx context.Context, p *payment.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.New(errs.KindConflict, "该订单已存在支付记录")
		}
		return errs.Wrap(errs.KindUnknown, "create payment", err)
	}
	return nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "支付记录不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query payment", err)
	}
	return &p, nil
}

func (r *paymentRepo) GetActiveByOrder(ctx context.Context, orderID int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND is_deleted = ?", orderID, false).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.KindUnknown, "query order payment", err)
	}
	return &p, nil
}

func (r *paymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return errs.Wrap(errs.KindUnknown, "update payment", err)
	}
	return nil
}

// ListByUser 通过订单表关联出该用户的支付记录，倒序分页
func (r *paymentRepo) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*payment.Payment, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var list []*payment.Payment
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.customer_id = ? AND payments.is_deleted = ?", userID, false).
		Order("payments.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "list user payments", err)
	}
	return list, nil
}
