package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

type tableRepo struct {
	db *gorm.DB
}

// NewTableRepository 创建桌台仓储
func NewTableRepository(db *gorm.DB) table.Repository {
	return &tableRepo{db: db}
}

func (r *tableRepo) GetByID(ctx context.Context, id int64) (*table.Table, error) {
	var t table.Table
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "桌台不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query table", err)
	}
	return &t, nil
}

func (r *tableRepo) ListAll(ctx context.Context) ([]*table.Table, error) {
	var list []*table.Table
	if err := r.db.WithContext(ctx).Order("table_number ASC").Find(&list).Error; err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "list tables", err)
	}
	return list, nil
}

func (r *tableRepo) Create(ctx context.Context, t *table.Table) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.New(errs.KindConflict, "桌号已存在")
		}
		return errs.Wrap(errs.KindUnknown, "create table", err)
	}
	return nil
}

func (r *tableRepo) Update(ctx context.Context, t *table.Table) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return errs.Wrap(errs.KindUnknown, "update table", err)
	}
	return nil
}

func (r *tableRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&table.Table{}, id)
	if res.Error != nil {
		return errs.Wrap(errs.KindUnknown, "delete table", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.KindNotFound, "桌台不存在")
	}
	return nil
}

func (r *tableRepo) SetAvailable(ctx context.Context, id int64, available bool) error {
	// 值未变化时 MySQL 影响行数为 0，这里不做存在性判断
	err := r.db.WithContext(ctx).Model(&table.Table{}).
		Where("id = ?", id).
		Update("is_available", available).Error
	if err != nil {
		return errs.Wrap(errs.KindUnknown, "update table availability", err)
	}
	return nil
}
