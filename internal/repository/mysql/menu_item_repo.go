package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

type menuItemRepo struct {
	db *gorm.DB
}

// NewMenuItemRepository 创建菜品仓储
func NewMenuItemRepository(db *gorm.DB) menuitem.Repository {
	return &menuItemRepo{db: db}
}

func (r *menuItemRepo) GetByID(ctx context.Context, id int64) (*menuitem.MenuItem, error) {
	var m menuitem.MenuItem
	if err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "菜品不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query menu item", err)
	}
	return &m, nil
}

func (r *menuItemRepo) ListAvailable(ctx context.Context) ([]*menuitem.MenuItem, error) {
	var list []*menuitem.MenuItem
	if err := r.db.WithContext(ctx).
		Where("is_available = ? AND is_deleted = ?", true, false).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "list menu items", err)
	}
	return list, nil
}

func (r *menuItemRepo) ListAll(ctx context.Context) ([]*menuitem.MenuItem, error) {
	var list []*menuitem.MenuItem
	if err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "list menu items", err)
	}
	return list, nil
}

func (r *menuItemRepo) Create(ctx context.Context, m *menuitem.MenuItem) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return errs.Wrap(errs.KindUnknown, "create menu item", err)
	}
	return nil
}

func (r *menuItemRepo) Update(ctx context.Context, m *menuitem.MenuItem) error {
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return errs.Wrap(errs.KindUnknown, "update menu item", err)
	}
	return nil
}

func (r *menuItemRepo) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&menuitem.MenuItem{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return errs.Wrap(errs.KindUnknown, "soft delete menu item", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.KindNotFound, "菜品不存在")
	}
	return nil
}

// ResetDailyCounts 每日开市前清零销量并恢复上架
func (r *menuItemRepo) ResetDailyCounts(ctx context.Context) error {
	err := r.db.WithContext(ctx).Model(&menuitem.MenuItem{}).
		Where("is_deleted = ?", false).
		Updates(map[string]interface{}{
			"daily_order_count": 0,
			"is_available":      true,
		}).Error
	if err != nil {
		return errs.Wrap(errs.KindUnknown, "reset daily counts", err)
	}
	return nil
}
