package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "用户不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query user", err)
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.KindNotFound, "用户不存在")
		}
		return nil, errs.Wrap(errs.KindUnknown, "query user", err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.New(errs.KindConflict, "用户名已存在")
		}
		return errs.Wrap(errs.KindUnknown, "create user", err)
	}
	return nil
}

func (r *userRepo) ListAll(ctx context.Context) ([]*user.User, error) {
	var list []*user.User
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&list).Error; err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "list users", err)
	}
	return list, nil
}
