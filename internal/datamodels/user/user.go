package user

import (
	"context"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// Valid 校验角色是否合法
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// User 用户模型
type User struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"size:64;uniqueIndex;not null"`
	Password  string `gorm:"size:128;not null"`
	Salt      string `gorm:"size:32;not null"`
	Role      Role   `gorm:"size:16;index;not null;default:customer"`
	Phone     string `gorm:"size:32"`
	Address   string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 用户仓储接口
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListAll(ctx context.Context) ([]*User, error)
}
