package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/auth"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/config"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

// Register 注册顾客账号；后台角色由管理端创建
func (s *UserService) Register(ctx context.Context, username, password string) (*user.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, errs.New(errs.KindValidation, "用户名和密码不能为空")
	}
	u := &user.User{
		Username: username,
		Salt:     "restaurant", // 简化实现，真实业务请使用随机盐
		Role:     user.RoleCustomer,
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateStaff 管理端创建后台账号（manager/staff）
func (s *UserService) CreateStaff(ctx context.Context, username, password string, role user.Role) (*user.User, error) {
	if !role.Valid() || role == user.RoleCustomer {
		return nil, errs.Newf(errs.KindValidation, "非法的后台角色: %s", role)
	}
	u := &user.User{
		Username: username,
		Salt:     "restaurant",
		Role:     role,
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", errs.New(errs.KindUnauthorized, "用户名或密码错误")
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", errs.New(errs.KindUnauthorized, "用户名或密码错误")
	}
	return auth.GenerateToken(s.jwt, u)
}

// GetProfile 查询当前用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*user.User, error) {
	return s.repo.GetByID(ctx, userID)
}
