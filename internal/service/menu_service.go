package service

import (
	"context"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/menuitem"
)

// MenuService 菜单管理，下单链路只读取价格与可售状态
type MenuService struct {
	repo menuitem.Repository
}

// NewMenuService 创建菜单服务
func NewMenuService(repo menuitem.Repository) *MenuService {
	return &MenuService{repo: repo}
}

func (s *MenuService) GetByID(ctx context.Context, id int64) (*menuitem.MenuItem, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAvailable 顾客端菜单
func (s *MenuService) ListAvailable(ctx context.Context) ([]*menuitem.MenuItem, error) {
	return s.repo.ListAvailable(ctx)
}

// ListAll 后台菜单（含下架）
func (s *MenuService) ListAll(ctx context.Context) ([]*menuitem.MenuItem, error) {
	return s.repo.ListAll(ctx)
}

func (s *MenuService) Create(ctx context.Context, m *menuitem.MenuItem) error {
	return s.repo.Create(ctx, m)
}

func (s *MenuService) Update(ctx context.Context, m *menuitem.MenuItem) error {
	return s.repo.Update(ctx, m)
}

func (s *MenuService) Delete(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}

// ResetDailyCounts 每日开市前清零销量、恢复上架
func (s *MenuService) ResetDailyCounts(ctx context.Context) error {
	return s.repo.ResetDailyCounts(ctx)
}
