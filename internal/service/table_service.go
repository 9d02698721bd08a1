package service

import (
	"context"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/table"
)

// TableService 桌台管理
type TableService struct {
	repo table.Repository
}

// NewTableService 创建桌台服务
func NewTableService(repo table.Repository) *TableService {
	return &TableService{repo: repo}
}

func (s *TableService) GetByID(ctx context.Context, id int64) (*table.Table, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TableService) ListAll(ctx context.Context) ([]*table.Table, error) {
	return s.repo.ListAll(ctx)
}

func (s *TableService) Create(ctx context.Context, t *table.Table) error {
	return s.repo.Create(ctx, t)
}

func (s *TableService) Update(ctx context.Context, t *table.Table) error {
	return s.repo.Update(ctx, t)
}

func (s *TableService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *TableService) SetAvailable(ctx context.Context, id int64, available bool) error {
	return s.repo.SetAvailable(ctx, id, available)
}
