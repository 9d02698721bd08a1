package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/payment"
)

// Sandbox 本地沙箱网关：不发生真实扣款，开发与联调环境使用。
// 意向只存在进程内存里，重启即失效。
type Sandbox struct {
	mu      sync.Mutex
	intents map[string]bool
}

// NewSandbox 创建沙箱网关
func NewSandbox() *Sandbox {
	return &Sandbox{intents: make(map[string]bool)}
}

func (s *Sandbox) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, orderID int64) (*payment.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := "pi_" + uuid.NewString()
	s.mu.Lock()
	s.intents[id] = true
	s.mu.Unlock()
	return &payment.Intent{
		IntentID:     id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, uuid.NewString()),
	}, nil
}

func (s *Sandbox) ConfirmIntent(ctx context.Context, intentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intents[intentID], nil
}

func (s *Sandbox) Refund(ctx context.Context, intentID string, amount decimal.Decimal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intents[intentID], nil
}

var _ payment.Gateway = (*Sandbox)(nil)
