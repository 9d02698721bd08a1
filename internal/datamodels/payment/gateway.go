package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Intent 网关创建的支付意向
type Intent struct {
	IntentID string
	// ClientSecret 返回给客户端，由客户端完成后续支付流程
	ClientSecret string
}

// Gateway 外部支付网关能力接口（Stripe/PayPal 统一建模）。
// 所有调用都应带超时上下文；超时结果不确定，调用方不得自动重试。
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, orderID int64) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (bool, error)
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) (bool, error)
}
