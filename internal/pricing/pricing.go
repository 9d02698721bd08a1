package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/order"
)

var (
	taxRate = decimal.NewFromFloat(0.085)
	// 欢乐时光 [15:00, 17:00) UTC，八折优惠按小计的 20% 计
	happyHourDiscount = decimal.NewFromFloat(0.20)
	// 小计严格大于 100 触发批量优惠
	bulkThreshold = decimal.NewFromInt(100)
	bulkDiscount  = decimal.NewFromFloat(0.10)
)

const (
	happyHourStart = 15
	happyHourEnd   = 17
)

// Totals 定价结果
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Quote 按订单明细和下单时间计算金额，纯函数、幂等。
// 两种折扣相互独立，可叠加。
func Quote(items []order.OrderItem, orderDate time.Time) Totals {
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	tax := subtotal.Mul(taxRate)

	discount := decimal.Zero
	if isHappyHour(orderDate) {
		discount = discount.Add(subtotal.Mul(happyHourDiscount))
	}
	if subtotal.GreaterThan(bulkThreshold) {
		discount = discount.Add(subtotal.Mul(bulkDiscount))
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		Total:          subtotal.Add(tax).Sub(discount),
	}
}

// Apply 把定价结果盖到订单上，重复调用结果一致
func Apply(o *order.Order) {
	t := Quote(o.Items, o.OrderDate)
	o.Subtotal = t.Subtotal
	o.TaxAmount = t.TaxAmount
	o.DiscountAmount = t.DiscountAmount
	o.Total = t.Total
}

func isHappyHour(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= happyHourStart && h < happyHourEnd
}
