package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，用于统计错误和业务指标
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	DBErrors      int64
	MQErrors      int64
	GatewayErrors int64
	// GatewayTimeouts 网关超时（结果不确定）单独计数，便于对账
	GatewayTimeouts int64

	// 业务统计
	OrdersCreated     int64
	OrdersCancelled   int64
	PaymentsCreated   int64
	PaymentsCompleted int64
	PaymentsRefunded  int64

	// 时间统计
	LastDBError      time.Time
	LastMQError      time.Time
	LastGatewayError time.Time
	LastOrderTime    time.Time
	LastPaymentTime  time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordMQError 记录MQ错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordGatewayError 记录支付网关错误
func (m *Monitor) RecordGatewayError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GatewayErrors++
	m.LastGatewayError = time.Now()
}

// RecordGatewayTimeout 记录支付网关超时
func (m *Monitor) RecordGatewayTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GatewayTimeouts++
	m.LastGatewayError = time.Now()
}

// RecordOrderCreated 记录下单成功
func (m *Monitor) RecordOrderCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCreated++
	m.LastOrderTime = time.Now()
}

// RecordOrderCancelled 记录订单取消
func (m *Monitor) RecordOrderCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrdersCancelled++
}

// RecordPaymentCreated 记录支付创建
func (m *Monitor) RecordPaymentCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentsCreated++
	m.LastPaymentTime = time.Now()
}

// RecordPaymentCompleted 记录支付完成
func (m *Monitor) RecordPaymentCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentsCompleted++
	m.LastPaymentTime = time.Now()
}

// RecordPaymentRefunded 记录退款
func (m *Monitor) RecordPaymentRefunded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentsRefunded++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"db":               m.DBErrors,
			"mq":               m.MQErrors,
			"gateway":          m.GatewayErrors,
			"gateway_timeouts": m.GatewayTimeouts,
		},
		"business": map[string]interface{}{
			"orders_created":     m.OrdersCreated,
			"orders_cancelled":   m.OrdersCancelled,
			"payments_created":   m.PaymentsCreated,
			"payments_completed": m.PaymentsCompleted,
			"payments_refunded":  m.PaymentsRefunded,
		},
		"last_events": map[string]interface{}{
			"db_error":      m.LastDBError,
			"mq_error":      m.LastMQError,
			"gateway_error": m.LastGatewayError,
			"last_order":    m.LastOrderTime,
			"last_payment":  m.LastPaymentTime,
		},
	}
}

// Reset 重置统计（用于测试或定期清理）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors = 0
	m.MQErrors = 0
	m.GatewayErrors = 0
	m.GatewayTimeouts = 0
	m.OrdersCreated = 0
	m.OrdersCancelled = 0
	m.PaymentsCreated = 0
	m.PaymentsCompleted = 0
	m.PaymentsRefunded = 0
}
