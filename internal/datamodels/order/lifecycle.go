package order

import (
	"strings"
	"time"

	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/datamodels/user"
	"github.com/ahmeddsaber/Online-Restaurant-Management-System/internal/errs"
)

// transitions 订单状态机：只允许向前流转，终态不再变化
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// staffTargets 员工只能把订单推进到备餐/出餐
var staffTargets = map[Status]bool{
	StatusPreparing: true,
	StatusReady:     true,
}

// transitionLegal 状态机层面 from→to 是否可达，与角色无关
func transitionLegal(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// roleMayTarget 角色是否有权把订单推进到目标状态
func roleMayTarget(role user.Role, to Status) bool {
	switch role {
	case user.RoleAdmin, user.RoleManager:
		return true
	case user.RoleStaff:
		return staffTargets[to]
	default:
		return false
	}
}

// CanTransition 按角色判断 from→to 是否允许。
// 角色限制收在状态机内部，绕过 DTO 校验的调用方同样受约束。
func CanTransition(role user.Role, from, to Status) bool {
	return to.Valid() && transitionLegal(from, to) && roleMayTarget(role, to)
}

// UpdateStatus 按角色推进状态，首次进入 Delivered 时盖章完成时间。
// 流转表不可达返回 InvalidTransition，角色无权返回 Forbidden。
func (o *Order) UpdateStatus(role user.Role, newStatus Status, now time.Time) error {
	if !newStatus.Valid() {
		return errs.Newf(errs.KindValidation, "非法的订单状态: %d", newStatus)
	}
	if !transitionLegal(o.Status, newStatus) {
		return errs.Newf(errs.KindInvalidTransition,
			"订单状态不允许从 %s 变更为 %s", o.Status, newStatus)
	}
	if !roleMayTarget(role, newStatus) {
		return errs.Newf(errs.KindForbidden, "当前角色无权把订单推进到 %s", newStatus)
	}
	o.Status = newStatus
	if newStatus == StatusDelivered && o.CompletedAt == nil {
		t := now.UTC()
		o.CompletedAt = &t
	}
	return nil
}

// CanCancel Ready/Delivered/Cancelled 之后不可取消
func (o *Order) CanCancel() bool {
	switch o.Status {
	case StatusReady, StatusDelivered, StatusCancelled:
		return false
	}
	return true
}

// Cancel 取消订单，终态
func (o *Order) Cancel() error {
	if !o.CanCancel() {
		return errs.Newf(errs.KindInvalidTransition, "订单当前状态（%s）不可取消", o.Status)
	}
	o.Status = StatusCancelled
	return nil
}

// ValidateDeliveryOrder 外送单必须有配送地址
func (o *Order) ValidateDeliveryOrder() error {
	if o.OrderType == TypeDelivery && strings.TrimSpace(o.DeliveryAddress) == "" {
		return errs.New(errs.KindValidation, "外送订单必须填写配送地址")
	}
	return nil
}
