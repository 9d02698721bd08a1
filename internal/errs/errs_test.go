package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain business error", New(KindNotFound, "order not found"), KindNotFound},
		{"wrapped business error", fmt.Errorf("create order: %w", New(KindConflict, "版本冲突，请重试")), KindConflict},
		{"wrapped storage error", Wrap(KindUnknown, "query orders", errors.New("driver: bad connection")), KindUnknown},
		{"non-business error", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, 400},
		{KindInvalidTransition, 400},
		{KindUnsupported, 400},
		{KindUnauthorized, 401},
		{KindForbidden, 403},
		{KindNotFound, 404},
		{KindConflict, 409},
		{KindGateway, 502},
		{KindGatewayTimeout, 502},
		{KindUnknown, 500},
	}
	for _, tt := range tests {
		if got := HTTPStatus(New(tt.kind, "x")); got != tt.want {
			t.Errorf("HTTPStatus(kind=%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
	if got := HTTPStatus(errors.New("boom")); got != 500 {
		t.Errorf("HTTPStatus(non-business) = %d, want 500", got)
	}
}

func TestMessageHidesInternalError(t *testing.T) {
	err := Wrap(KindGateway, "支付网关调用失败", errors.New("dial tcp: i/o timeout"))
	if Message(err) != "支付网关调用失败" {
		t.Errorf("Message() = %q, want user-facing message only", Message(err))
	}
	if err.Error() == "支付网关调用失败" {
		t.Error("Error() should keep the underlying cause for logs")
	}
}
