package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}

	// 应保留错误链
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "metric %d", 1); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrInvalidInput, "metric %q", "up")
	if wrapped.Error() != `metric "up": invalid input` {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
	if !Is(wrapped, ErrInvalidInput) {
		t.Error("Wrapf 应保留哨兵错误")
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "CODE"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	base := errors.New("counter decreased")
	coded := WithCode(base, "CounterDecrease")
	if coded.Error() != "[CounterDecrease] counter decreased" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}
	if code := GetCode(coded); code != "CounterDecrease" {
		t.Errorf("GetCode(coded) = %q，期望 %q", code, "CounterDecrease")
	}

	// 包装后的带码错误依然应有 code，并且仍能匹配原始错误
	wrapped := Wrapf(coded, "series %s", "a")
	if code := GetCode(wrapped); code != "CounterDecrease" {
		t.Errorf("GetCode(wrapped) = %q，期望 %q", code, "CounterDecrease")
	}
	if !Is(wrapped, coded) || !Is(wrapped, base) {
		t.Error("错误链丢失")
	}

	if code := GetCode(base); code != "" {
		t.Errorf("GetCode(plain) = %q，期望空字符串", code)
	}
}

func TestCombine(t *testing.T) {
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	single := errors.New("one")
	if err := Combine(nil, single); err != single {
		t.Errorf("Combine(nil, err) = %v，期望原错误", err)
	}

	second := errors.New("two")
	err := Combine(single, second)
	if err.Error() != "one (and 1 more errors)" {
		t.Errorf("Combine().Error() = %q", err.Error())
	}
	if !errors.Is(err, second) {
		t.Error("errors.Is(combined, second) = false，期望 true")
	}
}
