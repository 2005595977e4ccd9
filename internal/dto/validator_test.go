package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	_ = v.RegisterValidation(handleTag, validateHandle)
	_ = v.RegisterValidation(hhmmTag, validateHHMM)
	_ = v.RegisterValidation(weekdayTag, validateWeekday)
	_ = v.RegisterValidation(notBlankTag, validateNotBlank)
	return v
}

func TestValidateHandle(t *testing.T) {
	v := newTestValidator(t)
	for _, ok := range []string{"stu1", "Ali_99", "  teacher "} {
		if err := v.Var(ok, handleTag); err != nil {
			t.Errorf("期望 %q 合法，实际=%v", ok, err)
		}
	}
	for _, bad := range []string{"ali.k", "علي", "a b", "x-y"} {
		if err := v.Var(bad, handleTag); err == nil {
			t.Errorf("期望 %q 非法", bad)
		}
	}
}

func TestValidateHHMM(t *testing.T) {
	v := newTestValidator(t)
	for _, ok := range []string{"00:00", "09:05", "23:59"} {
		if err := v.Var(ok, hhmmTag); err != nil {
			t.Errorf("期望 %q 合法，实际=%v", ok, err)
		}
	}
	for _, bad := range []string{"9:05", "24:00", "12:60", "1200"} {
		if err := v.Var(bad, hhmmTag); err == nil {
			t.Errorf("期望 %q 非法", bad)
		}
	}
}

func TestValidateWeekday(t *testing.T) {
	v := newTestValidator(t)
	if err := v.Var("الأحد", weekdayTag); err != nil {
		t.Errorf("期望 الأحد 合法，实际=%v", err)
	}
	if err := v.Var("Sunday", weekdayTag); err == nil {
		t.Error("期望 Sunday 非法")
	}
}

func TestValidationDetails(t *testing.T) {
	v := newTestValidator(t)
	type req struct {
		Time string `validate:"hhmm"`
	}
	err := v.Struct(req{Time: "7pm"})
	if got := ValidationDetails(err); got != "Time:hhmm" {
		t.Errorf("期望 Time:hhmm，实际=%s", got)
	}
	if got := ValidationDetails(nil); got != "" {
		t.Errorf("期望空字符串，实际=%s", got)
	}
}
