package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"manasa/backend/internal/model"
)

// 自定义校验标签
const (
	handleTag   = "handle"   // 用户名字符集 [a-z0-9_]（忽略首尾空白与大小写）
	hhmmTag     = "hhmm"     // 24 小时制 HH:MM
	weekdayTag  = "weekday"  // 阿拉伯语星期名
	notBlankTag = "notblank" // 去除空白后非空
)

var (
	handleRegex = regexp.MustCompile(`^[a-z0-9_]+$`)
	hhmmRegex   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// RegisterValidators 向 gin 默认校验器注册自定义标签，启动时调用一次
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator/v10")
	}

	// 错误信息使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range map[string]validator.Func{
		handleTag:   validateHandle,
		hhmmTag:     validateHHMM,
		weekdayTag:  validateWeekday,
		notBlankTag: validateNotBlank,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("注册校验标签 %s 失败: %w", tag, err)
		}
	}
	return nil
}

func validateHandle(fl validator.FieldLevel) bool {
	return handleRegex.MatchString(strings.ToLower(strings.TrimSpace(fl.Field().String())))
}

func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

func validateWeekday(fl validator.FieldLevel) bool {
	return model.DayOfWeek(fl.Field().String()).Valid()
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// IsHHMM 供非绑定场景（ICS 导入等）复用
func IsHHMM(s string) bool { return hhmmRegex.MatchString(s) }

// ValidationDetails 将绑定错误整理为 "field:tag" 列表，用于响应 details
func ValidationDetails(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return ""
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+":"+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
