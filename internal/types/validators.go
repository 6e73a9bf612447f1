package types

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"helpdesk/internal/model"
)

// RegisterValidators 向gin的校验器注册自定义规则，并以json/form标签作为字段名
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)

	rules := map[string]validator.Func{
		"announcement_type": func(fl validator.FieldLevel) bool {
			return model.AnnouncementType(fl.Field().String()).Valid()
		},
		"announcement_status": func(fl validator.FieldLevel) bool {
			return model.AnnouncementStatus(fl.Field().String()).Valid()
		},
		"owner_filter": func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "null" || s == "me" {
				return true
			}
			id, err := strconv.ParseInt(s, 10, 64)
			return err == nil && id > 0
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// ValidationMessages 将校验错误转换为 字段 -> 提示 的映射，非校验错误返回nil
func ValidationMessages(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "该字段为必填项"
	case "email":
		return "邮箱格式不正确"
	case "url":
		return "链接格式不正确"
	case "min":
		if fe.Kind() == reflect.String {
			return "长度不能少于" + fe.Param() + "个字符"
		}
		return "不能小于" + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "长度不能超过" + fe.Param() + "个字符"
		}
		return "不能大于" + fe.Param()
	case "len":
		return "长度必须为" + fe.Param() + "个字符"
	case "numeric":
		return "只能包含数字"
	case "oneof":
		return "取值必须为: " + fe.Param()
	case "announcement_type":
		return "公告类型必须为 MAINTENANCE, INCIDENT, NEWS, ALERT"
	case "announcement_status":
		return "公告状态必须为 DRAFT, SCHEDULED, PUBLISHED, ARCHIVED"
	case "owner_filter":
		return "取值必须为 null, me 或客服ID"
	}
	return "格式不正确"
}
