// Package validate 注册 gin 绑定使用的自定义校验规则
package validate

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"attendance-tracker/backend/internal/model"
)

var once sync.Once

// Register 向 gin 默认校验器注册：
//   - notblank：去除首尾空白后非空
//   - calendar_date：严格的 YYYY-MM-DD 日历日期
//
// 可重复调用。
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("notblank", notBlank)
		_ = v.RegisterValidation("calendar_date", calendarDate)
	})
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func calendarDate(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}
