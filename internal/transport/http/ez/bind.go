package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"wylm-portal/pkg/utils"
)

var registerOnce sync.Once

// RegisterValidators 给 gin 的 validator 加自定义 tag：mobile / slug；字段名取 json tag
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
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
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return utils.ValidPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return utils.ValidSlug(fl.Field().String())
		})
	})
}

func fieldMsg(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "mobile":
		return "invalid phone number"
	case "slug":
		return f + " may only contain lowercase letters, digits and hyphens"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	case "url":
		return f + " must be a valid URL"
	case "gte", "lte", "gt", "lt":
		return fmt.Sprintf("%s must be %s %s", f, fe.Tag(), fe.Param())
	}
	return f + " is invalid"
}

// bindError 绑定/校验错误转成 400（超限的请求体转 413）
func bindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &AErr{Status: http.StatusRequestEntityTooLarge, Err: err}
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldMsg(fe))
		}
		return &AErr{Status: http.StatusBadRequest, Msg: strings.Join(msgs, "; "), Err: err}
	}
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return &AErr{Status: http.StatusBadRequest, Msg: "request body is empty", Err: err}
	case errors.As(err, &se), errors.Is(err, io.ErrUnexpectedEOF):
		return &AErr{Status: http.StatusBadRequest, Msg: "malformed JSON body", Err: err}
	case errors.As(err, &te):
		return &AErr{Status: http.StatusBadRequest, Msg: fmt.Sprintf("%s has wrong type", te.Field), Err: err}
	}
	return &AErr{Status: http.StatusBadRequest, Msg: "invalid request", Err: err}
}
