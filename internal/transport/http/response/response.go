package response

import "github.com/gin-gonic/gin"

// Resp 统一响应信封：成功 {success:true,data}，失败 {success:false,error,code} + 非 2xx 状态
type Resp struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK 成功响应（保证 data 不为 null）
func OK(data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Success: true, Data: data}
}

func OKMsg(msg string, data any) Resp {
	r := OK(data)
	r.Message = msg
	return r
}

// Error 失败响应（customMsg 为空时用状态默认文案）
func Error(status int, customMsg string) Resp {
	code, msg := codeOf(status)
	if customMsg != "" {
		msg = customMsg
	}
	return Resp{Success: false, Error: msg, Code: code}
}

func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Error(status, msg))
}
