package response

import "net/http"

// 错误码（字符串，和 HTTP 状态一一对应）
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeServerError     = "INTERNAL_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTimeout         = "TIMEOUT"
)

// CodeMsgMap 状态码 -> (code, 默认 msg)
var CodeMsgMap = map[int][2]string{
	http.StatusBadRequest:            {CodeBadRequest, "bad request"},
	http.StatusUnauthorized:          {CodeUnauthorized, "unauthorized"},
	http.StatusForbidden:             {CodeForbidden, "insufficient permissions"},
	http.StatusNotFound:              {CodeNotFound, "not found"},
	http.StatusRequestEntityTooLarge: {CodeTooLarge, "request body too large"},
	http.StatusTooManyRequests:       {CodeTooManyRequests, "too many requests"},
	http.StatusInternalServerError:   {CodeServerError, "internal server error"},
	http.StatusServiceUnavailable:    {CodeUnavailable, "service unavailable"},
	http.StatusGatewayTimeout:        {CodeTimeout, "request timeout"},
}

func codeOf(status int) (string, string) {
	if v, ok := CodeMsgMap[status]; ok {
		return v[0], v[1]
	}
	if status >= 500 {
		return CodeServerError, "internal server error"
	}
	return CodeBadRequest, http.StatusText(status)
}
