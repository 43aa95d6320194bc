package ez

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mdw "wylm-portal/internal/transport/http/middleware"
	resp "wylm-portal/internal/transport/http/response"
)

// AErr 带 HTTP 状态的错误；Msg 会原样返回给客户端，Err 只进日志
type AErr struct {
	Status int
	Msg    string
	Err    error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error      { return &AErr{Status: http.StatusBadRequest, Msg: msg} }
func Unauthorized(msg string) error    { return &AErr{Status: http.StatusUnauthorized, Msg: msg} }
func Forbidden(msg string) error       { return &AErr{Status: http.StatusForbidden, Msg: msg} }
func NotFound(msg string) error        { return &AErr{Status: http.StatusNotFound, Msg: msg} }
func TooManyRequests(msg string) error { return &AErr{Status: http.StatusTooManyRequests, Msg: msg} }

// Internal msg 只写日志，客户端只看到通用文案
func Internal(msg string, err error) error {
	return &AErr{Status: http.StatusInternalServerError, Msg: msg, Err: err}
}

// StatusOf 错误 -> (状态码, 客户端文案)
func StatusOf(err error) (int, string) {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Status >= 500 {
			return ae.Status, ""
		}
		return ae.Status, ae.Msg
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ""
	}
	return http.StatusInternalServerError, ""
}

func (e EZ) fail(c *gin.Context, err error) {
	status, msg := StatusOf(err)
	if status >= 500 {
		e.log.Error("request failed",
			zap.String("rid", mdw.RequestIDFrom(c.Request.Context())),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	resp.Abort(c, status, msg)
}
