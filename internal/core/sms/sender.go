package sms

import (
	"context"

	"go.uber.org/zap"

	"wylm-portal/pkg/utils"
)

// LogSender 未接入短信服务商时使用：只写日志；showCode 仅在非生产环境打开
type LogSender struct {
	log      *zap.Logger
	showCode bool
}

func NewLogSender(l *zap.Logger, showCode bool) *LogSender {
	return &LogSender{log: l, showCode: showCode}
}

func (s *LogSender) SendCode(_ context.Context, phone, purpose, code string) error {
	fields := []zap.Field{zap.String("phone", utils.MaskPhone(phone)), zap.String("purpose", purpose)}
	if s.showCode {
		fields = append(fields, zap.String("code", code))
	}
	s.log.Info("verification code sent", fields...)
	return nil
}
