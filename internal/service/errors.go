package service

import (
	"errors"
	"fmt"
)

// 数据缺失：请求本身合法，但系统没有足够数据作答（HTTP 500，各自有诊断文本）
var (
	ErrMissingPrice    = errors.New("no electricity price available")
	ErrMissingSchedule = errors.New("no schedule available for today")
	ErrMissingProfile  = errors.New("no profile available for today")
	ErrMissingReading  = errors.New("no sensor reading available")
)

// ErrPriceSourceUnavailable 电价服务调用失败（上游故障，需告警），区别于查询成功但没有覆盖的时段
var ErrPriceSourceUnavailable = errors.New("the electricity price service is unavailable")

// ErrUnknownHome label 不存在或 home token 不匹配
var ErrUnknownHome = errors.New("unknown home label, or invalid home token")

// Missing sensor readings carry their own text but still match ErrMissingReading.
var (
	ErrMissingValveStatus = &missingReadingError{msg: "no valve status available"}
	ErrMissingTemperature = &missingReadingError{msg: "no temperature available"}
)

type missingReadingError struct {
	msg string
}

func (e *missingReadingError) Error() string { return e.msg }

func (e *missingReadingError) Is(target error) bool { return target == ErrMissingReading }

// ValidationError 调用方输入错误（HTTP 400），Message 直接返回给调用方
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsDataUnavailable reports whether err is one of the missing-data kinds
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrMissingPrice) ||
		errors.Is(err, ErrMissingSchedule) ||
		errors.Is(err, ErrMissingProfile) ||
		errors.Is(err, ErrMissingReading)
}

// DataUnavailableText diagnostic text for a missing-data error
func DataUnavailableText(err error) string {
	var reading *missingReadingError
	switch {
	case errors.As(err, &reading):
		return reading.msg
	case errors.Is(err, ErrMissingPrice):
		return ErrMissingPrice.Error()
	case errors.Is(err, ErrMissingSchedule):
		return ErrMissingSchedule.Error()
	case errors.Is(err, ErrMissingProfile):
		return ErrMissingProfile.Error()
	case errors.Is(err, ErrMissingReading):
		return ErrMissingReading.Error()
	}
	return "internal server error"
}
