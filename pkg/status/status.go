// Package status 定义驱动层共用的错误类型
package status

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArg   = errors.New("input param is invalid")
	ErrTimeout      = errors.New("operation timeout")
	ErrInvalidState = errors.New("invalid state")
	ErrNoMem        = errors.New("out of memory")
	ErrNotFound     = errors.New("device not found")
)

// Severity 区分可以向上传递的错误和必须终止进程的错误
type Severity int

const (
	Recoverable Severity = iota
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Recoverable:
		return "recoverable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Error 带有操作名和严重级别的错误
type Error struct {
	Op       string
	Severity Severity
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewFatal 包装一个不可恢复的错误
func NewFatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Severity: Fatal, Err: err}
}

// NewRecoverable 包装一个可向上传递的错误
func NewRecoverable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Severity: Recoverable, Err: err}
}

// IsFatal 报告错误链中是否存在 Fatal 级别的 *Error
func IsFatal(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Severity == Fatal
	}
	return false
}

// Reason 返回用于日志的简短原因
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	case errors.Is(err, ErrInvalidArg):
		return ErrInvalidArg.Error()
	case errors.Is(err, ErrInvalidState):
		return ErrInvalidState.Error()
	case errors.Is(err, ErrNoMem):
		return ErrNoMem.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	default:
		return err.Error()
	}
}
