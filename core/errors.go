package core

import "errors"

var (
	ErrUnsupportedMode    = errors.New("unsupported mode")
	ErrUnsupportedBoard   = errors.New("unsupported board")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrInvalidConfig      = errors.New("invalid config")
)
