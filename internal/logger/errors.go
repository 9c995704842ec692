package logger

import "errors"

// Configuration errors returned by Config.Validate.
var (
	ErrInvalidLevel      = errors.New("invalid logging level")
	ErrInvalidEncoding   = errors.New("invalid log encoding format")
	ErrInvalidOutputPath = errors.New("invalid output path")
)
