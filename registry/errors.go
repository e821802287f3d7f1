package registry

import "errors"

var (
	ErrDuplicateChannel = errors.New("duplicate channel")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrWrongChannelKind = errors.New("operation not valid for this channel kind")
	ErrInvalidChannel   = errors.New("invalid channel number")
	ErrInvalidMode      = errors.New("invalid channel mode")
	ErrInvalidAddress   = errors.New("invalid bus address")
	ErrInvalidState     = errors.New("invalid registry state")
)
