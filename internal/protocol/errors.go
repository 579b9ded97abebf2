package protocol

import "errors"

var (
	ErrInvalidLaneValue = errors.New("protocol: invalid lane value")
)
