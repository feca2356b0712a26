package domain

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotInRoom       = errors.New("user not in the room")
	ErrUnauthorized    = errors.New("not allowed")
	ErrUnreachable     = errors.New("target has no live connection")
	ErrRoomIDExhausted = errors.New("failed to allocate unique room id")
)
