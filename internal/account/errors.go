package account

import "errors"

var (
	ErrNotFound     = errors.New("account: not found")
	ErrConflict     = errors.New("account: already exists")
	ErrInvalidState = errors.New("account: invalid state transition")
)
