package repository

import "errors"

// Sentinel kinds for ranking store errors.
var (
	ErrDuplicate    = errors.New("duplicate submission")
	ErrRateLimited  = errors.New("submission rate limit reached")
	ErrInvalidItem  = errors.New("invalid item")
	ErrCorruptState = errors.New("corrupt store state")
)
