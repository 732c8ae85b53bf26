package relay

import "errors"

var (
	// ErrDispatch wraps every failure to hand media over to Telegram.
	ErrDispatch = errors.New("dispatch failed")
	// ErrEmptyAlbum means nothing in a drained group could be sent.
	ErrEmptyAlbum = errors.New("album has no sendable items")
)
