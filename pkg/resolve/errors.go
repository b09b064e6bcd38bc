package resolve

import "github.com/pkg/errors"

var (
	ErrUnknownPlatform = errors.New("unknown platform")

	ErrRoomNotFound = errors.New("room does not exist")
	ErrRoomOffline  = errors.New("room is not live")
	ErrNetwork      = errors.New("network error")
)
