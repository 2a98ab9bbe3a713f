package hub

import "errors"

// Hub-specific error types
var (
	ErrHubAlreadyRunning     = errors.New("hub is already running")
	ErrHubNotRunning         = errors.New("hub is not running")
	ErrEventChannelFull      = errors.New("event channel is full")
	ErrRegisterChannelFull   = errors.New("register channel is full")
	ErrUnregisterChannelFull = errors.New("unregister channel is full")
	ErrBroadcastChannelFull  = errors.New("broadcast channel is full")
)
