package session

import "errors"

// ErrStoreClosed is returned by store operations after Stop
var ErrStoreClosed = errors.New("session store is closed")
