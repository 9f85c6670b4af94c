package errors

import "fmt"

var (
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrNotFound           = fmt.Errorf("not found")
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrPushUnavailable    = fmt.Errorf("push unavailable")
	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrSlowConsumer       = fmt.Errorf("connection buffer full")
	ErrUnknownConnection  = fmt.Errorf("unknown connection")
)
