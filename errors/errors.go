package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrRoomClosed      = fmt.Errorf("room has been reaped")
	ErrHandshake       = fmt.Errorf("handshake interrupted")
	ErrMemberGone      = fmt.Errorf("member connection is gone")
	ErrArchiveDisabled = fmt.Errorf("history archive is disabled")
)

