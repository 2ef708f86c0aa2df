package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig     = fmt.Errorf("threadcast: invalid config")
	ErrNotFound          = fmt.Errorf("threadcast: not found")
	ErrUnauthenticated   = fmt.Errorf("threadcast: unauthenticated")
	ErrThreadBusy        = fmt.Errorf("threadcast: thread busy")
	ErrThreadNotFound    = fmt.Errorf("threadcast: thread not found")
	ErrModelNotSupported = fmt.Errorf("threadcast: model not supported")
	ErrRetrievalFailed   = fmt.Errorf("threadcast: knowledge retrieval failed")
	ErrMalformedWorkItem = fmt.Errorf("threadcast: malformed work item")
	ErrInternal          = fmt.Errorf("threadcast: internal error")
)
