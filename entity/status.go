package entity

// Status is the lifecycle state of a thread's current episode.
//
// NEW -> PENDING -> PROCESSING -> COMPLETE, with ERROR reachable from
// PENDING or PROCESSING. Only NEW and COMPLETE admit a new request.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusComplete   Status = "COMPLETE"
	StatusError      Status = "ERROR"
)

// Admissible reports whether a new request may be enqueued for a thread in
// this state.
func (s Status) Admissible() bool {
	return s == StatusNew || s == StatusComplete
}
