package worker

// Disposition is the outcome of processing one delivery.
type Disposition int

const (
	// Done means a verdict was written for a well-formed job.
	Done Disposition = iota
	// DecodeFailed means the body is a poison message.
	DecodeFailed
	// InputMissing means the input object was gone and NOT_FOUND was written.
	InputMissing
	// TransientFailure means the message stays on the queue for redelivery.
	TransientFailure
)

// Terminal reports whether the message should be deleted from the queue.
func (d Disposition) Terminal() bool {
	return d != TransientFailure
}

func (d Disposition) String() string {
	switch d {
	case Done:
		return "done"
	case DecodeFailed:
		return "decode_failed"
	case InputMissing:
		return "input_missing"
	case TransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}
