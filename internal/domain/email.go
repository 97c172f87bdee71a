package domain

type OutgoingEmail struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// DispatchResult is what a mail transport reports for a single send attempt.
type DispatchResult struct {
	Success   bool
	MessageID string
	Err       error
}

func Dispatched(id string) DispatchResult {
	return DispatchResult{Success: true, MessageID: id}
}

func DispatchFailed(cause error) DispatchResult {
	return DispatchResult{Success: false, Err: cause}
}
