package connector

// PostStatus classifies the outcome of a time posting.
type PostStatus string

const (
	// StatusSuccess means the time was recorded or there was nothing to record.
	StatusSuccess PostStatus = "SUCCESS"
	// StatusPermanentFailure means retrying the same time group will not help.
	StatusPermanentFailure PostStatus = "PERMANENT_FAILURE"
	// StatusTransientFailure means the time group may be delivered again later.
	StatusTransientFailure PostStatus = "TRANSIENT_FAILURE"
)

// PostResult is the answer to a posted time webhook call.
type PostResult struct {
	Status  PostStatus
	Message string
	Err     error
}

func success(msg string) PostResult {
	return PostResult{Status: StatusSuccess, Message: msg}
}

func permanentFailure(msg string, err error) PostResult {
	return PostResult{Status: StatusPermanentFailure, Message: msg, Err: err}
}

func transientFailure(msg string, err error) PostResult {
	return PostResult{Status: StatusTransientFailure, Message: msg, Err: err}
}
