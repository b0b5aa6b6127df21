package feishu

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotConfigured  = errors.New("feishu account not configured")
	ErrRemoteOperationFailed = errors.New("feishu remote operation failed")
	ErrMissingResultKey      = errors.New("feishu response carries no result key")
	ErrLocalFileUnreadable   = errors.New("local media file unreadable")
	ErrFetchFailed           = errors.New("media fetch failed")
	ErrNoMediaSource         = errors.New("no media source: provide a buffer, url or path")
	ErrInvalidTarget         = errors.New("feishu target is required")
)

// RemoteError is a nonzero code returned by the Feishu Open API.
type RemoteError struct {
	Op   string
	Code int
	Msg  string
}

func (e *RemoteError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = fmt.Sprintf("code %d", e.Code)
	}
	return fmt.Sprintf("feishu %s failed: %s (code: %d)", e.Op, msg, e.Code)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteOperationFailed
}

// FetchError is a non-2xx answer to a remote media fetch.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch media %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

func accountNotConfigured(accountID string) error {
	return fmt.Errorf("%w: %q", ErrAccountNotConfigured, accountID)
}
