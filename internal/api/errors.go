package api

import "fmt"

// FetchError reports a failed history or conversation fetch, either a
// transport failure or a non-2xx status.
type FetchError struct {
	Status int    // 0 for transport failures
	Detail string // server-provided text, if any
	Err    error  // underlying transport error, if any
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("fetch failed: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("fetch failed: status %d", e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SendError reports a failed message send, either a transport failure or a
// non-2xx status. Detail carries the server-provided text for display.
type SendError struct {
	Status int
	Detail string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send failed: %v", e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("send failed: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("send failed: status %d", e.Status)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
