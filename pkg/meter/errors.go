package meter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MsgCrosswalkFetch is the user-facing message for crosswalk download failures
const MsgCrosswalkFetch = "Failed to fetch crosswalk JSON"

// ErrCrosswalkFetch is wrapped by every crosswalk failure that has no
// friendly status translation.
var ErrCrosswalkFetch = errors.New(MsgCrosswalkFetch)

var friendlyStatus = map[int]string{
	401: "Unauthorized – missing/invalid API key",
	402: "Payment required / plan issue",
	403: "Forbidden – key not allowed for this call",
	429: "Too many requests – rate limited",
}

// FriendlyMessage returns the translation for a known status code
func FriendlyMessage(status int) (string, bool) {
	msg, ok := friendlyStatus[status]
	return msg, ok
}

// APIError is a non-2xx response from the metered API or crosswalk host
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// OperationError is a batch-fatal failure raised before any item runs.
// Message is what the user sees; Description carries the detail, which for
// translated status codes is the raw response body.
type OperationError struct {
	Op          string
	Message     string
	Description string
	Err         error
}

func (e *OperationError) Error() string {
	return e.Message
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// describeBody renders a response body as the error description: text as
// is, JSON re-encoded compactly, nothing or null as "{}".
func describeBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return body
	}
	if v == nil {
		return "{}"
	}
	if s, ok := v.(string); ok {
		return s
	}
	compact, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return string(compact)
}

// translate turns a request failure into an OperationError. Known status
// codes get their friendly message and the raw body; anything else keeps
// fallback as the message.
func translate(op string, err error, fallback func(error) (string, string, error)) *OperationError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg, ok := FriendlyMessage(apiErr.StatusCode); ok {
			return &OperationError{Op: op, Message: msg, Description: describeBody(apiErr.Body), Err: err}
		}
	}
	msg, desc, wrapped := fallback(err)
	return &OperationError{Op: op, Message: msg, Description: desc, Err: wrapped}
}
