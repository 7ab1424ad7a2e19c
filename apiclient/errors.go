package apiclient

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for the failure kinds callers branch on. Transport errors
// carry neither sentinel and keep their wrapped cause.
var (
	// ErrTimeout marks a file upload aborted by the client side time limit.
	// The message doubles as the user facing hint.
	ErrTimeout = stderrors.New("time limit exceeded (3 min), retry with a smaller file")

	// ErrParse marks a malformed body on an otherwise successful response.
	ErrParse = stderrors.New("malformed response body")
)

// APIError is a non-2xx backend response. Body is best effort and may be
// empty when reading it failed; that never masks the status itself.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Body)
}

// AsAPIError extracts an APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout reports whether err is the upload time limit error.
func IsTimeout(err error) bool {
	return stderrors.Is(err, ErrTimeout)
}

const maxErrorBodyBytes = 8 << 10

// responseError builds an APIError from resp, capturing a bounded amount of
// the body text best effort.
func responseError(resp *http.Response) *APIError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		body = nil
	}
	return &APIError{Status: resp.StatusCode, Body: string(body)}
}
