package notewell

import (
	"errors"
	"fmt"
)

// ErrMissingNotebookID is returned by operations invoked without a notebook
// ID, before any network call is made.
var ErrMissingNotebookID = errors.New("notebook ID is required")

// ErrMissingItemID is returned by operations invoked without an item ID,
// before any network call is made.
var ErrMissingItemID = errors.New("item ID is required")

// APIError is a non-2xx response from the backend. The body is kept
// verbatim for debugging; the backend's error payloads are not stable
// enough to parse.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}
