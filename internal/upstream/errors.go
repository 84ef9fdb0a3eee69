package upstream

import (
	"errors"
	"fmt"
)

// ErrRateLimited indicates the upstream rejected the call with 429.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// ServerError represents a 5xx response from the upstream server.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upstream server error: HTTP %d", e.StatusCode)
}
