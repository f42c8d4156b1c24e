package devlake

import "fmt"

// Error is the normalized failure of one DevLake API call.
//
// Message is built only from the HTTP status and the platform-provided
// message field. Request payloads are never captured: the createConnection
// payload carries a personal access token, and an error or log record built
// from it would leak the secret.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Timeout    bool
}

func (e *Error) Error() string {
	if e.Timeout {
		return fmt.Sprintf("devlake: %s: request timed out", e.Op)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("devlake: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("devlake: %s: %s", e.Op, e.Message)
}
