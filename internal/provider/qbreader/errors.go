package qbreader

import (
	"fmt"
	"strings"
)

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("qbreader http error: status=%d body=%s", e.StatusCode, body)
}

// Temporary reports whether retrying the request could succeed.
func (e *HTTPError) Temporary() bool {
	return e != nil && (e.StatusCode == 429 || e.StatusCode >= 500)
}
