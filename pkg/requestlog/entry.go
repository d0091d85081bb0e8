package requestlog

import "time"

// MaxBodySize is the number of request body bytes kept per entry.
const MaxBodySize = 10 * 1024

const truncatedSuffix = "...(truncated)"

// Entry is one recorded request.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"requestId,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query,omitempty"`
	RemoteAddr string    `json:"remoteAddr,omitempty"`

	// Body holds at most MaxBodySize bytes of the request body. BodySize is
	// the number of bytes the client sent, when known.
	Body     string `json:"body,omitempty"`
	BodySize int64  `json:"bodySize"`

	// Route is the matched route path, empty on a miss.
	Route      string `json:"route,omitempty"`
	Status     int    `json:"status"`
	DelayMs    int64  `json:"delayMs"`
	DurationMs int64  `json:"durationMs"`

	// Canceled is set when the client left before the response was written.
	Canceled bool `json:"canceled,omitempty"`
}

// TruncateBody shortens data to maxSize bytes and marks it as truncated.
// A maxSize of zero or less uses MaxBodySize.
func TruncateBody(data []byte, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxBodySize
	}
	if len(data) > maxSize {
		return string(data[:maxSize]) + truncatedSuffix
	}
	return string(data)
}
