package actions

import (
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/joshu-sajeev/destinations/common"
)

// DefaultRawBodyLimit is how many characters of a response body a Result keeps.
const DefaultRawBodyLimit = 1024

const maxResponseBytes = 1 << 20

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the normalized outcome of an action's outbound request.
type Result struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

// Send executes req and returns the result along with the full response body.
// Non-2xx responses become an APIError carrying the upstream status.
func Send(client HTTPClient, req *http.Request) (*Result, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	res := &Result{
		StatusCode: resp.StatusCode,
		Body:       TruncateRaw(string(body), DefaultRawBodyLimit),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, body, common.APIError{
			Status:  resp.StatusCode,
			Code:    common.CodeUpstream,
			Message: fmt.Sprintf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, res.Body),
		}
	}
	return res, body, nil
}

// TruncateRaw trims the supplied string to the specified rune limit. If limit
// is zero or negative it returns an empty string.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}
