package client

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// Response is a completed API call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Duration covers every attempt, including backoff between retries.
	Duration time.Duration
	Attempts int
}

func newResponse(resp *resty.Response, elapsed time.Duration) *Response {
	attempts := 1
	if resp.Request != nil && resp.Request.Attempt > 0 {
		attempts = resp.Request.Attempt
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Duration:   elapsed,
		Attempts:   attempts,
	}
}

// String summarises status and timing for log and failure messages.
func (r *Response) String() string {
	return fmt.Sprintf("Response(status=%d, duration=%s)", r.StatusCode, r.Duration)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect reports a 3xx status.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// ContentType returns the media type without parameters.
func (r *Response) ContentType() string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// IsJSON reports whether the body is valid JSON.
func (r *Response) IsJSON() bool {
	return gjson.ValidBytes(r.Body)
}

// JSON evaluates a gjson path (e.g. "data.0.email", "users.#") against the
// body.
func (r *Response) JSON(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// HasField reports whether the gjson path resolves to a value.
func (r *Response) HasField(path string) bool {
	return r.JSON(path).Exists()
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
