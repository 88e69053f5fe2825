// Package expect provides chainable assertions over client.Response for use
// in API tests:
//
//	expect.Response(t, resp).
//		Status(http.StatusOK).
//		ContentType("application/json").
//		Field("data.email", "qa@example.com").
//		ArrayLength("data.roles", 2).
//		FasterThan(500 * time.Millisecond)
//
// Failures are reported with t.Errorf so one chain reports every mismatch.
package expect

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jingweijiang/annotation-api-test/internal/client"
)

// Assertion is bound to one response.
type Assertion struct {
	t    testing.TB
	resp *client.Response
}

// Response starts a chain. A nil response fails immediately and every
// further check is skipped.
func Response(t testing.TB, resp *client.Response) *Assertion {
	t.Helper()
	if resp == nil {
		t.Errorf("expected a response, got nil")
	}
	return &Assertion{t: t, resp: resp}
}

func (a *Assertion) ok() bool {
	return a.resp != nil
}

// Status checks the exact status code.
func (a *Assertion) Status(code int) *Assertion {
	a.t.Helper()
	if a.ok() && a.resp.StatusCode != code {
		a.t.Errorf("expected status %d, got %d: %s", code, a.resp.StatusCode, truncate(a.resp.Text()))
	}
	return a
}

// Success checks for a 2xx status.
func (a *Assertion) Success() *Assertion {
	a.t.Helper()
	if a.ok() && !a.resp.IsSuccess() {
		a.t.Errorf("expected 2xx status, got %d: %s", a.resp.StatusCode, truncate(a.resp.Text()))
	}
	return a
}

// ClientError checks for a 4xx status.
func (a *Assertion) ClientError() *Assertion {
	a.t.Helper()
	if a.ok() && !a.resp.IsClientError() {
		a.t.Errorf("expected 4xx status, got %d", a.resp.StatusCode)
	}
	return a
}

// ServerError checks for a 5xx status.
func (a *Assertion) ServerError() *Assertion {
	a.t.Helper()
	if a.ok() && !a.resp.IsServerError() {
		a.t.Errorf("expected 5xx status, got %d", a.resp.StatusCode)
	}
	return a
}

// Field checks that a gjson path exists and, when want is given, that its
// value equals want after a JSON round trip (so 7 matches 7.0).
func (a *Assertion) Field(path string, want ...any) *Assertion {
	a.t.Helper()
	if !a.ok() {
		return a
	}
	got := a.resp.JSON(path)
	if !got.Exists() {
		a.t.Errorf("field %q not found in response JSON", path)
		return a
	}
	if len(want) > 0 && !jsonEqual(got.Value(), want[0]) {
		a.t.Errorf("field %q: expected %v, got %v", path, want[0], got.Value())
	}
	return a
}

// Fields checks that every path exists and reports all missing ones at once.
func (a *Assertion) Fields(paths ...string) *Assertion {
	a.t.Helper()
	if !a.ok() {
		return a
	}
	var missing []string
	for _, path := range paths {
		if !a.resp.HasField(path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		a.t.Errorf("missing fields in response JSON: %v", missing)
	}
	return a
}

// JSONMatches checks each path of expected against the body.
func (a *Assertion) JSONMatches(expected map[string]any) *Assertion {
	a.t.Helper()
	for path, want := range expected {
		a.Field(path, want)
	}
	return a
}

// ArrayLength checks that path is an array of n elements.
func (a *Assertion) ArrayLength(path string, n int) *Assertion {
	a.t.Helper()
	if !a.ok() {
		return a
	}
	got := a.resp.JSON(path)
	if !got.IsArray() {
		a.t.Errorf("field %q is not an array", path)
		return a
	}
	if length := len(got.Array()); length != n {
		a.t.Errorf("array %q: expected length %d, got %d", path, n, length)
	}
	return a
}

// Header checks that a header is present and, when want is given, equal.
func (a *Assertion) Header(name string, want ...string) *Assertion {
	a.t.Helper()
	if !a.ok() {
		return a
	}
	values := a.resp.Header.Values(name)
	if len(values) == 0 {
		a.t.Errorf("header %q not found", name)
		return a
	}
	if len(want) > 0 && values[0] != want[0] {
		a.t.Errorf("header %q: expected %q, got %q", name, want[0], values[0])
	}
	return a
}

// ContentType checks that the Content-Type header contains mediaType.
func (a *Assertion) ContentType(mediaType string) *Assertion {
	a.t.Helper()
	if !a.ok() {
		return a
	}
	if got := a.resp.Header.Get("Content-Type"); !strings.Contains(got, mediaType) {
		a.t.Errorf("expected content type %q, got %q", mediaType, got)
	}
	return a
}

// FasterThan checks the measured request duration.
func (a *Assertion) FasterThan(limit time.Duration) *Assertion {
	a.t.Helper()
	if a.ok() && a.resp.Duration >= limit {
		a.t.Errorf("response time %s exceeds %s", a.resp.Duration, limit)
	}
	return a
}

// ContainsText checks the raw body.
func (a *Assertion) ContainsText(text string) *Assertion {
	a.t.Helper()
	if a.ok() && !strings.Contains(a.resp.Text(), text) {
		a.t.Errorf("expected body to contain %q", text)
	}
	return a
}

func jsonEqual(got, want any) bool {
	raw, err := json.Marshal(want)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(got, gjson.ParseBytes(raw).Value())
}

func truncate(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
