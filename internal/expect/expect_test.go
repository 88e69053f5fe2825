package expect

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jingweijiang/annotation-api-test/internal/client"
)

// recorder captures failures instead of failing the enclosing test.
type recorder struct {
	testing.TB
	failures []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func userResponse() *client.Response {
	return &client.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type": []string{"application/json; charset=utf-8"},
			"X-Request-Id": []string{"abc"},
		},
		Body:     []byte(`{"data":{"id":7,"email":"qa@example.com","active":true,"roles":["admin","qa"]}}`),
		Duration: 40 * time.Millisecond,
	}
}

func TestPassingChain(t *testing.T) {
	rec := &recorder{}

	Response(rec, userResponse()).
		Status(http.StatusOK).
		Success().
		ContentType("application/json").
		Header("X-Request-ID", "abc").
		Field("data.id", 7).
		Field("data.email").
		Fields("data.id", "data.roles").
		JSONMatches(map[string]any{"data.active": true, "data.roles.0": "admin"}).
		ArrayLength("data.roles", 2).
		FasterThan(time.Second).
		ContainsText("qa@example.com")

	if len(rec.failures) != 0 {
		t.Fatalf("expected no failures, got %v", rec.failures)
	}
}

func TestFailingChecks(t *testing.T) {
	tests := []struct {
		name  string
		check func(*Assertion)
	}{
		{name: "Status", check: func(a *Assertion) { a.Status(http.StatusCreated) }},
		{name: "ClientError", check: func(a *Assertion) { a.ClientError() }},
		{name: "ServerError", check: func(a *Assertion) { a.ServerError() }},
		{name: "MissingField", check: func(a *Assertion) { a.Field("data.name") }},
		{name: "FieldValue", check: func(a *Assertion) { a.Field("data.id", 8) }},
		{name: "Fields", check: func(a *Assertion) { a.Fields("data.id", "data.name", "meta") }},
		{name: "NotArray", check: func(a *Assertion) { a.ArrayLength("data.email", 1) }},
		{name: "ArrayLength", check: func(a *Assertion) { a.ArrayLength("data.roles", 3) }},
		{name: "MissingHeader", check: func(a *Assertion) { a.Header("X-Trace") }},
		{name: "HeaderValue", check: func(a *Assertion) { a.Header("X-Request-ID", "zzz") }},
		{name: "ContentType", check: func(a *Assertion) { a.ContentType("text/html") }},
		{name: "Slow", check: func(a *Assertion) { a.FasterThan(10 * time.Millisecond) }},
		{name: "Text", check: func(a *Assertion) { a.ContainsText("nope") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			tt.check(Response(rec, userResponse()))
			if len(rec.failures) != 1 {
				t.Fatalf("expected exactly one failure, got %v", rec.failures)
			}
		})
	}
}

func TestChainReportsEveryMismatch(t *testing.T) {
	rec := &recorder{}

	Response(rec, userResponse()).
		Status(http.StatusNotFound).
		Field("data.id", "7").
		ArrayLength("data.roles", 1)

	if len(rec.failures) != 3 {
		t.Fatalf("expected three failures, got %v", rec.failures)
	}
}

func TestNilResponse(t *testing.T) {
	rec := &recorder{}

	Response(rec, nil).Status(http.StatusOK).Field("a").Header("b").FasterThan(time.Second)

	if len(rec.failures) != 1 {
		t.Fatalf("expected a single failure for nil response, got %v", rec.failures)
	}
}
