package presence

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestOriginHostOnly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "http://localhost", want: "localhost"},
		{in: "http://localhost:3000", want: "localhost"},
		{in: "https://App.Example.com", want: "app.example.com"},
		{in: "localhost:8080", want: "localhost"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		if got := originHostOnly(tc.in); got != tc.want {
			t.Fatalf("originHostOnly(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestDeriveOriginPatterns(t *testing.T) {
	t.Parallel()

	got := deriveOriginPatternsFromAllowedOrigins([]string{
		"http://localhost:3000",
		"http://127.0.0.1",
		"http://localhost", // duplicate host
		"*",                // wildcard is never turned into a pattern
	})
	want := []string{"127.0.0.1", "localhost"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("patterns=%v want=%v", got, want)
	}
}

func TestEnforceOrigin(t *testing.T) {
	t.Parallel()

	g := &WSGateway{
		originRequired: true,
		allowedOrigins: []string{"http://localhost", "http://127.0.0.1"},
	}

	cases := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{name: "allowed exact", origin: "http://localhost"},
		{name: "allowed other port", origin: "http://localhost:3000"},
		{name: "missing origin", origin: "", wantErr: true},
		{name: "disallowed host", origin: "http://evil.example.com", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			err := g.enforceOrigin(r)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnforceOriginOptional(t *testing.T) {
	t.Parallel()

	g := &WSGateway{originRequired: false, allowedOrigins: []string{"http://localhost"}}

	r := httptest.NewRequest("GET", "/ws", nil)
	if err := g.enforceOrigin(r); err != nil {
		t.Fatalf("missing origin should pass when not required: %v", err)
	}
}

func TestClassifyReadErr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want readErrKind
	}{
		{name: "ctx canceled", err: context.Canceled, want: readErrCtxDone},
		{name: "ctx deadline", err: context.DeadlineExceeded, want: readErrCtxDone},
		{name: "eof", err: io.EOF, want: readErrConnClosed},
		{name: "bad json", err: errors.New("invalid character 'x' looking for beginning of value"), want: readErrBadJSON},
		{name: "unknown", err: errors.New("boom"), want: readErrUnknown},
	}

	for _, tc := range cases {
		if got := classifyReadErr(tc.err); got != tc.want {
			t.Fatalf("%s: classifyReadErr=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestGatewayEnqueue(t *testing.T) {
	t.Parallel()

	g := &WSGateway{log: testLogger()}
	client := NewClient("c1", 1)

	env := newEnvelope("error", nil, time.Now().UTC())
	if !g.enqueue(context.Background(), client, env) {
		t.Fatalf("enqueue into empty queue should succeed")
	}
	if g.enqueue(context.Background(), client, env) {
		t.Fatalf("enqueue into full queue should fail, not block")
	}

	closed := NewClient("c3", 1)
	closed.Close()
	if g.enqueue(context.Background(), closed, env) {
		t.Fatalf("enqueue to closed client should fail")
	}
}
