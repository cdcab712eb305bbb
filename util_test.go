package corsrw_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/jub0bs/corsrw"
)

const (
	// request headers
	headerOrigin = "Origin"

	// response headers
	headerACAO = "Access-Control-Allow-Origin"
	headerACAH = "Access-Control-Allow-Headers"
	headerACAM = "Access-Control-Allow-Methods"
	headerACMA = "Access-Control-Max-Age"

	headerContentType = "Content-Type"
	headerVary        = "Vary"
)

// wire names of the event surface
const (
	fieldOrigin = "origin"
	fieldACAO   = "access-control-allow-origin"
	fieldACAH   = "access-control-allow-headers"
	fieldACAM   = "access-control-allow-methods"
	fieldACMA   = "access-control-max-age"
)

const wildcard = "*"

// Headers represent a set of HTTP-header name-value pairs
// in which there are no duplicate names.
type Headers = map[string]string

func newRequest(method string, headers Headers) *http.Request {
	const dummyEndpoint = "https://example.com/whatever"
	req := httptest.NewRequest(method, dummyEndpoint, nil)
	for name, value := range headers {
		req.Header.Add(name, value)
	}
	return req
}

type spyHandler struct {
	called      atomic.Bool
	statusCode  int
	respHeaders Headers
	// CORS headers that the handler sets on its own
	// and that the middleware is expected to override
	corsHeaders Headers
	body        string
	handler     http.Handler
}

func newSpyHandler(
	statusCode int,
	respHeaders Headers,
	corsHeaders Headers,
	body string,
) func() http.Handler {
	f := func() http.Handler {
		h := func(w http.ResponseWriter, r *http.Request) {
			for k, v := range respHeaders {
				w.Header().Add(k, v)
			}
			for k, v := range corsHeaders {
				w.Header().Add(k, v)
			}
			w.WriteHeader(statusCode)
			if len(body) > 0 {
				io.WriteString(w, body)
			}
		}
		return &spyHandler{
			statusCode:  statusCode,
			respHeaders: respHeaders,
			corsHeaders: corsHeaders,
			body:        body,
			handler:     http.HandlerFunc(h),
		}
	}
	return f
}

func (s *spyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.called.Store(true)
	s.handler.ServeHTTP(w, r)
}

var varyMiddleware = middleware{
	hdrs: Headers{headerVary: "before"},
}

type middleware struct {
	hdrs Headers
}

func (m middleware) Wrap(next http.Handler) http.Handler {
	f := func(w http.ResponseWriter, r *http.Request) {
		for k, v := range m.hdrs {
			w.Header().Add(k, v)
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(f)
}

// note: this function mutates got (to ease subsequent assertions)
func assertResponseHeaders(t *testing.T, got http.Header, want Headers) {
	t.Helper()
	for k, v := range want {
		if !deleteHeaderValue(got, k, v) {
			t.Errorf(`missing header value "%s: %s"`, k, v)
		}
		// clean up: remove headers whose values are empty but non-nil
		if vs, found := got[k]; found && len(vs) == 0 {
			delete(got, k)
		}
	}
}

func assertNoMoreResponseHeaders(t *testing.T, left http.Header) {
	t.Helper()
	// added by httptest.ResponseRecorder
	delete(left, headerContentType)
	for k, v := range left {
		t.Errorf("unexpected header value(s) %q: %q", k, v)
	}
}

func assertBody(t *testing.T, body io.ReadCloser, want string) {
	t.Helper()
	var buf bytes.Buffer
	_, err := io.Copy(&buf, body)
	if got := buf.String(); err != nil || got != want {
		t.Errorf("got body %q; want body %q", got, want)
	}
}

// deleteHeaderValue reports whether h contains a header named key
// that contains value.
// If that's the case, the key-value pair in question is removed from h.
func deleteHeaderValue(h http.Header, key, value string) bool {
	vs, ok := h[key]
	if !ok {
		return false
	}
	i := slices.Index(vs, value)
	if i == -1 {
		return false
	}
	h[key] = slices.Delete(vs, i, i+1)
	return true
}

// eventRecorder is a corsrw.Send that records the events it receives.
type eventRecorder struct {
	events []corsrw.Event
	err    error // if non-nil, returned by every call
}

func (r *eventRecorder) send(_ context.Context, ev corsrw.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

// newEventHandler returns a handler that emits a start event with the
// specified status and fields, followed by one body event per chunk.
// The handler stops at, and returns, the first error reported by send.
func newEventHandler(status int, fields []corsrw.Field, chunks ...string) corsrw.Handler {
	f := func(ctx context.Context, _ *corsrw.Request, send corsrw.Send) error {
		start := corsrw.Event{
			Type:    corsrw.ResponseStart,
			Status:  status,
			Headers: fields,
		}
		if err := send(ctx, start); err != nil {
			return err
		}
		for i, chunk := range chunks {
			body := corsrw.Event{
				Type: corsrw.ResponseBody,
				Body: []byte(chunk),
				More: i < len(chunks)-1,
			}
			if err := send(ctx, body); err != nil {
				return err
			}
		}
		return nil
	}
	return corsrw.HandlerFunc(f)
}

// helloWorldHandler responds with a small JSON document.
var helloWorldHandler = newEventHandler(
	http.StatusOK,
	[]corsrw.Field{{Name: "content-type", Value: "application/json"}},
	`{"hello": "world"}`,
)

// spyPredicate counts its calls and reports a fixed answer.
type spyPredicate struct {
	calls  atomic.Int32
	answer bool
	err    error
}

func (p *spyPredicate) sync(string) bool {
	p.calls.Add(1)
	return p.answer
}

func (p *spyPredicate) deferred(context.Context, string) <-chan corsrw.Result {
	p.calls.Add(1)
	ch := make(chan corsrw.Result, 1)
	go func() {
		ch <- corsrw.Result{Allowed: p.answer, Err: p.err}
	}()
	return ch
}
