package corsrw

import (
	"context"
	"net/http"

	"github.com/jub0bs/corsrw/internal/headers"
)

// A Field is a single header line.
// Unlike [http.Header], a slice of fields preserves the order and the
// multiplicity of header lines, and the case of their names.
type Field = headers.Field

// A Request describes an incoming request to a [Handler].
type Request struct {
	Method  string
	Path    string
	Headers []Field
	// HTTP is the underlying request, if any; see NewHTTPHandler.
	HTTP *http.Request
}

// An EventType identifies the kind of an [Event].
type EventType uint8

const (
	// ResponseStart marks the start of a response;
	// the event's Status and Headers fields are relevant.
	ResponseStart EventType = iota + 1
	// ResponseBody carries a chunk of the response body;
	// the event's Body and More fields are relevant.
	ResponseBody
)

// An Event is one step in the life cycle of a response.
// A well-formed response consists of exactly one [ResponseStart] event
// followed by zero or more [ResponseBody] events.
type Event struct {
	Type    EventType
	Status  int
	Headers []Field // a nil slice is treated as an empty one
	Body    []byte
	More    bool // whether more body events are to follow
}

// A Send emits an event on behalf of a [Handler].
// A given Send must not be called concurrently.
type Send func(ctx context.Context, ev Event) error

// A Handler responds to a request by emitting events through send.
// It should return the first error that send reports.
type Handler interface {
	Serve(ctx context.Context, req *Request, send Send) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions
// as [Handler]s.
type HandlerFunc func(ctx context.Context, req *Request, send Send) error

// Serve calls f(ctx, req, send).
func (f HandlerFunc) Serve(ctx context.Context, req *Request, send Send) error {
	return f(ctx, req, send)
}
