package corsrw

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/jub0bs/corsrw/internal/headers"
	"github.com/jub0bs/corsrw/internal/origins"
	"github.com/sirupsen/logrus"
)

// A Middleware is a CORS middleware.
// Call its [*Middleware.Wrap] method to apply it to a [http.Handler],
// or its [*Middleware.Apply] method to apply it to a [Handler].
//
// The zero value is ready to use but is a mere "passthrough" middleware,
// i.e. a middleware that simply delegates to the handler(s) it wraps.
// To obtain a proper CORS middleware, you should call [NewMiddleware]
// and pass it a valid [Config].
//
// Middleware have a debug mode,
// which can be toggled by calling their [*Middleware.SetDebug] method
// and queried by calling their [*Middleware.Debug] method.
// When debug mode is on, the middleware logs every decision it makes,
// at debug level, to the logger of its [Config].
//
// A Middleware must not be copied after first use.
//
// Middleware are safe for concurrent use by multiple goroutines.
type Middleware struct {
	icfg  *internalConfig // immutable
	debug atomic.Bool
}

// NewMiddleware creates a CORS middleware that behaves in accordance with cfg.
// If cfg is invalid, it returns a nil [*Middleware] and some non-nil error.
// Otherwise, it returns a pointer to a CORS [Middleware] and a nil error.
//
// The debug mode of the resulting middleware is off.
//
// Mutating the fields of cfg after NewMiddleware has returned a functioning
// middleware does not alter the latter's behavior.
//
// If you need to programmatically handle the configuration errors constitutive
// of the resulting error, rely on package [github.com/jub0bs/corsrw/cfgerrors].
func NewMiddleware(cfg Config) (*Middleware, error) {
	icfg, err := newInternalConfig(&cfg)
	if err != nil {
		return nil, err
	}
	return &Middleware{icfg: icfg}, nil
}

// Apply applies the CORS middleware to the specified event-based handler.
//
// The resulting handler forwards all of h's events, in order, and
// unaltered, except for h's [ResponseStart] event, whose headers it
// rewrites. If the decision about the request's origin fails
// (because the configured predicate failed),
// the start event is not forwarded, the error is returned to h by send,
// any further call to send fails with the same error,
// and the resulting handler returns that error even if h does not.
func (m *Middleware) Apply(h Handler) Handler {
	return HandlerFunc(func(ctx context.Context, req *Request, send Send) error {
		icfg := m.icfg
		if icfg == nil { // passthrough middleware
			return h.Serve(ctx, req, send)
		}
		// The origin is captured once, upon entry.
		origin, found := headers.FirstField(req.Headers, headers.Origin)
		debug := m.debug.Load()
		var fault error
		intercept := func(ctx context.Context, ev Event) error {
			if fault != nil {
				return fault
			}
			if ev.Type != ResponseStart {
				return send(ctx, ev)
			}
			acao, err := icfg.decide(ctx, origin, found, debug)
			if err != nil {
				fault = err
				return err
			}
			ev.Headers = headers.Rewrite(ev.Headers, acao, &icfg.extra)
			return send(ctx, ev)
		}
		if err := h.Serve(ctx, req, intercept); err != nil {
			return err
		}
		return fault
	})
}

// Wrap applies the CORS middleware to the specified handler.
//
// The response's headers are rewritten when h starts its response,
// i.e. upon h's first call to WriteHeader (with a non-informational status
// code), Write, or Flush on the [http.ResponseWriter], or when h returns
// without having done any of that.
// The [http.ResponseWriter] passed to h can be unwrapped by
// [http.ResponseController].
//
// Because [http.ResponseWriter] offers no way of reporting errors, a failure
// of the configured predicate is logged and answered with a
// 500 (Internal Server Error) response free of CORS headers;
// subsequent writes by h then fail with the predicate's error.
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		icfg := m.icfg
		if icfg == nil { // passthrough middleware
			h.ServeHTTP(w, r)
			return
		}
		// Fetch-compliant browsers send at most one Origin header;
		// see https://fetch.spec.whatwg.org/#http-network-or-cache-fetch
		// (step 12).
		origin, found := headers.First(r.Header, headers.CanonicalOrigin)
		rw := responseWriter{
			ResponseWriter: w,
			ctx:            r.Context(),
			icfg:           icfg,
			origin:         origin,
			found:          found,
			debug:          m.debug.Load(),
		}
		h.ServeHTTP(&rw, r)
		if !rw.started {
			// net/http is about to send an implicit 200 response.
			rw.start()
		}
	})
}

// decide returns the value of the Access-Control-Allow-Origin header
// that the response should carry, or the empty string if access is denied.
func (icfg *internalConfig) decide(
	ctx context.Context,
	origin string,
	found bool,
	debug bool,
) (string, error) {
	v, err := icfg.matcher.Decide(ctx, origin, found)
	if err != nil {
		return "", err
	}
	icfg.metrics.observeVerdict(v)
	if debug {
		icfg.logger.WithFields(logrus.Fields{
			"origin":  origin,
			"verdict": v.String(),
		}).Debug("corsrw: origin decision")
	}
	return origins.ACAO(v, origin), nil
}

// SetDebug turns debug mode on (if b is true) or off (otherwise).
func (m *Middleware) SetDebug(b bool) {
	m.debug.Store(b)
}

// Debug reports whether m's debug mode is on.
func (m *Middleware) Debug() bool {
	return m.debug.Load()
}

// Config returns a pointer to a deep copy of m's configuration;
// if m is a passthrough middleware, it simply returns nil.
// The result may differ from the [Config] with which m was created
// (e.g. exact origins are deduplicated and sorted), but
//
//	corsrw.NewMiddleware(*m.Config())
//
// is guaranteed to produce a middleware that behaves like m.
//
// Mutating the fields of the result does not alter m's behavior.
func (m *Middleware) Config() *Config {
	return newConfig(m.icfg)
}
