package corsrw

import (
	"context"
	"io"
	"net/http"

	"github.com/jub0bs/corsrw/internal/headers"
	"github.com/sirupsen/logrus"
)

// responseWriter intercepts the start of the response so as to rewrite its
// CORS headers, and forwards everything else to the underlying
// http.ResponseWriter.
type responseWriter struct {
	http.ResponseWriter
	ctx     context.Context
	icfg    *internalConfig
	origin  string
	found   bool
	debug   bool
	started bool
	err     error // predicate failure, if any
}

// start rewrites the response headers, once, and reports whether
// the response may proceed.
func (w *responseWriter) start() bool {
	if w.started {
		return w.err == nil
	}
	w.started = true
	acao, err := w.icfg.decide(w.ctx, w.origin, w.found, w.debug)
	if err != nil {
		w.err = err
		w.icfg.logger.WithError(err).WithFields(logrus.Fields{
			"origin": w.origin,
		}).Error("corsrw: origin predicate failed")
		clear(w.ResponseWriter.Header())
		const code = http.StatusInternalServerError
		http.Error(w.ResponseWriter, http.StatusText(code), code)
		return false
	}
	headers.RewriteHTTP(w.ResponseWriter.Header(), acao, &w.icfg.extra)
	return true
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.started && isInformational(code) {
		// 1xx responses do not start the final response.
		w.ResponseWriter.WriteHeader(code)
		return
	}
	if !w.started {
		if w.start() {
			w.ResponseWriter.WriteHeader(code)
		}
		return
	}
	if w.err != nil {
		return
	}
	// superfluous call; let net/http report it
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.started {
		w.WriteHeader(http.StatusOK)
	}
	if w.err != nil {
		return 0, w.err
	}
	return w.ResponseWriter.Write(b)
}

// ReadFrom lets io.Copy reach the underlying writer's io.ReaderFrom
// (and, through it, sendfile) once the response has started.
func (w *responseWriter) ReadFrom(r io.Reader) (int64, error) {
	if !w.started {
		w.WriteHeader(http.StatusOK)
	}
	if w.err != nil {
		return 0, w.err
	}
	return io.Copy(w.ResponseWriter, r)
}

func (w *responseWriter) Flush() {
	if !w.started {
		w.WriteHeader(http.StatusOK)
	}
	if w.err != nil {
		return
	}
	// If the underlying writer cannot flush, there is nothing to do.
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Unwrap allows http.ResponseController to reach the underlying writer's
// optional interfaces (e.g. http.Hijacker).
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func isInformational(code int) bool {
	return 100 <= code && code <= 199 && code != http.StatusSwitchingProtocols
}
