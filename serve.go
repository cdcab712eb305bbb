package corsrw

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/sirupsen/logrus"
)

var (
	errDuplicateStart  = errors.New("corsrw: response already started")
	errBodyBeforeStart = errors.New("corsrw: body event before response start")
)

// NewHTTPHandler returns a [http.Handler] that serves requests by means of h.
//
// The [Request] passed to h lists the request's headers sorted by name,
// in canonical format, and references the underlying [*http.Request].
// A [ResponseStart] event writes the event's headers (in canonical format)
// and status code; a [ResponseBody] event writes the event's body and,
// if more body events are to follow, flushes it to the client.
//
// If h fails, the error is logged to logger (or, if nil, to
// [logrus.StandardLogger]). If the response has not started yet,
// the client receives a 500 (Internal Server Error) response;
// otherwise, the response is aborted.
func NewHTTPHandler(h Handler, logger logrus.FieldLogger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: fieldsFromHeader(r.Header),
			HTTP:    r,
		}
		var started bool
		send := func(_ context.Context, ev Event) error {
			switch ev.Type {
			case ResponseStart:
				if started {
					return errDuplicateStart
				}
				started = true
				hdrs := w.Header()
				for _, f := range ev.Headers {
					// Canonicalization is required: net/http only recognizes
					// headers like Content-Type in canonical format.
					hdrs.Add(f.Name, f.Value)
				}
				w.WriteHeader(ev.Status)
				return nil
			case ResponseBody:
				if !started {
					return errBodyBeforeStart
				}
				if _, err := w.Write(ev.Body); err != nil {
					return err
				}
				if !ev.More {
					return nil
				}
				err := http.NewResponseController(w).Flush()
				if err != nil && !errors.Is(err, http.ErrNotSupported) {
					return err
				}
				return nil
			default:
				return fmt.Errorf("corsrw: unknown event type %d", ev.Type)
			}
		}
		if err := h.Serve(r.Context(), &req, send); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Error("corsrw: handler failed")
			if !started {
				const code = http.StatusInternalServerError
				http.Error(w, http.StatusText(code), code)
				return
			}
			panic(http.ErrAbortHandler)
		}
	})
}

func fieldsFromHeader(hdrs http.Header) []Field {
	var fields []Field
	for _, name := range slices.Sorted(maps.Keys(hdrs)) {
		for _, v := range hdrs[name] {
			fields = append(fields, Field{Name: name, Value: v})
		}
	}
	return fields
}
