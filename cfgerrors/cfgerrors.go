/*
Package cfgerrors provides functionalities for programmatically handling
configuration errors produced by package [github.com/jub0bs/corsrw].

Most users of package [github.com/jub0bs/corsrw] have no use for this
package. However, programs that let operators configure CORS at runtime
(e.g. via some configuration file or some command-line interface) may find
it useful: it indeed allows them to report CORS-configuration mistakes
with custom, human-friendly error messages.
*/
package cfgerrors

import (
	"fmt"
	"iter"
)

// An UnacceptableOriginError indicates an unacceptable exact origin or
// origin pattern.
// The Kind field may take one of two values:
//   - "origin": the value was specified as an exact origin;
//   - "pattern": the value was specified as an origin pattern.
//
// The Reason field may take one of three values:
//   - "empty": the value is the empty string;
//   - "slash": the value ends with a slash,
//     which no Origin header ever does;
//   - "invalid": the value is not a syntactically valid pattern.
//
// For more details, see [github.com/jub0bs/corsrw.Config.Origins] and
// [github.com/jub0bs/corsrw.Config.OriginPatterns].
type UnacceptableOriginError struct {
	Value  string // the unacceptable value that was specified
	Kind   string // origin | pattern
	Reason string // empty | slash | invalid
}

func (err *UnacceptableOriginError) Error() string {
	switch err.Reason {
	case "empty":
		const tmpl = "corsrw: empty %s"
		return fmt.Sprintf(tmpl, err.kind())
	case "slash":
		const tmpl = "corsrw: %s %q ends with a slash, but CORS origin rules should never end in a /"
		return fmt.Sprintf(tmpl, err.kind(), err.Value)
	default:
		const tmpl = "corsrw: %s %s %q"
		return fmt.Sprintf(tmpl, err.Reason, err.kind(), err.Value)
	}
}

func (err *UnacceptableOriginError) kind() string {
	if err.Kind == "pattern" {
		return "origin pattern"
	}
	return "origin"
}

// An UnacceptableMethodError indicates an unacceptable method.
// The Reason field may take one of two values:
//   - "invalid": the method is invalid;
//   - "forbidden": the method is forbidden by [the Fetch standard].
//
// For more details, see [github.com/jub0bs/corsrw.Config.Methods].
//
// [the Fetch standard]: https://fetch.spec.whatwg.org
type UnacceptableMethodError struct {
	Value  string // the unacceptable value that was specified
	Reason string // invalid | forbidden
}

func (err *UnacceptableMethodError) Error() string {
	const tmpl = "corsrw: %s method %q"
	return fmt.Sprintf(tmpl, err.Reason, err.Value)
}

// An UnacceptableHeaderNameError indicates an unacceptable header name.
// The Reason field currently takes a single value:
//   - "invalid": the header name is invalid.
//
// For more details, see [github.com/jub0bs/corsrw.Config.RequestHeaders].
type UnacceptableHeaderNameError struct {
	Value  string // the unacceptable value that was specified
	Reason string // invalid
}

func (err *UnacceptableHeaderNameError) Error() string {
	const tmpl = "corsrw: %s request-header name %q"
	return fmt.Sprintf(tmpl, err.Reason, err.Value)
}

// A MaxAgeOutOfBoundsError indicates a negative max-age value.
//
// For more details, see [github.com/jub0bs/corsrw.Config.MaxAgeInSeconds].
type MaxAgeOutOfBoundsError struct {
	Value int // the unacceptable value that was specified
}

func (err *MaxAgeOutOfBoundsError) Error() string {
	const tmpl = "corsrw: out-of-bounds max-age value %d (unset: 0)"
	return fmt.Sprintf(tmpl, err.Value)
}

// All returns an iterator over the CORS-configuration errors contained in
// err's error tree. The order is unspecified and may change from one release
// to the next. All only supports error values returned by
// [github.com/jub0bs/corsrw.NewMiddleware]; it should not be called on
// any other error value.
func All(err error) iter.Seq[error] {
	return func(yield func(error) bool) {
		every(err, yield)
	}
}

func every(err error, f func(error) bool) bool {
	switch err := err.(type) {
	// Note that there's no need for any "interface { Unwrap() error }" case
	// because nowhere do we "wrap" errors; we only ever "join" them.
	case interface{ Unwrap() []error }:
		for _, err := range err.Unwrap() {
			if !every(err, f) {
				return false
			}
		}
		return true
	default:
		return f(err)
	}
}
