package headers

import (
	"net/http"

	"github.com/jub0bs/corsrw/internal/util"
	"golang.org/x/net/http/httpguts"
)

// header names in byte-lowercase format, as emitted in response events
const (
	Origin = "origin"

	ACAO = "access-control-allow-origin"
	ACAH = "access-control-allow-headers"
	ACAM = "access-control-allow-methods"
	ACMA = "access-control-max-age"
)

// header names in canonical format, for use as http.Header keys
const (
	CanonicalOrigin = "Origin"

	CanonicalACAO = "Access-Control-Allow-Origin"
	CanonicalACAH = "Access-Control-Allow-Headers"
	CanonicalACAM = "Access-Control-Allow-Methods"
	CanonicalACMA = "Access-Control-Max-Age"
)

const ValueWildcard = "*"

// ValueSep separates the elements of list-based header values.
const ValueSep = ", "

// IsValid reports whether name is a valid header name,
// [per the Fetch standard].
//
// [per the Fetch standard]: https://fetch.spec.whatwg.org/#header-name
func IsValid(name string) bool {
	return httpguts.ValidHeaderFieldName(name)
}

// IsCORS reports whether name case-insensitively equals the name of one of
// the CORS response headers that this module manages.
func IsCORS(name string) bool {
	switch util.ByteLowercase(name) {
	case ACAO, ACAH, ACAM, ACMA:
		return true
	default:
		return false
	}
}

// First, if k is present in hdrs, returns the first value associated to k
// in hdrs and true; otherwise, First returns "", false.
// Precondition: k is in canonical format (see [http.CanonicalHeaderKey]).
func First(hdrs http.Header, k string) (string, bool) {
	v, found := hdrs[k]
	if !found || len(v) == 0 {
		return "", false
	}
	return v[0], true
}
