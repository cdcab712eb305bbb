package corsrw

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/jub0bs/corsrw/cfgerrors"
	"github.com/jub0bs/corsrw/internal/headers"
	"github.com/jub0bs/corsrw/internal/methods"
	"github.com/jub0bs/corsrw/internal/origins"
	"github.com/sirupsen/logrus"
)

// A Config configures a Middleware. The mechanics of and interplay between
// this type's various fields are explained below.
// Attempts to use settings described as "prohibited" result in a failure
// to build the desired middleware.
//
// # AllowAll
//
// AllowAll, when set, configures a CORS middleware to grant access to all
// origins: every response then carries
//
//	Access-Control-Allow-Origin: *
//
// even if the request has no Origin header. AllowAll takes precedence over
// all other origin rules, but it does not prevent calls to OriginPredicate:
// if the predicate fails, so does the request, AllowAll notwithstanding.
//
// # Origins
//
// Origins configures a CORS middleware to grant access to any of the
// specified origins, which are compared to the request's Origin header
// byte for byte (and hence case-sensitively):
//
//	Origins: []string{
//	  "https://example.com",
//	  "http://localhost:8080",
//	},
//
// Because browsers never send an Origin header that ends with a slash,
// specifying an origin that ends with a slash is prohibited; so is
// specifying the empty string.
//
// # OriginPatterns
//
// OriginPatterns configures a CORS middleware to grant access to any origin
// that matches one of the specified shell-style patterns, in which
// * matches any (possibly empty) sequence of characters,
// ? matches any single character, and [...] matches any character of a
// class. Matching is case-sensitive and must cover the entire origin:
//
//	OriginPatterns: []string{
//	  "https://*.example.com", // https://www.example.com, https://a.b.example.com, ...
//	  "http://localhost:8*",   // http://localhost:8000, http://localhost:8080, ...
//	},
//
// Note that * also matches periods, colons, and slashes.
// Specifying a pattern that ends with a slash, an empty pattern, or a
// syntactically invalid pattern is prohibited.
//
// # OriginPredicate
//
// OriginPredicate configures a CORS middleware to grant access to any
// origin for which the specified [Predicate] reports true.
// See [Sync] and [Deferred] for adapting ordinary and asynchronous
// functions.
// The predicate is called exactly once per response to a request that
// carries an origin, regardless of the outcome of the other rules;
// its result is ORed with theirs.
// Because the predicate is called even when AllowAll is set,
// an error it returns fails the request instead of yielding
//
//	Access-Control-Allow-Origin: *
//
// (see [*Middleware.Apply] and [*Middleware.Wrap]).
//
// # RequestHeaders
//
// RequestHeaders specifies the value of the Access-Control-Allow-Headers
// header included in responses to requests from allowed origins.
// Names are listed in the specified order, separated by ", ",
// without further normalization:
//
//	RequestHeaders: []string{"X-Custom-Header", "Authorization"},
//
// Specifying an invalid header name is prohibited.
//
// # Methods
//
// Methods specifies the value of the Access-Control-Allow-Methods
// header included in responses to requests from allowed origins.
// Methods are listed in the specified order, separated by ", ",
// without further normalization:
//
//	Methods: []string{http.MethodGet, http.MethodPut, "PURGE"},
//
// Specifying an invalid method name or a [forbidden method name] is
// prohibited.
//
// # MaxAgeInSeconds
//
// MaxAgeInSeconds specifies the value of the Access-Control-Max-Age header
// included in responses to requests from allowed origins.
// The zero value omits that header. Negative values are prohibited.
//
// # Logger
//
// Logger is where a middleware reports predicate failures that it cannot
// otherwise surface (see [*Middleware.Wrap]) and, in debug mode, its
// decisions. If nil, the middleware uses [logrus.StandardLogger].
//
// # Metrics
//
// Metrics, if non-nil, collects metrics about the middleware's decisions;
// see [NewMetrics].
//
// [forbidden method name]: https://fetch.spec.whatwg.org/#forbidden-method
type Config struct {
	// Precludes comparability, unkeyed struct literals, and conversion to and
	// from third-party types.
	_ [0]func()

	AllowAll        bool
	Origins         []string
	OriginPatterns  []string
	OriginPredicate Predicate `json:"-"`
	RequestHeaders  []string
	Methods         []string
	MaxAgeInSeconds int
	Logger          logrus.FieldLogger `json:"-"`
	Metrics         *Metrics           `json:"-"`
}

type internalConfig struct {
	matcher origins.Matcher
	extra   headers.Extra
	logger  logrus.FieldLogger // never nil
	metrics *Metrics

	// the following fields are only retained for Config
	predicate      Predicate
	customLogger   logrus.FieldLogger
	requestHeaders []string
	methods        []string
	maxAge         int
}

func newInternalConfig(cfg *Config) (*internalConfig, error) {
	if cfg == nil {
		return nil, nil
	}
	icfg := internalConfig{
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		predicate:    cfg.OriginPredicate,
		customLogger: cfg.Logger,
	}
	if icfg.logger == nil {
		icfg.logger = logrus.StandardLogger()
	}
	icfg.matcher.AllowAll = cfg.AllowAll
	icfg.matcher.Predicate = cfg.Metrics.instrument(cfg.OriginPredicate)

	// Accumulate errors in a slice so as to call errors.Join at most once,
	// for better performance.
	errs := icfg.validateOrigins(cfg.Origins)
	errs = icfg.validateOriginPatterns(errs, cfg.OriginPatterns)
	errs = icfg.validateRequestHeaders(errs, cfg.RequestHeaders)
	errs = icfg.validateMethods(errs, cfg.Methods)
	errs = icfg.validateMaxAge(errs, cfg.MaxAgeInSeconds)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &icfg, nil
}

func (icfg *internalConfig) validateOrigins(origs []string) []error {
	var errs []error
	for _, o := range origs {
		if err := origins.CheckOrigin(o); err != nil {
			errs = append(errs, err)
			continue
		}
		icfg.matcher.Exact.Add(o)
	}
	return errs
}

func (icfg *internalConfig) validateOriginPatterns(errs []error, rawPatterns []string) []error {
	for _, raw := range rawPatterns {
		p, err := origins.ParsePattern(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		icfg.matcher.Patterns = append(icfg.matcher.Patterns, p)
	}
	return errs
}

func (icfg *internalConfig) validateRequestHeaders(errs []error, names []string) []error {
	if len(names) == 0 {
		return errs
	}
	nbErrors := len(errs)
	for _, name := range names {
		if !headers.IsValid(name) {
			err := &cfgerrors.UnacceptableHeaderNameError{
				Value:  name,
				Reason: "invalid",
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > nbErrors {
		return errs
	}
	icfg.requestHeaders = slices.Clone(names)
	icfg.extra.ACAH = strings.Join(names, headers.ValueSep)
	return errs
}

func (icfg *internalConfig) validateMethods(errs []error, names []string) []error {
	if len(names) == 0 {
		return errs
	}
	nbErrors := len(errs)
	for _, name := range names {
		if !methods.IsValid(name) {
			err := &cfgerrors.UnacceptableMethodError{
				Value:  name,
				Reason: "invalid",
			}
			errs = append(errs, err)
			continue
		}
		if methods.IsForbidden(name) {
			err := &cfgerrors.UnacceptableMethodError{
				Value:  name,
				Reason: "forbidden",
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > nbErrors {
		return errs
	}
	icfg.methods = slices.Clone(names)
	icfg.extra.ACAM = strings.Join(names, headers.ValueSep)
	return errs
}

func (icfg *internalConfig) validateMaxAge(errs []error, delta int) []error {
	switch {
	case delta < 0:
		err := &cfgerrors.MaxAgeOutOfBoundsError{
			Value: delta,
		}
		return append(errs, err)
	case delta == 0:
		return errs
	default:
		icfg.maxAge = delta
		icfg.extra.ACMA = strconv.Itoa(delta)
		return errs
	}
}

// newConfig returns a Config on the basis of icfg.
// The soundness of the result is guaranteed only if icfg is the result of a
// previous call to newInternalConfig.
func newConfig(icfg *internalConfig) *Config {
	if icfg == nil {
		return nil
	}

	// Note: do not hold (in cfg) any references to mutable fields of icfg;
	// use defensive copying if required.
	cfg := Config{
		AllowAll:        icfg.matcher.AllowAll,
		OriginPredicate: icfg.predicate,
		RequestHeaders:  slices.Clone(icfg.requestHeaders),
		Methods:         slices.Clone(icfg.methods),
		MaxAgeInSeconds: icfg.maxAge,
		Logger:          icfg.customLogger,
		Metrics:         icfg.metrics,
	}
	if icfg.matcher.Exact.Size() > 0 {
		cfg.Origins = icfg.matcher.Exact.ToSlice()
	}
	for i := range icfg.matcher.Patterns {
		cfg.OriginPatterns = append(cfg.OriginPatterns, icfg.matcher.Patterns[i].String())
	}
	return &cfg
}
