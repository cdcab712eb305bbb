package origins

import (
	"context"

	"github.com/jub0bs/corsrw/internal/headers"
	"github.com/jub0bs/corsrw/internal/util"
)

// A Predicate reports whether origin should be granted access.
// Implementations that defer their decision must block until it is
// available or until ctx is done.
type Predicate = func(ctx context.Context, origin string) (bool, error)

// A Verdict is the outcome of matching a request's origin against
// a [Matcher]'s rules.
type Verdict uint8

const (
	Deny     Verdict = iota // no access granted
	Wildcard                // access granted to any origin ("*")
	Echo                    // access granted to the request's origin
)

// String returns a short, lowercase name for v.
func (v Verdict) String() string {
	switch v {
	case Deny:
		return "deny"
	case Wildcard:
		return "wildcard"
	case Echo:
		return "echo"
	default:
		return "unknown"
	}
}

// A Matcher decides which origins are granted access.
// A Matcher must not be mutated after its first use;
// its Decide method is then safe for concurrent use.
type Matcher struct {
	AllowAll  bool
	Exact     util.SortedSet
	Patterns  []Pattern
	Predicate Predicate
}

// Decide returns the verdict for a request whose Origin header is origin
// (found reports whether that header was present at all).
//
// If AllowAll is set, the verdict is Wildcard, even for requests without
// an origin. Otherwise, requests without a (non-empty) origin are denied.
// Otherwise, the origin is granted access if it belongs to Exact, matches
// one of Patterns, or satisfies Predicate.
//
// Whenever the request carries an origin, Predicate (if any) is called
// exactly once, even if some other rule already granted access, so that its
// side effects always take place. An error returned by Predicate is
// returned as is, along with Deny.
func (m *Matcher) Decide(ctx context.Context, origin string, found bool) (Verdict, error) {
	if !found || origin == "" {
		if m.AllowAll {
			return Wildcard, nil
		}
		return Deny, nil
	}
	granted := !m.AllowAll && (m.Exact.Contains(origin) || m.matchesSomePattern(origin))
	if m.Predicate != nil {
		ok, err := m.Predicate(ctx, origin)
		if err != nil {
			return Deny, err
		}
		granted = granted || ok
	}
	switch {
	case m.AllowAll:
		return Wildcard, nil
	case granted:
		return Echo, nil
	default:
		return Deny, nil
	}
}

func (m *Matcher) matchesSomePattern(origin string) bool {
	for i := range m.Patterns {
		if m.Patterns[i].Matches(origin) {
			return true
		}
	}
	return false
}

// ACAO returns the value of the Access-Control-Allow-Origin header that
// corresponds to verdict v for origin, or the empty string if v is Deny.
func ACAO(v Verdict, origin string) string {
	switch v {
	case Wildcard:
		return headers.ValueWildcard
	case Echo:
		return origin
	default:
		return ""
	}
}
