/*
Package corsrw provides middleware that decides, for each response,
whether to grant [Cross-Origin Resource Sharing (CORS)] access to the
requesting origin, and rewrites the response's CORS headers accordingly.

The middleware never answers requests itself; in particular, it does not
handle [CORS-preflight requests]. It only tags whatever response the wrapped
handler chooses to emit, at the moment that handler starts its response:
it strips any Access-Control-Allow-Origin, Access-Control-Allow-Headers,
Access-Control-Allow-Methods, and Access-Control-Max-Age headers that the
handler may have set, and, if the request's origin is granted access,
replaces them with headers derived from its [Config].
Status codes, bodies, and all other headers are left untouched.
Rewriting is idempotent; as a result, nesting middleware is safe.

Middleware apply to two kinds of handlers:

  - [http.Handler], via [*Middleware.Wrap];
  - event-based [Handler], via [*Middleware.Apply].
    Such handlers emit a [ResponseStart] event followed by
    zero or more [ResponseBody] events;
    [NewHTTPHandler] serves them over [net/http].

An origin is granted access if any of the following holds:

  - [Config.AllowAll] is set, in which case the response carries
    "Access-Control-Allow-Origin: *", even if the request has no origin;
  - the origin is one of [Config.Origins];
  - the origin matches one of [Config.OriginPatterns];
  - [Config.OriginPredicate] reports true for the origin.

Otherwise, no CORS header is included in the response;
unless AllowAll is set, neither is one for requests that lack an Origin
header.

[CORS-preflight requests]: https://developer.mozilla.org/en-US/docs/Glossary/Preflight_request
[Cross-Origin Resource Sharing (CORS)]: https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS
*/
package corsrw
