package headers

import "net/http"

// Extra holds the precomputed values of the CORS response headers that
// accompany a grant. An empty value means that the corresponding header
// is omitted.
type Extra struct {
	ACAH string
	ACAM string
	ACMA string
}

// Rewrite returns a copy of orig stripped of all CORS response headers
// and, if acao is non-empty, augmented with a fresh set of them:
// Access-Control-Allow-Origin (with value acao), then, for each non-empty
// value of extra, Access-Control-Allow-Headers,
// Access-Control-Allow-Methods, and Access-Control-Max-Age.
// The other fields of orig keep their relative order.
// Rewrite never modifies orig.
func Rewrite(orig []Field, acao string, extra *Extra) []Field {
	res := make([]Field, 0, len(orig)+4)
	for _, f := range orig {
		if !IsCORS(f.Name) {
			res = append(res, f)
		}
	}
	if acao == "" {
		return res
	}
	res = append(res, Field{Name: ACAO, Value: acao})
	if extra == nil {
		return res
	}
	if extra.ACAH != "" {
		res = append(res, Field{Name: ACAH, Value: extra.ACAH})
	}
	if extra.ACAM != "" {
		res = append(res, Field{Name: ACAM, Value: extra.ACAM})
	}
	if extra.ACMA != "" {
		res = append(res, Field{Name: ACMA, Value: extra.ACMA})
	}
	return res
}

// RewriteHTTP is like Rewrite but operates in place on hdrs.
// Keys of hdrs need not be in canonical format for them to be stripped.
func RewriteHTTP(hdrs http.Header, acao string, extra *Extra) {
	for k := range hdrs {
		if IsCORS(k) {
			delete(hdrs, k)
		}
	}
	if acao == "" {
		return
	}
	// Each value gets its own slice; the wrapped handler may well mutate
	// the header map after the fact, and no slice must be shared across
	// responses.
	hdrs[CanonicalACAO] = []string{acao}
	if extra == nil {
		return
	}
	if extra.ACAH != "" {
		hdrs[CanonicalACAH] = []string{extra.ACAH}
	}
	if extra.ACAM != "" {
		hdrs[CanonicalACAM] = []string{extra.ACAM}
	}
	if extra.ACMA != "" {
		hdrs[CanonicalACMA] = []string{extra.ACMA}
	}
}
