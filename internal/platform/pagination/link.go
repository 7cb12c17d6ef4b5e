package pagination

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Link relations for neighbouring pages.
const (
	RelNext = "next"
	RelPrev = "prev"
)

// BuildLinkHeader returns an RFC 8288 Link header pointing at the next and
// previous pages. query is copied and its cursor replaced; empty cursors are
// left out.
func BuildLinkHeader(baseURL string, query url.Values, nextCursor, prevCursor string) string {
	var b strings.Builder
	for _, link := range [...]struct{ rel, cursor string }{
		{RelNext, nextCursor},
		{RelPrev, prevCursor},
	} {
		if link.cursor == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		q := cloneValues(query)
		q.Set("cursor", link.cursor)
		fmt.Fprintf(&b, "<%s?%s>; rel=%q", baseURL, q.Encode(), link.rel)
	}
	return b.String()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}
