package pagination

import (
	"net/url"
	"sort"
	"strconv"
)

// Result holds one page of a listing.
type Result[T any] struct {
	Items      []T
	Total      int
	LinkHeader string
	NextCursor string
	PrevCursor string
}

// Paginate returns the page of items that follows cursor.
//
// Items must be sorted ascending by keyOf. The page starts at the first item
// whose key is greater than the cursor value, so a cursor stays valid when
// the item it points at has been deleted. baseURL and query build the Link
// header; the limit is added to the preserved query.
func Paginate[T any](
	items []T,
	cursor Cursor,
	limit int,
	cursorType string,
	keyOf func(T) string,
	baseURL string,
	query url.Values,
) Result[T] {
	total := len(items)

	startIdx := 0
	if cursor.Value != "" {
		startIdx = sort.Search(total, func(i int) bool {
			return keyOf(items[i]) > cursor.Value
		})
	}

	endIdx := min(startIdx+max(limit, 0), total)
	pageItems := items[startIdx:endIdx]

	var nextCursor, prevCursor string
	if endIdx < total && len(pageItems) > 0 {
		nextCursor = Cursor{Type: cursorType, Value: keyOf(pageItems[len(pageItems)-1])}.Encode()
	}
	if startIdx > 0 {
		if startIdx <= limit {
			prevCursor = Cursor{Type: cursorType}.Encode()
		} else {
			prevCursor = Cursor{Type: cursorType, Value: keyOf(items[startIdx-limit-1])}.Encode()
		}
	}

	q := cloneValues(query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	return Result[T]{
		Items:      pageItems,
		Total:      total,
		LinkHeader: BuildLinkHeader(baseURL, q, nextCursor, prevCursor),
		NextCursor: nextCursor,
		PrevCursor: prevCursor,
	}
}
