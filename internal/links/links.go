// Package links matches user-entered advertisement URLs against the
// links Avito renders inside search results. The two never look the
// same: search pages prefix listing paths with a location segment the
// seller's own link may spell differently, so matching works on a
// canonical form with that first segment removed.
package links

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// CanonicalPath reduces a listing URL to the path form used for rank
// matching: the URL path without its leading slash and, when the path
// has more than one segment, without the first segment. Two URLs refer
// to the same listing iff their canonical paths are equal.
func CanonicalPath(link string) string {
	path := link
	if u, err := url.Parse(link); err == nil {
		path = u.Path
	}
	path = strings.TrimPrefix(path, "/")

	segments := strings.Split(path, "/")
	if len(segments) > 1 {
		return strings.Join(segments[1:], "/")
	}
	return path
}

// ExtractItemID pulls the trailing decimal digits off a listing URL,
// which is where Avito puts the numeric item id. Returns 0 when the URL
// does not end in digits.
func ExtractItemID(link string) int64 {
	match := trailingDigits.FindString(link)
	if match == "" {
		return 0
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
