package serp

import (
	"io"

	"golang.org/x/net/html"
)

// itemLinks extracts the href of every anchor marked with
// itemprop="url", in document order. That microdata attribute is how
// Avito tags the item links inside a search results page, so document
// order here is rank order.
func itemLinks(r io.Reader) ([]string, error) {
	z := html.NewTokenizer(r)

	var hrefs []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return hrefs, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}

			var href string
			var isItemLink bool
			for {
				key, val, more := z.TagAttr()
				switch string(key) {
				case "href":
					href = string(val)
				case "itemprop":
					isItemLink = string(val) == "url"
				}
				if !more {
					break
				}
			}
			if isItemLink && href != "" {
				hrefs = append(hrefs, href)
			}
		}
	}
}
