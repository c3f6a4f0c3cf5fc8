package profile

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// matchAll parses rawHTML, matches elements against the given CSS selector,
// and returns the outer HTML of each matched element in document order.
//
// If nothing matches, the original rawHTML is returned as a single item so
// downstream parsing still has something to work with.
func matchAll(rawHTML, selector string) ([]string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return []string{rawHTML}, nil
	}

	out := make([]string, 0, len(matches))
	for _, node := range matches {
		var buf bytes.Buffer
		if err := html.Render(&buf, node); err != nil {
			return nil, err
		}
		out = append(out, buf.String())
	}
	return out, nil
}
