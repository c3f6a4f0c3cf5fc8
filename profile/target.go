package profile

import "regexp"

// targetPattern matches public profile page URLs. Only the canonical
// /in/<slug> shape is accepted; company pages, search results and feed
// URLs are rejected before any browser work happens.
var targetPattern = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/[A-Za-z0-9%_-]+/?$`)

// ValidTarget reports whether locator is an acceptable profile page URL.
func ValidTarget(locator string) bool {
	return targetPattern.MatchString(locator)
}
