package session

import (
	"net/url"
	"strings"
)

// fragmentKey names the prefix parameter in a map URL fragment.
const fragmentKey = "city"

// FormatFragment encodes prefix as a URL fragment, "#city=<escaped>".
func FormatFragment(prefix string) string {
	return "#" + fragmentKey + "=" + url.QueryEscape(prefix)
}

// ParseFragment extracts the prefix from a fragment with or without the
// leading '#'. Anything unparsable yields "".
func ParseFragment(fragment string) string {
	fragment = strings.TrimPrefix(fragment, "#")
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return ""
	}
	return values.Get(fragmentKey)
}
