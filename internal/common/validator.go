package common

import (
	"net/url"
)

// IsValidURL reports whether rawurl parses as an absolute request URL. Used
// to reject malformed connector endpoints and definition sources before any
// request is attempted.
func IsValidURL(rawurl string) bool {
	parsed, err := url.ParseRequestURI(rawurl)
	if err != nil {
		return false
	}
	return len(parsed.Scheme) > 0 && len(parsed.Host) > 0
}
