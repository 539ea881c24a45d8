package services

import "net/url"

// NextOffset extracts the "offset" query parameter from a next-page URL.
//
// Returns "" when href is empty, cannot be parsed or carries no offset.
func NextOffset(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("offset")
}
