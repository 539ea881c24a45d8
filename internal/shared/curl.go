// Utilities for importing credentials from a browser "Copy as cURL" command.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRe = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	curlURLRe    = regexp.MustCompile(`'(https?://[^']+)'|"(https?://[^"]+)"|(?:^|\s)(https?://\S+)`)
	userPathRe   = regexp.MustCompile(`/users/(\d+)(?:/|$)`)
	userURNRe    = regexp.MustCompile(`soundcloud:users:(\d+)`)
)

// CurlRequest represents the URL, headers and cookies of a parsed cURL command.
//
// Header names are stored lower-cased.
type CurlRequest struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts the request.
func ParseCurlFile(filepath string) (*CurlRequest, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// ParseCurlCommand parses a cURL command string and extracts the request.
func ParseCurlCommand(curlCmd string) (*CurlRequest, error) {
	curlCmd = strings.NewReplacer("\\\r\n", " ", "\\\n", " ").Replace(curlCmd)

	req := &CurlRequest{Headers: make(map[string]string)}

	if m := curlURLRe.FindStringSubmatch(curlCmd); m != nil {
		req.URL = firstGroup(m)
	}

	for _, match := range curlHeaderRe.FindAllStringSubmatch(curlCmd, -1) {
		parts := strings.SplitN(firstGroup(match), ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		if key == "cookie" {
			if req.Cookie == "" {
				req.Cookie = value
			}
			continue
		}
		req.Headers[key] = value
	}

	if m := curlCookieRe.FindStringSubmatch(curlCmd); m != nil {
		req.Cookie = firstGroup(m)
	}

	if len(req.Headers) == 0 && req.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return req, nil
}

// Header returns the value of the named header, ignoring case.
func (c *CurlRequest) Header(name string) string {
	return c.Headers[strings.ToLower(name)]
}

// CookieValue returns the value of the named cookie.
func (c *CurlRequest) CookieValue(name string) string {
	for _, pair := range strings.Split(c.Cookie, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k == name {
			return v
		}
	}
	return ""
}

// ApplyCurl copies the credentials of a browser request to the SoundCloud API into the soundcloud section.
//
// Fields the request does not carry keep their current values.
func (c *Config) ApplyCurl(req *CurlRequest) error {
	sc := &c.SoundCloud

	if auth := req.Header("Authorization"); auth != "" {
		token, found := strings.CutPrefix(auth, "OAuth ")
		if !found {
			return fmt.Errorf("%w: unsupported authorization scheme in %q", ErrInvalidInput, auth)
		}
		sc.OAuthToken = token
	}
	if ua := req.Header("User-Agent"); ua != "" {
		sc.UserAgent = ua
	}
	if dd := req.Header("x-datadome-clientid"); dd != "" {
		sc.DatadomeClientID = dd
	} else if dd := req.CookieValue("datadome"); dd != "" {
		sc.DatadomeClientID = dd
	}

	if req.URL != "" {
		u, err := url.Parse(req.URL)
		if err != nil {
			return fmt.Errorf("%w: request url: %v", ErrInvalidInput, err)
		}
		if strings.HasPrefix(u.Host, "api") && strings.HasSuffix(u.Host, "soundcloud.com") {
			sc.BaseURL = u.Scheme + "://" + u.Host
		}

		q := u.Query()
		for key, target := range map[string]*string{
			"client_id":   &sc.ClientID,
			"app_version": &sc.AppVersion,
			"app_locale":  &sc.AppLocale,
		} {
			if v := q.Get(key); v != "" {
				*target = v
			}
		}

		if m := userPathRe.FindStringSubmatch(u.Path); m != nil {
			sc.UserID, _ = strconv.Atoi(m[1])
		} else if m := userURNRe.FindStringSubmatch(q.Get("user_urn")); m != nil {
			sc.UserID, _ = strconv.Atoi(m[1])
		}
	}

	if sc.OAuthToken == "" && sc.ClientID == "" {
		return fmt.Errorf("%w: curl command carries neither an OAuth token nor a client_id", ErrMissingCredentials)
	}
	return nil
}
