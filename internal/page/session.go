package page

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// NewSessionJar returns a cookie jar pre-loaded with the cookies of a Cookie header
// value ("name=value; other=value"), scoped to each of urls.
// An empty header yields an empty jar.
func NewSessionJar(cookieHeader string, urls []string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	cookieHeader = strings.TrimSpace(cookieHeader)
	if cookieHeader == "" {
		return jar, nil
	}

	cookies, err := http.ParseCookie(cookieHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session cookies: %w", err)
	}

	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid cookie URL %q", raw)
		}
		scoped := make([]*http.Cookie, len(cookies))
		for i, c := range cookies {
			scoped[i] = &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"}
		}
		jar.SetCookies(u, scoped)
	}
	return jar, nil
}
