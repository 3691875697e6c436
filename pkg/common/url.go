package common

import (
	"fmt"
	"net/url"
)

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url (%s): %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url must be absolute: %s", raw)
	}
	return u, nil
}

// JoinURL appends the given path elements to base and returns the result.
func JoinURL(base string, elem ...string) (string, error) {
	u, err := parseURL(base)
	if err != nil {
		return "", err
	}
	u.Path, err = url.JoinPath(u.Path, elem...)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
