package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/url"
)

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// frontendRedirect appends query parameters to the frontend landing URL.
func frontendRedirect(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + params.Encode()
	}
	q := u.Query()
	for k, v := range params {
		for _, value := range v {
			q.Add(k, value)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
