package httputil

import (
	"net/http"
	"net/http/cookiejar"
	"time"
)

const DefaultTimeout = 30 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
// A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// NewSessionClient is NewClient with a cookie jar, so session and anti-forgery
// cookies set by the backend are replayed on later requests.
func NewSessionClient(timeout time.Duration) *http.Client {
	c := NewClient(timeout)
	// cookiejar.New only fails on a bad PublicSuffixList, and we pass none.
	jar, _ := cookiejar.New(nil)
	c.Jar = jar
	return c
}
