package riotapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After header.
const DefaultRetryAfter = 10 * time.Second

// RiotAPIError represents a custom error type for Riot API responses
type RiotAPIError struct {
	StatusCode int
	Message    string
	Headers    http.Header
	URL        string
}

// Error implements the error interface for RiotAPIError
func (e *RiotAPIError) Error() string {
	return fmt.Sprintf("Riot API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the API answered 404 for the requested resource.
func IsNotFound(err error) bool {
	var apiErr *RiotAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// retryAfter reads the Retry-After header as whole seconds.
func retryAfter(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return DefaultRetryAfter
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
