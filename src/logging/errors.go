package logging

import (
	"errors"
	"strings"
)

// IsRateLimit reports whether err looks like an upstream 429.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var se interface{ StatusCode() int }
	if errors.As(err, &se) && se.StatusCode() == 429 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}
