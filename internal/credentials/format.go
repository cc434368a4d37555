package credentials

import (
	"fmt"
	"regexp"
)

// Format describes the expected shape of a decrypted credential:
// a fixed prefix followed by a fixed number of alphanumeric characters.
type Format struct {
	Prefix     string
	BodyLength int
	pattern    *regexp.Regexp
}

// NewFormat compiles the token pattern for prefix and body length
func NewFormat(prefix string, bodyLength int) (*Format, error) {
	if bodyLength <= 0 {
		return nil, fmt.Errorf("credential body length must be positive, got %d", bodyLength)
	}
	pattern, err := regexp.Compile(fmt.Sprintf("^%s[A-Za-z0-9]{%d}$", regexp.QuoteMeta(prefix), bodyLength))
	if err != nil {
		return nil, fmt.Errorf("compile credential pattern: %w", err)
	}
	return &Format{Prefix: prefix, BodyLength: bodyLength, pattern: pattern}, nil
}

// Matches reports whether key has the expected shape
func (f *Format) Matches(key string) bool {
	return f.pattern.MatchString(key)
}
