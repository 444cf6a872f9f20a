package rfc6797

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedHeader is matched (errors.Is) by every parse failure.
var ErrMalformedHeader = errors.New("malformed Strict-Transport-Security header")

// MalformedHeaderError describes why a header value was rejected.
type MalformedHeaderError struct {
	Header string
	Reason string
	// Byte offset of the syntax error or of the offending directive.
	// It is -1 when the error is not tied to a position (missing max-age).
	Offset int
}

func (e *MalformedHeaderError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedHeader, e.Reason)
	}
	return fmt.Sprintf("%s: %s (offset %d)", ErrMalformedHeader, e.Reason, e.Offset)
}

func (e *MalformedHeaderError) Unwrap() error {
	return ErrMalformedHeader
}

func malformed(header string, offset int, reason string) error {
	return &MalformedHeaderError{Header: header, Reason: reason, Offset: offset}
}

// Policy is the result of successfully parsing an STS header field value.
type Policy struct {
	// Lifetime of the policy in seconds. Zero means "forget this host".
	MaxAge uint64
	// Whether the includeSubDomains directive was asserted.
	IncludeSubDomains bool
	// Lower-cased names of the directives that were ignored.
	Unrecognized []string
}

// Duration returns the max-age as a time.Duration, saturating on overflow.
func (p Policy) Duration() time.Duration {
	if p.MaxAge > uint64(math.MaxInt64/int64(time.Second)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(p.MaxAge) * time.Second
}

// String returns the canonical header value for the policy.
// Unrecognized directives are not part of it.
func (p Policy) String() string {
	if p.IncludeSubDomains {
		return fmt.Sprintf("max-age=%d; includeSubDomains", p.MaxAge)
	}
	return fmt.Sprintf("max-age=%d", p.MaxAge)
}

// ParseHeader parses the value of a Strict-Transport-Security header field.
// Any deviation from the grammar rejects the whole value with a
// *MalformedHeaderError; unrecognized but well-formed directives are ignored.
//
// ParseHeader holds no state and is safe for concurrent use.
func ParseHeader(header string) (Policy, error) {
	directives, err := parseDirectives(header)
	if err != nil {
		return Policy{}, err
	}
	return evaluate(header, directives)
}
