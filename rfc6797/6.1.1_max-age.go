package rfc6797

import (
	"errors"
	"math"
	"strconv"
)

const maxAgeDirective = "max-age"

// §  6.1.1.  The max-age Directive
// §
// §     The REQUIRED "max-age" directive specifies the number of seconds,
// §     after the reception of the STS header field, during which the UA
// §     regards the host (from whom the message was received) as a Known
// §     HSTS Host.
// §
// §     The syntax of the max-age directive's REQUIRED value (after
// §     quoted-string unescaping, if necessary) is defined as:
// §
// §       max-age-value = delta-seconds
// §
// §       delta-seconds = <1*DIGIT, defined in [RFC2616], Section 3.3.2>
// §
// §        NOTE:  A max-age value of zero (i.e., "max-age=0") signals the UA
// §               to cease regarding the host as a Known HSTS Host, including
// §               the includeSubDomains directive (if asserted for that HSTS
// §               Host).
func maxAgeValue(header string, d directive) (uint64, error) {
	if !d.hasValue {
		return 0, malformed(header, d.offset, "max-age directive requires a value")
	}
	seconds, ok := deltaSeconds(d.value)
	if !ok {
		return 0, malformed(header, d.offset, "invalid value for max-age directive")
	}
	return seconds, nil
}

// §  If a cache receives a delta-seconds value greater than the greatest
// §  integer it can represent, or if any of its subsequent calculations
// §  overflows, the cache MUST consider the value to be 2147483648 (2^31)
// §  or the greatest positive integer it can conveniently represent.
//
// The same rule (RFC 9111, 1.2.2) is applied here: overflow saturates.
func deltaSeconds(value string) (uint64, bool) {
	if value == "" {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}
	seconds, err := strconv.ParseUint(value, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxUint64, true
	}
	return seconds, err == nil
}
