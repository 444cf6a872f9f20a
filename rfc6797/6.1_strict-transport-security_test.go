package rfc6797

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSuccess(t *testing.T, header string, expectedMaxAge uint64, expectedIncludeSubdomains bool) {
	t.Helper()
	policy, err := ParseHeader(header)
	require.NoError(t, err, "Could not parse header %q", header)
	assert.Equal(t, expectedMaxAge, policy.MaxAge, "Did not correctly parse maxAge of %q", header)
	assert.Equal(t, expectedIncludeSubdomains, policy.IncludeSubDomains,
		"Did not correctly parse presence/absence of includeSubdomains in %q", header)
}

func testFailure(t *testing.T, header string) {
	t.Helper()
	_, err := ParseHeader(header)
	require.Error(t, err, "Parsed invalid header: %q", header)
	assert.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestParseSuccess(t *testing.T) {
	testSuccess(t, "max-age=100", 100, false)
	testSuccess(t, "max-age  =100", 100, false)
	testSuccess(t, " max-age=100", 100, false)
	testSuccess(t, "max-age = 100 ", 100, false)
	testSuccess(t, `max-age = "100" `, 100, false)
	testSuccess(t, `max-age="100"`, 100, false)
	testSuccess(t, ` max-age ="100" `, 100, false)
	testSuccess(t, "\tmax-age\t=\t\"100\"\t", 100, false)
	testSuccess(t, "max-age  =       100             ", 100, false)

	testSuccess(t, "maX-aGe=100", 100, false)
	testSuccess(t, "MAX-age  =100", 100, false)
	testSuccess(t, "max-AGE=100", 100, false)
	testSuccess(t, "Max-Age = 100 ", 100, false)
	testSuccess(t, "MAX-AGE = 100 ", 100, false)

	testSuccess(t, "max-age=100;includeSubdomains", 100, true)
	testSuccess(t, "max-age=100\t; includeSubdomains", 100, true)
	testSuccess(t, " max-age=100; includeSubdomains", 100, true)
	testSuccess(t, "max-age = 100 ; includeSubdomains", 100, true)
	testSuccess(t, "max-age  =       100             ; includeSubdomains", 100, true)

	testSuccess(t, "maX-aGe=100; includeSUBDOMAINS", 100, true)
	testSuccess(t, "MAX-age  =100; includeSubDomains", 100, true)
	testSuccess(t, "max-AGE=100; iNcLuDeSuBdoMaInS", 100, true)
	testSuccess(t, "Max-Age = 100; includesubdomains ", 100, true)
	testSuccess(t, "INCLUDESUBDOMAINS;MaX-AgE = 100 ", 100, true)

	// the directive list may end with an empty directive
	testSuccess(t, "max-age=100;includeSubdomains;", 100, true)

	// extended syntax is allowed, but ignored
	testSuccess(t, "max-age=100 ; includesubdomainsSomeStuff", 100, false)
	testSuccess(t, "\r\n\t\t    \tcompletelyUnrelated = foobar; max-age= 34520103"+
		"\t \t; alsoUnrelated;asIsThis;\tincludeSubdomains\t\t \t", 34520103, true)
	testSuccess(t, `max-age=100; unrelated="quoted \"thingy\""`, 100, false)
}

func TestParseFailure(t *testing.T) {
	// invalid max-ages
	testFailure(t, "max-age")
	testFailure(t, "max-age ")
	testFailure(t, "max-age=p")
	testFailure(t, "max-age=*1p2")
	testFailure(t, "max-age=.20032")
	testFailure(t, "max-age=!20032")
	testFailure(t, "max-age==20032")

	// invalid headers
	testFailure(t, "foobar")
	testFailure(t, "maxage=100")
	testFailure(t, "maxa-ge=100")
	testFailure(t, "max-ag=100")
	testFailure(t, "includesubdomains")
	testFailure(t, ";")
	testFailure(t, `max-age="100`)
	// the comma makes the first max-age non-conforming, leaving no max-age at all
	testFailure(t, "max-age=100, max-age=200; includeSubdomains")
	testFailure(t, "max-age=100 includesubdomains")
	testFailure(t, "max-age=100 bar foo")
	testFailure(t, "max-age=100randomstuffhere")
	// all directives must appear only once
	testFailure(t, "max-age=100; max-age=200")
	testFailure(t, "includeSubdomains; max-age=200; includeSubdomains")
	testFailure(t, "max-age=200; includeSubdomains; includeSubdomains")
	// includeSubdomains is valueless
	testFailure(t, "max-age=100; includeSubdomains=unexpected")
	// LWS must have at least one space or horizontal tab after CRLF
	testFailure(t, "\r\nmax-age=200")
}

func TestParseEdgeCases(t *testing.T) {
	testFailure(t, "")
	testFailure(t, "max-age=")
	testFailure(t, `max-age=""`)
	testFailure(t, "max-age=+5")
	testFailure(t, "max-age=-5")
	testFailure(t, "max-age=1.5")
	testFailure(t, "max-age=0x10")
	testFailure(t, "max-age=100; includeSubdomains=")
	testFailure(t, "max-age=100; =value")
	testFailure(t, "max-age=100\n")
	testFailure(t, "max-age=100\r\n")
	testFailure(t, `max-age=100; unrelated="bad \`)
	testFailure(t, "max-age=100; unrelated=\"ctl \x01\"")

	testSuccess(t, "max-age=0", 0, false)
	testSuccess(t, "max-age=0; includeSubDomains", 0, true)
	testSuccess(t, "max-age=00100", 100, false)
	testSuccess(t, ";;max-age=5;;", 5, false)
	testSuccess(t, "max-age=5;\r\n includeSubDomains", 5, true)
	testSuccess(t, "max-age=\"1\\0\"", 10, false)
	testSuccess(t, "max-age=18446744073709551615", math.MaxUint64, false)
}

func TestParseSaturatesOverflow(t *testing.T) {
	policy, err := ParseHeader("max-age=99999999999999999999999999999; includeSubDomains")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), policy.MaxAge)
	assert.True(t, policy.IncludeSubDomains)
}

func TestQuotedAndUnquotedAreEquivalent(t *testing.T) {
	for _, value := range []string{"0", "1", "100", "31536000", "99999999999999999999999"} {
		quoted, err := ParseHeader(`max-age="` + value + `"`)
		require.NoError(t, err)
		unquoted, err := ParseHeader("max-age=" + value)
		require.NoError(t, err)
		assert.Equal(t, unquoted, quoted, value)
	}
}

func TestCaseInsensitivity(t *testing.T) {
	headers := []string{
		"max-age=100",
		"max-age=100; includeSubDomains",
		"includesubdomains; max-age=7",
		"max-age=100; includeSubdomains=unexpected",
		"max-age=100; max-age=200",
		"includesubdomains",
	}
	casings := []func(string) string{
		strings.ToUpper,
		strings.ToLower,
		alternateCase,
	}
	for _, header := range headers {
		expected, expectedErr := ParseHeader(header)
		for _, casing := range casings {
			permuted := casing(header)
			policy, err := ParseHeader(permuted)
			assert.Equal(t, expectedErr == nil, err == nil, permuted)
			assert.Equal(t, expected.MaxAge, policy.MaxAge, permuted)
			assert.Equal(t, expected.IncludeSubDomains, policy.IncludeSubDomains, permuted)
		}
	}
}

func alternateCase(s string) string {
	b := []byte(s)
	for i := range b {
		if i%2 == 0 {
			b[i] = byte(strings.ToUpper(string(b[i]))[0])
		}
	}
	return string(b)
}

func TestCanonicalSerializationIsIdempotent(t *testing.T) {
	for _, header := range []string{
		"max-age=100",
		" MAX-AGE = \"31536000\" ; includeSubDomains ; preload",
		"includesubdomains;max-age=0",
		"max-age=99999999999999999999999",
	} {
		policy, err := ParseHeader(header)
		require.NoError(t, err)
		reparsed, err := ParseHeader(policy.String())
		require.NoError(t, err)
		assert.Equal(t, policy.MaxAge, reparsed.MaxAge)
		assert.Equal(t, policy.IncludeSubDomains, reparsed.IncludeSubDomains)
		assert.Empty(t, reparsed.Unrecognized)
		assert.Equal(t, policy.String(), reparsed.String())
	}
}

func TestUnrecognizedDirectivesAreReported(t *testing.T) {
	policy, err := ParseHeader("completelyUnrelated = foobar; max-age=1; alsoUnrelated;Preload")
	require.NoError(t, err)
	assert.Equal(t, []string{"completelyunrelated", "alsounrelated", "preload"}, policy.Unrecognized)
}

func TestMalformedHeaderError(t *testing.T) {
	_, err := ParseHeader("max-age=100 bar")
	var malformedErr *MalformedHeaderError
	require.True(t, errors.As(err, &malformedErr))
	assert.Equal(t, "max-age=100 bar", malformedErr.Header)
	assert.Equal(t, 12, malformedErr.Offset)

	_, err = ParseHeader("includeSubDomains")
	require.True(t, errors.As(err, &malformedErr))
	assert.Equal(t, -1, malformedErr.Offset)
	assert.Contains(t, err.Error(), "max-age")

	_, err = ParseHeader("max-age=1; max-age=2")
	require.True(t, errors.As(err, &malformedErr))
	assert.Equal(t, 11, malformedErr.Offset)
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "max-age=5", Policy{MaxAge: 5}.String())
	assert.Equal(t, "max-age=5; includeSubDomains", Policy{MaxAge: 5, IncludeSubDomains: true}.String())
}

func TestParseHeaderConcurrently(t *testing.T) {
	headers := []string{
		"max-age=100",
		" max-age=100; includeSubdomains ",
		`max-age="8012"; includeSubdomains`,
		"max-age=99999999999999999999999999999",
		`max-age=100; unrelated="quoted \"thingy\""`,
		"max-age=100 bar foo",
		"includeSubdomains; max-age=200; includeSubdomains",
		`max-age="100`,
		"\r\nmax-age=200",
		"",
	}
	type result struct {
		policy Policy
		err    error
	}
	expected := make([]result, len(headers))
	for i, header := range headers {
		policy, err := ParseHeader(header)
		expected[i] = result{policy, err}
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				for i, header := range headers {
					policy, err := ParseHeader(header)
					assert.Equal(t, expected[i].policy, policy, header)
					assert.Equal(t, expected[i].err, err, header)
				}
			}
		}()
	}
	wg.Wait()
}
