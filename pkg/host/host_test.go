package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Example.COM":         "example.com",
		"example.com:8443":    "example.com",
		"example.com.":        "example.com",
		"bücher.example":      "xn--bcher-kva.example",
		"127.0.0.1:80":        "127.0.0.1",
		"[::1]:443":           "::1",
		"[2001:DB8::1]":       "2001:db8::1",
		"2001:db8::1":         "2001:db8::1",
		"sub.Example.com:443": "sub.example.com",
		"My_Host.example.com": "my_host.example.com",
		"_dmarc.example.com.": "_dmarc.example.com",
	}
	for in, expected := range cases {
		out, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, out, in)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, in := range []string{"", ":443", "."} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrEmptyHost, in)
	}
}

func TestIsIPAddress(t *testing.T) {
	for _, ip := range []string{"127.0.0.1", "::1", "[::1]", "fe80::1%eth0", "2001:db8::1"} {
		assert.True(t, IsIPAddress(ip), ip)
	}
	for _, name := range []string{"example.com", "localhost", "1.2.3", "256.1.1.1", ""} {
		assert.False(t, IsIPAddress(name), name)
	}
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"b.example.com", "example.com", "com"}, Ancestors("a.b.example.com"))
	assert.Equal(t, []string{"com"}, Ancestors("example.com"))
	assert.Empty(t, Ancestors("localhost"))
	assert.Empty(t, Ancestors("trailing."))
}

func TestIsSubdomainOf(t *testing.T) {
	assert.True(t, IsSubdomainOf("chart.apis.google.com", "chart.apis.google.com"))
	assert.True(t, IsSubdomainOf("a.chart.apis.google.com", "chart.apis.google.com"))
	assert.False(t, IsSubdomainOf("xchart.apis.google.com", "chart.apis.google.com"))
}

func TestNormalizeInvalid(t *testing.T) {
	_, err := Normalize("-bad.example")
	assert.ErrorIs(t, err, ErrInvalidHost)
}
