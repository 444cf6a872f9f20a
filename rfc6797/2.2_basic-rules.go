package rfc6797

import "strings"

// The STS grammar is based on the generic grammar of RFC 2616, including
// "implied *LWS" between adjacent tokens and separators.
//
// §  2.2 Basic Rules
// §
// §         CHAR           = <any US-ASCII character (octets 0 - 127)>
// §         CTL            = <any US-ASCII control character
// §                          (octets 0 - 31) and DEL (127)>
// §         CR             = <US-ASCII CR, carriage return (13)>
// §         LF             = <US-ASCII LF, linefeed (10)>
// §         SP             = <US-ASCII SP, space (32)>
// §         HT             = <US-ASCII HT, horizontal-tab (9)>
// §
// §  HTTP/1.1 header field values can be folded onto multiple lines if the
// §  continuation line begins with a space or horizontal tab. All linear
// §  white space, including folding, has the same semantics as SP.
// §
// §         LWS            = [CRLF] 1*( SP | HT )

// parser is a cursor over a single header value.
// The first error stops all further progress.
type parser struct {
	header string
	pos    int
	err    *MalformedHeaderError
}

func (p *parser) fail(reason string) {
	if p.err == nil {
		p.err = &MalformedHeaderError{Header: p.header, Reason: reason, Offset: p.pos}
	}
}

func (p *parser) done() bool {
	return p.err != nil || p.pos >= len(p.header)
}

// accept advances past c if it is the next byte.
func (p *parser) accept(c byte) bool {
	if p.done() || p.header[p.pos] != c {
		return false
	}
	p.pos++
	return true
}

// lws consumes *LWS.
// A line break is only whitespace when followed by SP or HT.
func (p *parser) lws() {
	for !p.done() {
		switch p.header[p.pos] {
		case ' ', '\t':
			p.pos++
		case '\r':
			if !strings.HasPrefix(p.header[p.pos:], "\r\n") || p.pos+2 >= len(p.header) || !isBlank(p.header[p.pos+2]) {
				p.fail("line break not followed by whitespace")
				return
			}
			p.pos += 3
		case '\n':
			p.fail("bare line feed")
			return
		default:
			return
		}
	}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// §  Many HTTP/1.1 header field values consist of words separated by LWS
// §  or special characters. These special characters MUST be in a quoted
// §  string to be used within a parameter value.
// §
// §         token          = 1*<any CHAR except CTLs or separators>
// §         separators     = "(" | ")" | "<" | ">" | "@"
// §                        | "," | ";" | ":" | "\" | <">
// §                        | "/" | "[" | "]" | "?" | "="
// §                        | "{" | "}" | SP | HT
func isTokenChar(c byte) bool {
	if c <= ' ' || c >= 0x7f {
		return false
	}
	return !strings.ContainsRune(`()<>@,;:\"/[]?={}`, rune(c))
}

// token consumes *tokenchar and returns it; an empty result means no token.
func (p *parser) token() string {
	start := p.pos
	for !p.done() && isTokenChar(p.header[p.pos]) {
		p.pos++
	}
	return p.header[start:p.pos]
}

// §  A string of text is parsed as a single word if it is quoted using
// §  double-quote marks.
// §
// §         quoted-string  = ( <"> *(qdtext | quoted-pair ) <"> )
// §         qdtext         = <any TEXT except <">>
// §
// §  The backslash character ("\") MAY be used as a single-character
// §  quoting mechanism only within quoted-string and comment constructs.
// §
// §         quoted-pair    = "\" CHAR
//
// quotedString is called after the opening quote has been consumed.
// It returns the unescaped content.
func (p *parser) quotedString() string {
	var b strings.Builder
	for {
		if p.done() {
			p.fail("unterminated quoted-string")
			return ""
		}
		c := p.header[p.pos]
		switch {
		case c == '"':
			p.pos++
			return b.String()
		case c == '\\':
			if p.pos+1 >= len(p.header) || p.header[p.pos+1] > 0x7f {
				p.fail("invalid quoted-pair")
				return ""
			}
			b.WriteByte(p.header[p.pos+1])
			p.pos += 2
		case c == '\r' || c == '\n':
			start := p.pos
			p.lws()
			if p.err != nil {
				return ""
			}
			b.WriteString(p.header[start:p.pos])
		case isQuotedText(c):
			b.WriteByte(c)
			p.pos++
		default:
			p.fail("control character in quoted-string")
			return ""
		}
	}
}

// §         TEXT           = <any OCTET except CTLs,
// §                          but including LWS>
func isQuotedText(c byte) bool {
	if c == '\t' {
		return true
	}
	return c >= ' ' && c != 0x7f && c != '"' && c != '\\'
}
