// Package fastparser implements allocation-light scanners for the string
// forms used by the message model: RFC 3986 URI references and the interned
// HTTP method and status tables.
package fastparser

import (
	"fmt"
	"strings"
)

// URI holds the raw components of a parsed URI reference.
// Absent string components are empty; HasPort reports whether a port was present.
type URI struct {
	Scheme   string
	User     string
	Password string
	Host     string
	Port     int
	HasPort  bool
	Path     string
	Query    string
	Fragment string
}

// Parser scans a URI reference per RFC 3986 appendix B.
type Parser struct {
	data   string
	pos    int
	length int
}

// NewParser creates a new URI parser for the given input.
func NewParser(data string) *Parser {
	return &Parser{
		data:   data,
		pos:    0,
		length: len(data),
	}
}

// initParser initializes a parser in-place (stack-friendly, avoids heap alloc).
func initParser(p *Parser, data string) {
	p.data = data
	p.pos = 0
	p.length = len(data)
}

// ParseURI parses raw as a URI reference.
// Uses stack-allocated Parser to avoid heap allocation.
func ParseURI(raw string) (*URI, error) {
	var p Parser
	initParser(&p, raw)
	return p.ParseURI()
}

// ParseURI splits the input into scheme, authority, path, query and fragment.
// The path is returned exactly as written; an absent path is "".
func (p *Parser) ParseURI() (*URI, error) {
	u := &URI{}

	end := p.length
	if i := strings.IndexByte(p.data, '#'); i >= 0 {
		u.Fragment = p.data[i+1:]
		end = i
	}
	if i := strings.IndexByte(p.data[:end], '?'); i >= 0 {
		u.Query = p.data[i+1 : end]
		end = i
	}

	if n := p.scanScheme(end); n > 0 {
		u.Scheme = p.data[p.pos : p.pos+n]
		p.pos += n + 1 // skip ':'
	}

	if p.pos+1 < end && p.data[p.pos] == '/' && p.data[p.pos+1] == '/' {
		p.pos += 2
		start := p.pos
		for p.pos < end && p.data[p.pos] != '/' {
			p.pos++
		}
		if err := p.parseAuthority(p.data[start:p.pos], start, u); err != nil {
			return nil, err
		}
	}

	u.Path = p.data[p.pos:end]
	p.pos = p.length
	return u, nil
}

// scanScheme returns the length of a leading scheme (without ':'), or 0.
// scheme = ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )
func (p *Parser) scanScheme(end int) int {
	if p.pos >= end || !isAlpha(p.data[p.pos]) {
		return 0
	}
	for i := p.pos + 1; i < end; i++ {
		c := p.data[i]
		switch {
		case c == ':':
			return i - p.pos
		case isAlpha(c) || isDigit(c) || c == '+' || c == '-' || c == '.':
			continue
		default:
			return 0
		}
	}
	return 0
}

// parseAuthority splits "userinfo@host:port" into u. offset is the position of
// auth within the input, used for error reporting.
func (p *Parser) parseAuthority(auth string, offset int, u *URI) error {
	hostport := auth
	if at := strings.LastIndexByte(auth, '@'); at >= 0 {
		userinfo := auth[:at]
		hostport = auth[at+1:]
		offset += at + 1
		if colon := strings.IndexByte(userinfo, ':'); colon >= 0 {
			u.User = userinfo[:colon]
			u.Password = userinfo[colon+1:]
		} else {
			u.User = userinfo
		}
	}

	var port string
	hasPort := false
	if strings.HasPrefix(hostport, "[") {
		closing := strings.IndexByte(hostport, ']')
		if closing < 0 {
			return p.errorf(offset, "unterminated IPv6 literal in authority: %s", auth)
		}
		u.Host = hostport[:closing+1]
		rest := hostport[closing+1:]
		if rest != "" {
			if rest[0] != ':' {
				return p.errorf(offset+closing+1, "unexpected %q after IPv6 literal", rest)
			}
			port, hasPort = rest[1:], true
		}
	} else if colon := strings.LastIndexByte(hostport, ':'); colon >= 0 {
		u.Host = hostport[:colon]
		port, hasPort = hostport[colon+1:], true
		offset += colon + 1
	} else {
		u.Host = hostport
	}

	// "host:" with an empty port is allowed by RFC 3986 and means no port.
	if !hasPort || port == "" {
		return nil
	}
	n, ok := parsePort(port)
	if !ok {
		return p.errorf(offset, "invalid port %q", port)
	}
	u.Port = n
	u.HasPort = true
	return nil
}

// parsePort parses a decimal port in the range 0..65535.
func parsePort(s string) (int, bool) {
	if len(s) == 0 || len(s) > 5 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	if n > 65535 {
		return 0, false
	}
	return n, true
}

// TrimPort drops a trailing ":digits" suffix from a host. IPv6 literals keep
// their inner colons.
func TrimPort(host string) string {
	colon := strings.LastIndexByte(host, ':')
	if colon < 0 || colon == len(host)-1 {
		return host
	}
	if strings.HasPrefix(host, "[") && strings.IndexByte(host[colon:], ']') >= 0 {
		return host
	}
	if strings.Count(host, ":") > 1 && !strings.HasPrefix(host, "[") {
		return host // bare IPv6 address
	}
	for i := colon + 1; i < len(host); i++ {
		if !isDigit(host[i]) {
			return host
		}
	}
	return host[:colon]
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (p *Parser) errorf(pos int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("uri: parse error at position %d: %s", pos, msg)
}
