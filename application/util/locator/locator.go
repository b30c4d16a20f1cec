package locator

import (
	"net"
	"strconv"
	"strings"

	"nano-get/application/util/rule"

	"github.com/pkg/errors"
)

var ErrMalformedLocator = errors.New("locator is malformed")

type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// DefaultPort returns the port used when a locator doesn't specify one.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-4.2
func (s Scheme) DefaultPort() uint16 {
	switch s {
	case SchemeHTTP:
		return 80
	case SchemeHTTPS:
		return 443
	}
	return 0
}

// Locator is a parsed http(s) URL.
type Locator struct {
	Scheme Scheme
	// Host never has brackets, even for IPv6 literals.
	Host string
	Port uint16
	// Path includes query, exactly as given. It's never empty.
	Path string
}

// Parse parses raw in form of scheme://host[:port][/path][?query][#fragment].
// Errors returned are always wrapping [ErrMalformedLocator].
func Parse(raw string) (Locator, error) {
	loc, err := parse(raw)
	if err != nil {
		return Locator{}, errors.Wrapf(ErrMalformedLocator, "%q: %s", raw, err)
	}
	return loc, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(raw string) Locator {
	loc, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

func parse(raw string) (Locator, error) {
	for i := 0; i < len(raw); i++ {
		if rule.IsCTL(raw[i]) || raw[i] == rule.SP {
			return Locator{}, errors.New("contains whitespace or control byte")
		}
	}

	scheme, rest, err := cutScheme(raw)
	if err != nil {
		return Locator{}, errors.Wrap(err, "getting scheme")
	}

	// Fragment is never sent to the server.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-4.2.5
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		rest = rest[:idx]
	}

	authority, path := rest, "/"
	if idx := strings.IndexAny(rest, "/?"); idx >= 0 {
		authority, path = rest[:idx], rest[idx:]
		if path[0] == '?' {
			// An empty path is equivalent to "/".
			path = "/" + path
		}
	}

	host, port, err := parseAuthority(authority, scheme)
	if err != nil {
		return Locator{}, errors.Wrap(err, "parsing authority")
	}

	return Locator{Scheme: scheme, Host: host, Port: port, Path: path}, nil
}

func cutScheme(raw string) (Scheme, string, error) {
	before, after, found := strings.Cut(raw, "://")
	if !found {
		return "", "", errors.New("scheme not found")
	}

	switch scheme := Scheme(strings.ToLower(before)); scheme {
	case SchemeHTTP, SchemeHTTPS:
		return scheme, after, nil
	default:
		return "", "", errors.Errorf("unsupported scheme: %q", before)
	}
}

func parseAuthority(raw string, scheme Scheme) (host string, port uint16, err error) {
	if strings.Contains(raw, "@") {
		return "", 0, errors.New("userinfo is not supported")
	}

	host, portPart, err := getHostPort(raw)
	if err != nil {
		return "", 0, err
	}

	if host == "" {
		return "", 0, errors.New("host is empty")
	}

	port, hasPort, err := parsePort(portPart)
	if err != nil {
		return "", 0, errors.Wrap(err, "parsing port")
	}
	if !hasPort {
		port = scheme.DefaultPort()
	}

	return strings.ToLower(host), port, nil
}

func getHostPort(raw string) (host, portPart string, err error) {
	if strings.HasPrefix(raw, "[") {
		// This is IP Literal.
		idx := strings.LastIndex(raw, "]")
		if idx < 0 {
			return "", "", errors.New("missing ']' in IP Literal")
		}

		host, portPart = raw[1:idx], raw[idx+1:]
		if net.ParseIP(host) == nil {
			return "", "", errors.Errorf("invalid IP literal: %q", host)
		}
		return host, portPart, nil
	}

	// ipv4 or reg-name.
	host = raw
	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		host, portPart = raw[:idx], raw[idx:]
	}
	return host, portPart, nil
}

func parsePort(s string) (port uint16, hasPort bool, err error) {
	if s == "" {
		return 0, false, nil
	}

	if s[0] != ':' {
		return 0, false, errors.New("colon delimiter not found on port")
	}

	s = s[1:]
	if s == "" {
		// "host:" is allowed and means the default port.
		// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
		return 0, false, nil
	}

	for _, c := range s {
		if !rule.IsDigit(c) {
			return 0, false, errors.Errorf("port is not a number: %q", s)
		}
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to parse uint")
	}
	if n == 0 {
		return 0, false, errors.New("port 0 is not dialable")
	}

	return uint16(n), true, nil
}

func (l Locator) IsTLS() bool { return l.Scheme == SchemeHTTPS }

// HostWithPort returns an address suitable for dialing.
func (l Locator) HostWithPort() string {
	return net.JoinHostPort(l.Host, strconv.FormatUint(uint64(l.Port), 10))
}

// HostHeader returns a value for the Host header field.
// Port is omitted when it's the default one for the scheme.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-7.2
func (l Locator) HostHeader() string {
	if l.Port == l.Scheme.DefaultPort() {
		if strings.Contains(l.Host, ":") {
			return "[" + l.Host + "]"
		}
		return l.Host
	}
	return l.HostWithPort()
}

func (l Locator) String() string {
	return string(l.Scheme) + "://" + l.HostHeader() + l.Path
}
