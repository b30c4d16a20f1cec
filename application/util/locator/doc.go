// Package locator parses http(s) URLs into the parameters needed to reach a server:
// scheme, host, port and the request target (path plus query).
//
// It is a deliberately small subset of a URI parser.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986#section-3
//
// - https://datatracker.ietf.org/doc/html/rfc9110#section-4.2
package locator
