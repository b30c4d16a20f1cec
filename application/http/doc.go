// Package http implements the HTTP/1.x wire format for the client side:
// status lines, field lines and request encoding.
// Message semantics (framing, header lookup) live in package semantic.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
