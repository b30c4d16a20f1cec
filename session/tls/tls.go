// Package tls layers TLS over a [transport.Conn] dialed by another dialer.
//
// The record layer and the handshake are done by crypto/tls,
// only the plumbing between it and the transport interfaces lives here.
package tls

import (
	"context"
	cryptotls "crypto/tls"
	"crypto/x509"

	"nano-get/transport"

	"github.com/pkg/errors"
)

type Options struct {
	// RootCAs verifies server certificates. Nil uses the host's root set.
	RootCAs *x509.CertPool

	InsecureSkipVerify bool

	// MinVersion defaults to TLS 1.2 when zero.
	MinVersion uint16
}

type Dialer struct {
	inner transport.ConnDialer
	opts  Options
}

var _ transport.ConnDialer = (*Dialer)(nil)

// NewDialer returns a dialer which runs a client handshake on every conn inner dials.
func NewDialer(inner transport.ConnDialer, opts Options) *Dialer {
	if opts.MinVersion == 0 {
		opts.MinVersion = cryptotls.VersionTLS12
	}
	return &Dialer{inner: inner, opts: opts}
}

// Dial dials addr with the inner dialer and completes a handshake over it.
// The host part of addr is used for SNI and certificate verification.
// ctx bounds both the dial and the handshake.
func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	host, _, err := transport.SplitAddr(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "splitting address %q", addr.String())
	}

	raw, err := d.inner.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	tc := cryptotls.Client(transport.ToNetConn(raw), d.config(host))
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, errors.Wrapf(transport.TranslateNetError(err), "tls handshake with %s", addr.String())
	}

	return transport.FromNetConn(tc, raw.RemoteAddr().Protocol()), nil
}

func (d *Dialer) config(serverName string) *cryptotls.Config {
	return &cryptotls.Config{
		ServerName:         serverName,
		RootCAs:            d.opts.RootCAs,
		InsecureSkipVerify: d.opts.InsecureSkipVerify,
		MinVersion:         d.opts.MinVersion,
	}
}
