// Package tcp dials plain TCP connections through the operating system's stack.
package tcp

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"time"

	"nano-get/application/util/domain"
	"nano-get/transport"

	"github.com/pkg/errors"
)

type Dialer struct {
	// Lookuper resolves domain names before dialing.
	// When nil, the system resolver is used.
	Lookuper domain.Lookuper

	// Timeout bounds each connect attempt. Zero means no limit besides the context.
	Timeout   time.Duration
	KeepAlive time.Duration
}

var _ transport.ConnDialer = (*Dialer)(nil)

// Dial connects to addr, trying every resolved address in order until one succeeds.
// Nagle's algorithm is disabled on the returned conn.
func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	host, port, err := transport.SplitAddr(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "splitting address %q", addr.String())
	}

	targets, err := d.resolve(ctx, host)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", host)
	}

	nd := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	portStr := strconv.FormatUint(uint64(port), 10)

	var lastErr error
	for _, target := range targets {
		nc, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(target, portStr))
		if err != nil {
			lastErr = classifyDialError(err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if tc, ok := nc.(*net.TCPConn); ok {
			if err := tc.SetNoDelay(true); err != nil {
				_ = nc.Close()
				return nil, errors.Wrap(err, "setting TCP_NODELAY")
			}
		}

		return transport.FromNetConn(nc, transport.TCP), nil
	}

	return nil, errors.Wrapf(lastErr, "dialing %s", addr.String())
}

func (d *Dialer) resolve(ctx context.Context, host string) ([]string, error) {
	if d.Lookuper == nil {
		return []string{host}, nil
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return []string{host}, nil
	}

	addrs, err := d.Lookuper.LookupIP(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, domain.ErrDomainNotFound
	}

	targets := make([]string, 0, len(addrs))
	for _, a := range addrs {
		targets = append(targets, a.String())
	}
	return targets, nil
}

func classifyDialError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return errors.Wrap(domain.ErrDomainNotFound, err.Error())
	}
	return transport.TranslateNetError(err)
}
