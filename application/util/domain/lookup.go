// Package domain resolves host names to addresses.
package domain

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var ErrDomainNotFound = errors.New("domain not found")

type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

type mapLookuper struct {
	set map[string][]netip.Addr
	mu  sync.RWMutex
}

var _ Lookuper = (*mapLookuper)(nil)

// NewMapLookuper creates a static lookuper. Domains are matched case-insensitively.
// set is copied.
func NewMapLookuper(set map[string][]netip.Addr) *mapLookuper {
	clone := make(map[string][]netip.Addr, len(set))
	for domain, addrs := range set {
		clone[strings.ToLower(domain)] = slices.Clone(addrs)
	}
	return &mapLookuper{set: clone}
}

func (m *mapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addrs, ok := m.set[strings.ToLower(domain)]
	if !ok {
		return nil, errors.Wrap(ErrDomainNotFound, domain)
	}
	return slices.Clone(addrs), nil
}

func (m *mapLookuper) Set(domain string, addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.set[strings.ToLower(domain)] = slices.Clone(addrs)
}

func (m *mapLookuper) Del(domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.set, strings.ToLower(domain))
}

type resolverLookuper struct {
	resolver *net.Resolver
}

var _ Lookuper = (*resolverLookuper)(nil)

// NewResolverLookuper looks domains up through r.
// A nil r uses [net.DefaultResolver].
func NewResolverLookuper(r *net.Resolver) *resolverLookuper {
	if r == nil {
		r = net.DefaultResolver
	}
	return &resolverLookuper{resolver: r}
}

func (l *resolverLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	addrs, err := l.resolver.LookupNetIP(ctx, "ip", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrap(ErrDomainNotFound, domain)
		}
		return nil, errors.Wrap(err, "resolving domain")
	}

	for i, addr := range addrs {
		addrs[i] = addr.Unmap()
	}

	return addrs, nil
}

type chainLookuper []Lookuper

// Chain tries each lookuper in order, moving on only when a domain is not found.
func Chain(lookupers ...Lookuper) Lookuper { return chainLookuper(lookupers) }

func (c chainLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	for _, l := range c {
		addrs, err := l.LookupIP(ctx, domain)
		if errors.Is(err, ErrDomainNotFound) {
			continue
		}
		return addrs, err
	}
	return nil, errors.Wrap(ErrDomainNotFound, domain)
}
