package transport

import (
	"net"
	"strconv"
)

type Protocol string

const (
	TCP  Protocol = "tcp"
	Pipe Protocol = "pipe"
)

type Addr interface {
	Protocol() Protocol
	String() string
}

// HostPortAddr names a peer by host and port. Host may be a domain or an IP literal.
type HostPortAddr struct {
	Host string
	Port uint16
}

var _ Addr = HostPortAddr{}

func (a HostPortAddr) Protocol() Protocol { return TCP }

func (a HostPortAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

// SplitAddr returns the host and port of addr.
func SplitAddr(addr Addr) (host string, port uint16, err error) {
	if hp, ok := addr.(HostPortAddr); ok {
		return hp.Host, hp.Port, nil
	}

	h, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", 0, err
	}
	port64, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return "", 0, err
	}
	return h, uint16(port64), nil
}
