package topology

import (
	"net"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"conf-compose/pkg/model"
)

// ParseEndpoint splits an address:port string. IPv6 addresses must be bracketed.
func ParseEndpoint(s string) (model.Endpoint, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return model.Endpoint{}, oops.Code(CodeFormat).With("endpoint", s).
			Wrapf(ErrFormat, "endpoint %q is not address:port", s)
	}
	if host == "" {
		return model.Endpoint{}, oops.Code(CodeFormat).With("endpoint", s).
			Wrapf(ErrFormat, "endpoint %q has no address", s)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return model.Endpoint{}, oops.Code(CodeFormat).With("endpoint", s).
			Wrapf(ErrFormat, "endpoint %q has invalid port %q", s, port)
	}
	return model.Endpoint{Addr: host, Port: int(p)}, nil
}

// FormatEndpoint joins host and port, bracketing IPv6 hosts.
func FormatEndpoint(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
