// Package ipchecker extracts client IP addresses from HTTP requests and
// checks them against a trusted subnet. The internal stats endpoint uses it
// to keep totals reachable only from inside the deployment network.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates whether a request's client IP belongs to the
// configured trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates an IPChecker for the given subnet in CIDR notation. An empty
// subnet string produces a disabled checker: Check then rejects everything
// and IsTrustedSubnetEmpty reports true.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("error parsing the trusted subnet CIDR: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// Check reports whether the IP belongs to the trusted subnet. Without a
// configured subnet it always reports false.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP from the request, preferring the
// X-Real-IP header, then the first X-Forwarded-For entry, then RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		return net.ParseIP(first), nil
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("error splitting the remote address: %w", err)
	}

	return net.ParseIP(host), nil
}

// IsTrustedSubnetEmpty reports whether the checker was built without a subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}
