// Package dns provides the DNS lookups needed to fetch SPF policies and to
// resolve the hosts they reference.
//
// Two implementations of Resolver are provided: DNSResolver talks to
// nameservers directly using github.com/miekg/dns and can tell an
// NXDOMAIN apart from an empty answer, StdResolver goes through the
// standard library. MockResolver serves canned answers for tests.
package dns

import (
	"context"
	"errors"
	"net"
)

// DNS lookup errors.
var (
	ErrDNSNotFound = errors.New("dns: no such domain")
	ErrDNSNoData   = errors.New("dns: no records of requested type")
	ErrDNSTimeout  = errors.New("dns: query timed out")
	ErrDNSServFail = errors.New("dns: server failure")
	ErrDNSRefused  = errors.New("dns: query refused")
	ErrDNSBogus    = errors.New("dns: DNSSEC validation failed")
)

// Result holds the records returned by a lookup.
type Result[T any] struct {
	Records []T

	// Authentic is true when the response carried the AD bit.
	Authentic bool
}

// Resolver is the lookup capability used by the spf and asn packages.
type Resolver interface {
	// LookupTXT returns the TXT strings published at name. Multi-string
	// records are joined into one string.
	LookupTXT(ctx context.Context, name string) (Result[string], error)

	// LookupIP returns addresses for host. network is "ip", "ip4" or "ip6".
	LookupIP(ctx context.Context, network, host string) (Result[net.IP], error)
}

// IsNotFound reports whether err is an NXDOMAIN.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDNSNotFound)
}

// IsNoData reports whether the name exists but has no records of the
// requested type.
func IsNoData(err error) bool {
	return errors.Is(err, ErrDNSNoData)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrDNSTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func IsServFail(err error) bool {
	return errors.Is(err, ErrDNSServFail)
}

// IsTemporary reports whether retrying the query later could succeed.
func IsTemporary(err error) bool {
	return IsTimeout(err) || IsServFail(err)
}

// filterNetwork keeps the addresses matching network.
func filterNetwork(network string, ips []net.IP) []net.IP {
	if network == "ip" || network == "" {
		return ips
	}
	var filtered []net.IP
	for _, ip := range ips {
		if network == "ip4" && ip.To4() != nil {
			filtered = append(filtered, ip)
		} else if network == "ip6" && ip.To4() == nil {
			filtered = append(filtered, ip)
		}
	}
	return filtered
}
