package dns

import (
	"context"
	"fmt"
	"net"
	"slices"
)

// MockResolver is a Resolver used for testing.
// Set DNS records in the fields, which map FQDNs (with trailing dot) to values.
//
// A name that appears in none of the record maps does not exist and yields
// ErrDNSNotFound. A name that exists but has no records of the queried type
// yields ErrDNSNoData.
type MockResolver struct {
	A    map[string][]string
	AAAA map[string][]string
	TXT  map[string][]string

	// Fail contains records that will return a temporary error (SERVFAIL).
	// Format: "type name", e.g. "txt example.com." where type is lowercase.
	Fail []string

	// Timeout contains records that will time out, same format as Fail.
	Timeout []string

	// AllAuthentic sets the value of Authentic in responses.
	AllAuthentic bool
}

var _ Resolver = MockResolver{}

// mockReq represents a mock DNS request.
type mockReq struct {
	Type string // E.g. "txt", "a", "aaaa"
	Name string // FQDN with trailing dot
}

func (mr mockReq) String() string {
	return mr.Type + " " + mr.Name
}

// ensureFQDN ensures the name ends with a dot.
func ensureFQDN(name string) string {
	if len(name) == 0 || name[len(name)-1] != '.' {
		return name + "."
	}
	return name
}

// exists reports whether any record of any type is set for fqdn.
func (r MockResolver) exists(fqdn string) bool {
	_, a := r.A[fqdn]
	_, aaaa := r.AAAA[fqdn]
	_, txt := r.TXT[fqdn]
	return a || aaaa || txt
}

// check returns the configured failure for mr, if any.
func (r MockResolver) check(ctx context.Context, mr mockReq) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if slices.Contains(r.Fail, mr.String()) {
		return fmt.Errorf("%w: %s", ErrDNSServFail, mr)
	}
	if slices.Contains(r.Timeout, mr.String()) {
		return fmt.Errorf("%w: %s", ErrDNSTimeout, mr)
	}
	if !r.exists(mr.Name) {
		return fmt.Errorf("%w: %s", ErrDNSNotFound, mr.Name)
	}
	return nil
}

// LookupTXT returns TXT records for the given domain.
func (r MockResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	mr := mockReq{"txt", ensureFQDN(name)}
	result := Result[string]{Authentic: r.AllAuthentic}

	if err := r.check(ctx, mr); err != nil {
		return result, err
	}

	records := r.TXT[mr.Name]
	if len(records) == 0 {
		return result, fmt.Errorf("%w: %s", ErrDNSNoData, mr)
	}

	result.Records = records
	return result, nil
}

// LookupIP returns A and/or AAAA records for the given host.
func (r MockResolver) LookupIP(ctx context.Context, network, host string) (Result[net.IP], error) {
	fqdn := ensureFQDN(host)
	result := Result[net.IP]{Authentic: r.AllAuthentic}

	var ips []net.IP
	if network != "ip6" {
		if err := r.check(ctx, mockReq{"a", fqdn}); err != nil {
			return result, err
		}
		for _, ip := range r.A[fqdn] {
			ips = append(ips, net.ParseIP(ip))
		}
	}
	if network != "ip4" {
		if err := r.check(ctx, mockReq{"aaaa", fqdn}); err != nil {
			return result, err
		}
		for _, ip := range r.AAAA[fqdn] {
			ips = append(ips, net.ParseIP(ip))
		}
	}

	ips = filterNetwork(network, ips)
	if len(ips) == 0 {
		return result, fmt.Errorf("%w: %s %s", ErrDNSNoData, network, fqdn)
	}

	result.Records = ips
	return result, nil
}
