package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// StdResolver implements the Resolver interface using the standard library net package.
// The standard library reports NXDOMAIN and empty answers alike, so both
// come back as ErrDNSNotFound. Authentic is always false.
type StdResolver struct {
	resolver *net.Resolver
}

var _ Resolver = (*StdResolver)(nil)

// NewStdResolver creates a resolver using the standard library.
func NewStdResolver() *StdResolver {
	return &StdResolver{
		resolver: net.DefaultResolver,
	}
}

// LookupTXT retrieves TXT records using the standard library.
func (r *StdResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	name = strings.TrimSuffix(name, ".")

	records, err := r.resolver.LookupTXT(ctx, name)
	if err != nil {
		return Result[string]{}, convertError(err)
	}

	if len(records) == 0 {
		return Result[string]{}, fmt.Errorf("%w: TXT %s", ErrDNSNoData, name)
	}

	return Result[string]{Records: records}, nil
}

// LookupIP retrieves A and/or AAAA records using the standard library.
func (r *StdResolver) LookupIP(ctx context.Context, network, host string) (Result[net.IP], error) {
	host = strings.TrimSuffix(host, ".")
	if network == "" {
		network = "ip"
	}

	ips, err := r.resolver.LookupIP(ctx, network, host)
	if err != nil {
		return Result[net.IP]{}, convertError(err)
	}

	ips = filterNetwork(network, ips)
	if len(ips) == 0 {
		return Result[net.IP]{}, fmt.Errorf("%w: %s %s", ErrDNSNoData, network, host)
	}

	return Result[net.IP]{Records: ips}, nil
}

// convertError converts standard library DNS errors to package errors.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return fmt.Errorf("%w: %s", ErrDNSNotFound, dnsErr.Name)
		}
		if dnsErr.IsTimeout {
			return fmt.Errorf("%w: %s", ErrDNSTimeout, dnsErr.Name)
		}
		if dnsErr.IsTemporary {
			return fmt.Errorf("%w: %s", ErrDNSServFail, dnsErr.Name)
		}
	}

	return fmt.Errorf("dns lookup failed: %w", err)
}
