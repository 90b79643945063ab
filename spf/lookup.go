package spf

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/synqronlabs/spfasn/dns"
)

// Lookup errors.
var (
	ErrDomainNotFound   = errors.New("spf: domain does not exist")
	ErrNoRecord         = errors.New("spf: no SPF record")
	ErrLookupFailed     = errors.New("spf: DNS lookup failed")
	ErrUnresolvableHost = errors.New("spf: host has no A record")
)

// versionMarker selects the SPF string among a domain's TXT records.
const versionMarker = "spf1"

// Record is the SPF TXT string published by a domain.
type Record struct {
	Domain string
	Text   string

	// Authentic is true when the TXT answer was DNSSEC-validated by the
	// upstream resolver.
	Authentic bool
}

// LookupRecord fetches the TXT records of domain and returns the one
// containing "spf1". When several do, the last one in answer order wins.
//
// ErrDomainNotFound is returned for NXDOMAIN, ErrNoRecord when the domain
// exists but publishes no SPF string. Other DNS failures wrap both
// ErrLookupFailed and the dns error, so dns.IsTemporary applies.
func LookupRecord(ctx context.Context, resolver dns.Resolver, domain string) (*Record, error) {
	result, err := resolver.LookupTXT(ctx, domain)
	switch {
	case dns.IsNotFound(err):
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
	case dns.IsNoData(err):
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, domain)
	case err != nil:
		return nil, fmt.Errorf("%w: TXT %s: %w", ErrLookupFailed, domain, err)
	}

	text, ok := selectRecord(result.Records)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, domain)
	}

	return &Record{Domain: domain, Text: text, Authentic: result.Authentic}, nil
}

// selectRecord returns the last TXT string containing the version marker.
func selectRecord(txts []string) (string, bool) {
	var text string
	found := false
	for _, txt := range txts {
		if strings.Contains(txt, versionMarker) {
			text = txt
			found = true
		}
	}
	return text, found
}

// ResolveHost returns the first IPv4 address of host. An IPv4 literal is
// returned as is without a query. Every failure, including timeouts, is
// reported as ErrUnresolvableHost.
func ResolveHost(ctx context.Context, resolver dns.Resolver, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		return ip.To4(), nil
	}

	result, err := resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvableHost, host, err)
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvableHost, host)
	}
	return result.Records[0], nil
}
