package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// ResolverConfig contains configuration for the DNS resolver.
type ResolverConfig struct {
	// Nameservers is a list of DNS servers to query (e.g., "8.8.8.8:53").
	// If empty, system resolvers from /etc/resolv.conf are used,
	// falling back to public DNS (8.8.8.8, 1.1.1.1).
	Nameservers []string

	// DNSSEC sets the DO bit on queries. The Authentic field in Result
	// reflects the AD bit of the upstream answer.
	DNSSEC bool

	// Timeout is the timeout for individual DNS queries. Default is 5 seconds.
	Timeout time.Duration

	// Retries is the number of retries for failed queries. Default is 2.
	Retries int
}

// DNSResolver implements the Resolver interface using github.com/miekg/dns.
type DNSResolver struct {
	config ResolverConfig
	client *mdns.Client
}

var _ Resolver = (*DNSResolver)(nil)

// NewResolver creates a new DNS resolver.
func NewResolver(config ResolverConfig) *DNSResolver {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 2
	}
	if len(config.Nameservers) == 0 {
		config.Nameservers = getSystemNameservers()
	} else {
		config.Nameservers = withPort(config.Nameservers)
	}

	return &DNSResolver{
		config: config,
		client: &mdns.Client{
			Timeout: config.Timeout,
		},
	}
}

// getSystemNameservers tries to get system DNS servers from resolv.conf.
func getSystemNameservers() []string {
	config, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		// Fallback to common public DNS servers
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		servers = append(servers, net.JoinHostPort(s, config.Port))
	}
	return servers
}

// withPort appends the default DNS port to servers given without one.
func withPort(servers []string) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		out = append(out, s)
	}
	return out
}

// query performs a DNS query with retries. A successful response with an
// empty answer section is returned as is; callers decide whether that is
// NODATA.
func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, bool, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), qtype)
	m.RecursionDesired = true

	if r.config.DNSSEC {
		m.SetEdns0(4096, true)
	}

	var lastErr error

	for i := 0; i <= r.config.Retries; i++ {
		for _, server := range r.config.Nameservers {
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, false, fmt.Errorf("%w: %s", ErrDNSTimeout, name)
				}
				return nil, false, ctx.Err()
			default:
			}

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					lastErr = fmt.Errorf("%w: %s via %s", ErrDNSTimeout, name, server)
				} else {
					lastErr = fmt.Errorf("dns query failed: %w", err)
				}
				continue
			}

			authentic := r.config.DNSSEC && resp.AuthenticatedData

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, authentic, nil
			case mdns.RcodeNameError:
				return nil, authentic, fmt.Errorf("%w: %s", ErrDNSNotFound, name)
			case mdns.RcodeServerFailure:
				// SERVFAIL might indicate DNSSEC validation failure
				if r.config.DNSSEC {
					lastErr = ErrDNSBogus
				} else {
					lastErr = ErrDNSServFail
				}
				continue
			case mdns.RcodeRefused:
				lastErr = ErrDNSRefused
				continue
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %s", mdns.RcodeToString[resp.Rcode])
				continue
			}
		}
	}

	if lastErr != nil {
		return nil, false, lastErr
	}
	return nil, false, ErrDNSServFail
}

// LookupTXT retrieves TXT records for the given domain.
func (r *DNSResolver) LookupTXT(ctx context.Context, name string) (Result[string], error) {
	resp, authentic, err := r.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		return Result[string]{Authentic: authentic}, err
	}

	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			// Long TXT records are split into several character strings.
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}

	if len(records) == 0 {
		return Result[string]{Authentic: authentic}, fmt.Errorf("%w: TXT %s", ErrDNSNoData, name)
	}

	return Result[string]{Records: records, Authentic: authentic}, nil
}

// LookupIP retrieves A and/or AAAA records for the given host.
func (r *DNSResolver) LookupIP(ctx context.Context, network, host string) (Result[net.IP], error) {
	var qtypes []uint16
	switch network {
	case "ip4":
		qtypes = []uint16{mdns.TypeA}
	case "ip6":
		qtypes = []uint16{mdns.TypeAAAA}
	case "ip", "":
		qtypes = []uint16{mdns.TypeA, mdns.TypeAAAA}
	default:
		return Result[net.IP]{}, fmt.Errorf("dns: unknown network %q", network)
	}

	var ips []net.IP
	authentic := true
	var lastErr error

	for _, qtype := range qtypes {
		resp, auth, err := r.query(ctx, host, qtype)
		if err != nil {
			if lastErr == nil || IsNotFound(err) {
				lastErr = err
			}
			continue
		}
		authentic = authentic && auth
		for _, rr := range resp.Answer {
			switch v := rr.(type) {
			case *mdns.A:
				ips = append(ips, v.A)
			case *mdns.AAAA:
				ips = append(ips, v.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr != nil {
			return Result[net.IP]{}, lastErr
		}
		return Result[net.IP]{}, fmt.Errorf("%w: %s %s", ErrDNSNoData, network, host)
	}

	return Result[net.IP]{Records: ips, Authentic: authentic}, nil
}

// Config returns the resolver's current configuration.
func (r *DNSResolver) Config() ResolverConfig {
	return r.config
}
