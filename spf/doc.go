// Package spf fetches a domain's SPF policy and extracts the network assets
// it authorizes.
//
// The extraction is deliberately loose: a record is split on single spaces
// and every token containing one of the mechanism prefixes (ip4:, ip6:, ptr:,
// include:, a:, mx:, exists:) anywhere in it is kept. No RFC 7208 evaluation
// takes place; qualifiers and modifiers such as -all or redirect= are
// dropped.
//
// Basic Usage:
//
//	resolver := dns.NewResolver(dns.ResolverConfig{
//	    Nameservers: []string{"8.8.8.8:53"},
//	})
//
//	record, err := spf.LookupRecord(ctx, resolver, "example.com")
//	if errors.Is(err, spf.ErrNoRecord) {
//	    // Domain publishes no SPF policy
//	}
//
//	for _, m := range spf.ExtractAssets(record.Text) {
//	    fmt.Println(m.Kind, m.Value)
//	}
//
// References:
//   - RFC 7208: Sender Policy Framework (SPF)
package spf
