// Package enrich maps the assets of an SPF record to the ASN metadata of
// the addresses behind them.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synqronlabs/spfasn/asn"
	"github.com/synqronlabs/spfasn/dns"
	"github.com/synqronlabs/spfasn/spf"
)

// NoARecord is recorded for an include: domain that does not resolve.
const NoARecord = "No valid A record exists"

// DefaultQueryTimeout bounds every DNS and registry query.
const DefaultQueryTimeout = 5 * time.Second

// Entry is either registry metadata or a failure note.
type Entry struct {
	Metadata *asn.Metadata
	Failure  string
}

// Failed reports whether the entry holds a failure note.
func (e Entry) Failed() bool {
	return e.Metadata == nil
}

// MarshalJSON encodes the metadata object, or the failure note as a plain
// JSON string.
func (e Entry) MarshalJSON() ([]byte, error) {
	var v any = e.Metadata
	if e.Failed() {
		v = e.Failure
	}

	// Registry names such as "AT&T" are written unescaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Result maps asset identifiers to their entries.
type Result map[string]Entry

// Enricher looks up ASN metadata for SPF assets.
type Enricher struct {
	resolver dns.Resolver
	registry asn.Lookuper
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithWorkers sets how many assets are enriched concurrently. Values below
// 2 keep enrichment sequential.
func WithWorkers(n int) Option {
	return func(e *Enricher) {
		e.workers = n
	}
}

// WithQueryTimeout bounds each individual DNS or registry query.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		e.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// New returns an Enricher resolving include: domains with resolver and
// querying registry for address metadata.
func New(resolver dns.Resolver, registry asn.Lookuper, opts ...Option) *Enricher {
	e := &Enricher{
		resolver: resolver,
		registry: registry,
		workers:  1,
		timeout:  DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// slot holds the outcome for one mechanism.
type slot struct {
	key   string
	entry Entry
	set   bool
	err   error
}

// Enrich resolves every ip4, ip6 and include mechanism of mechs. Other
// kinds are skipped.
//
// An include: domain without an A record is stored as NoARecord and does
// not stop enrichment. A registry failure does: no result is returned.
// When the same identifier occurs more than once, the entry of the last
// occurrence in mechs is kept, regardless of worker count.
func (e *Enricher) Enrich(ctx context.Context, mechs []spf.Mechanism) (Result, error) {
	slots := make([]slot, len(mechs))

	if e.workers == 1 {
		for i, m := range mechs {
			slots[i] = e.enrichOne(ctx, m)
			if slots[i].err != nil {
				return nil, slots[i].err
			}
		}
	} else {
		// Plain errgroup without a derived context: one asset failing
		// never cancels lookups already running for its siblings.
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i, m := range mechs {
			g.Go(func() error {
				slots[i] = e.enrichOne(ctx, m)
				return slots[i].err
			})
		}
		if err := g.Wait(); err != nil {
			for _, s := range slots {
				if s.err != nil {
					return nil, s.err
				}
			}
			return nil, err
		}
	}

	result := make(Result, len(mechs))
	for _, s := range slots {
		if s.set {
			result[s.key] = s.entry
		}
	}
	return result, nil
}

func (e *Enricher) enrichOne(ctx context.Context, m spf.Mechanism) slot {
	switch m.Kind {
	case spf.KindIP4, spf.KindIP6:
		key := m.Identifier()
		ip := net.ParseIP(key)
		if ip == nil {
			return slot{err: fmt.Errorf("%w: %s: invalid address %q", asn.ErrLookupFailed, m.Token, key)}
		}
		md, err := e.lookup(ctx, ip)
		if err != nil {
			return slot{err: fmt.Errorf("%s: %w", m.Token, err)}
		}
		e.logger.Debug("enriched address",
			slog.String("asset", key),
			slog.String("asn", md.ASN))
		return slot{key: key, entry: Entry{Metadata: md}, set: true}

	case spf.KindInclude:
		key := m.Identifier()
		ip, err := e.resolve(ctx, key)
		if errors.Is(err, spf.ErrUnresolvableHost) {
			e.logger.Debug("include has no address",
				slog.String("asset", key),
				slog.Any("error", err))
			return slot{key: key, entry: Entry{Failure: NoARecord}, set: true}
		}
		if err != nil {
			return slot{err: err}
		}
		md, err := e.lookup(ctx, ip)
		if err != nil {
			return slot{err: fmt.Errorf("%s (%s): %w", m.Token, ip, err)}
		}
		e.logger.Debug("enriched include",
			slog.String("asset", key),
			slog.String("ip", ip.String()),
			slog.String("asn", md.ASN))
		return slot{key: key, entry: Entry{Metadata: md}, set: true}
	}

	e.logger.Debug("skipping mechanism", slog.String("token", m.Token), slog.String("kind", string(m.Kind)))
	return slot{}
}

func (e *Enricher) resolve(ctx context.Context, host string) (net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return spf.ResolveHost(ctx, e.resolver, host)
}

func (e *Enricher) lookup(ctx context.Context, ip net.IP) (*asn.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	md, err := e.registry.Lookup(ctx, ip)
	if err == nil && md == nil {
		return nil, fmt.Errorf("%w: %s: empty response", asn.ErrLookupFailed, ip)
	}
	return md, err
}
