package spf

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/synqronlabs/spfasn/dns"
)

const (
	// DefaultMaxDepth bounds include: nesting.
	DefaultMaxDepth = 10

	// DefaultMaxLookups bounds the TXT lookups of one expansion. RFC 7208
	// section 4.6.4 allows at most 10 DNS-querying terms per evaluation.
	DefaultMaxLookups = 10
)

// ExpandOptions configures Expand.
type ExpandOptions struct {
	// MaxDepth is the deepest include: level followed. Default is
	// DefaultMaxDepth.
	MaxDepth int

	// MaxLookups is the total number of included records fetched. Default
	// is DefaultMaxLookups.
	MaxLookups int

	Logger *slog.Logger
}

// Expand extracts the assets of record and, for every include: mechanism,
// the assets of the included domain's own record, placed right after the
// include. Included domains without a record, include loops, includes past
// MaxDepth and includes met after MaxLookups fetches are logged and
// skipped. Other DNS failures abort.
func Expand(ctx context.Context, resolver dns.Resolver, record *Record, opts ExpandOptions) ([]Mechanism, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxLookups <= 0 {
		opts.MaxLookups = DefaultMaxLookups
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	x := expander{
		resolver: resolver,
		opts:     opts,
		path:     map[string]struct{}{normalizeDomain(record.Domain): {}},
	}
	return x.expand(ctx, record, 0)
}

type expander struct {
	resolver dns.Resolver
	opts     ExpandOptions

	// domains on the current include chain, for loop detection
	path map[string]struct{}

	lookups int
}

func (x *expander) expand(ctx context.Context, record *Record, depth int) ([]Mechanism, error) {
	var out []Mechanism
	for _, m := range ExtractAssets(record.Text) {
		out = append(out, m)
		if m.Kind != KindInclude {
			continue
		}

		child := normalizeDomain(m.Value)
		logger := x.opts.Logger.With(
			slog.String("domain", record.Domain),
			slog.String("include", m.Value),
			slog.Int("depth", depth+1),
		)

		if depth+1 > x.opts.MaxDepth {
			logger.Warn("include depth limit reached, not following")
			continue
		}
		if _, ok := x.path[child]; ok {
			logger.Warn("include loop detected, not following")
			continue
		}

		if x.lookups >= x.opts.MaxLookups {
			logger.Warn("include lookup limit reached, not following",
				slog.Int("limit", x.opts.MaxLookups))
			continue
		}
		x.lookups++

		rec, err := LookupRecord(ctx, x.resolver, m.Value)
		if errors.Is(err, ErrDomainNotFound) || errors.Is(err, ErrNoRecord) {
			logger.Info("included domain has no SPF record", slog.Any("error", err))
			continue
		}
		if err != nil {
			return nil, err
		}

		x.path[child] = struct{}{}
		nested, err := x.expand(ctx, rec, depth+1)
		delete(x.path, child)
		if err != nil {
			return nil, err
		}
		logger.Debug("followed include", slog.Int("assets", len(nested)))
		out = append(out, nested...)
	}
	return out, nil
}

func normalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(domain), ".")
}
