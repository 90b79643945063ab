// Package cmd implements the spfasn command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/mitchellh/colorstring"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/synqronlabs/spfasn/asn"
	"github.com/synqronlabs/spfasn/config"
	"github.com/synqronlabs/spfasn/dns"
	"github.com/synqronlabs/spfasn/enrich"
	"github.com/synqronlabs/spfasn/logging"
	"github.com/synqronlabs/spfasn/report"
	"github.com/synqronlabs/spfasn/spf"
	"github.com/synqronlabs/spfasn/utils"
)

// Options injects collaborators into the command. Zero values select the
// production implementations.
type Options struct {
	// Resolver replaces the resolver built from configuration.
	Resolver dns.Resolver

	// Registry replaces the ASN backend built from configuration.
	Registry asn.Lookuper

	// FS is used for the config file and the log file.
	FS afero.Fs
}

// reportedError marks an error whose diagnostic was already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// asnSwitch backs both --asn and --no-asn so that the flag given last
// decides whether enrichment runs.
type asnSwitch struct {
	enabled *bool
	value   bool
}

func (s *asnSwitch) Set(v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*s.enabled = b == s.value
	return nil
}

func (s *asnSwitch) String() string {
	if s.enabled == nil {
		return "false"
	}
	return strconv.FormatBool(*s.enabled == s.value)
}

func (s *asnSwitch) Type() string { return "bool" }

// NewRootCommand builds the spfasn command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}

	var (
		configFile string
		asnEnabled bool
		noColor    bool
	)

	v := config.New(opts.FS)

	root := &cobra.Command{
		Use:   config.Name + " <domain>",
		Short: "List the network assets authorized by a domain's SPF record",
		Long: `spfasn resolves the SPF record of a domain and prints the assets it
authorizes: IP blocks, included domains and hostnames. With --asn each IP
block and included domain is enriched with the owning autonomous system.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := diagnostics{w: cmd.ErrOrStderr(), color: !noColor && os.Getenv("NO_COLOR") == ""}

			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed(config.KeyASN) || cmd.Flags().Changed(flagNoASN) {
				cfg.ASN = asnEnabled
			}

			logger, err := logging.New(logging.Options{
				Debug:  cfg.Debug,
				Stderr: cmd.ErrOrStderr(),
				FS:     opts.FS,
				File:   cfg.LogFile,
			})
			if err != nil {
				return err
			}
			defer logger.Close()

			if cfg.File != "" {
				logger.Debug("using configuration file", "file", cfg.File)
			}

			r := &runner{
				cfg:    cfg,
				opts:   opts,
				logger: logger,
				out:    cmd.OutOrStdout(),
				diag:   d,
			}
			return r.run(cmd.Context(), args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./spfasn.yaml, $HOME/.spfasn/spfasn.yaml or /etc/spfasn/spfasn.yaml)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored diagnostics")
	flags.String(config.KeyLogFile, "", "append JSON logs to this file")
	flags.Bool(config.KeyDebug, false, "enable debug logging")

	local := root.Flags()
	local.VarPF(&asnSwitch{enabled: &asnEnabled, value: true}, config.KeyASN, "a", "enable ASN enumeration").NoOptDefVal = "true"
	local.VarPF(&asnSwitch{enabled: &asnEnabled, value: false}, flagNoASN, "", "disable ASN enumeration").NoOptDefVal = "true"
	local.String(config.KeyFormat, string(report.FormatJSON), "ASN output format: json or msgpack")
	local.Bool(config.KeyGroupByOrg, false, "group the listed assets by organizational domain")
	local.Bool(config.KeyFollowIncludes, false, "recursively list the assets of include: domains")
	local.Int(config.KeyMaxDepth, spf.DefaultMaxDepth, "maximum include: depth followed with --follow-includes")
	local.Int(config.KeyMaxLookups, spf.DefaultMaxLookups, "maximum include: lookups per run with --follow-includes")
	local.String(config.KeyBackend, config.BackendCymru, "ASN registry backend: cymru, whois or rdap")
	local.String(config.KeyRDAPURL, asn.DefaultRDAPBaseURL, "RDAP bootstrap base URL")
	local.StringSlice(config.KeyNameservers, nil, "DNS servers as host[:port] (default from /etc/resolv.conf)")
	local.Bool(config.KeySystemResolver, false, "use the operating system resolver instead of querying nameservers directly")
	local.Bool(config.KeyDNSSEC, false, "request DNSSEC validation and warn when the SPF record is not authenticated")
	local.Duration(config.KeyTimeout, enrich.DefaultQueryTimeout, "per-query timeout")
	local.Int(config.KeyRetries, 2, "DNS retries per query")
	local.Int(config.KeyWorkers, 1, "parallel enrichment workers")

	bindFlags(v, root)

	root.AddCommand(newVersionCommand())
	return root
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	// Errors only occur for nil flag sets.
	_ = v.BindPFlags(cmd.PersistentFlags())
	_ = v.BindPFlags(cmd.Flags())
}

const flagNoASN = "no-asn"

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCommand(Options{})
	return run(root)
}

func run(root *cobra.Command) int {
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		noColor, _ := root.PersistentFlags().GetBool("no-color")
		d := diagnostics{w: root.ErrOrStderr(), color: !noColor && os.Getenv("NO_COLOR") == ""}
		d.errorf("%v", err)
	}
	return 1
}

type runner struct {
	cfg    *config.Config
	opts   Options
	logger *logging.Logger
	out    io.Writer
	diag   diagnostics
}

func (r *runner) run(ctx context.Context, arg string) error {
	domain, err := utils.NormalizeDomain(arg)
	if err != nil {
		return err
	}

	logger := r.logger.With("domain", domain)
	logger.Debug("looking up SPF record",
		"org_domain", utils.OrganizationalDomain(domain),
		"asn", r.cfg.ASN,
		"follow_includes", r.cfg.FollowIncludes,
	)

	resolver := r.resolver(logger)

	record, err := spf.LookupRecord(ctx, resolver, domain)
	switch {
	case errors.Is(err, spf.ErrDomainNotFound):
		return r.fail(err, "Couldn't resolve the domain %s", arg)
	case errors.Is(err, spf.ErrNoRecord):
		return r.fail(err, "%s doesn't support SPF record", arg)
	case dns.IsTemporary(err):
		return r.fail(err, "SPF lookup for %s failed temporarily, try again later: %v", arg, err)
	case err != nil:
		return r.fail(err, "SPF lookup for %s failed: %v", arg, err)
	}
	logger.Debug("found SPF record", "record", record.Text, "authentic", record.Authentic)
	if r.cfg.DNSSEC && !record.Authentic {
		logger.Warn("SPF record is not DNSSEC-authenticated")
	}

	var mechs []spf.Mechanism
	if r.cfg.FollowIncludes {
		mechs, err = spf.Expand(ctx, resolver, record, spf.ExpandOptions{
			MaxDepth:   r.cfg.MaxDepth,
			MaxLookups: r.cfg.MaxLookups,
			Logger:     logger,
		})
		if err != nil {
			return r.fail(err, "Following includes of %s failed: %v", arg, err)
		}
	} else {
		mechs = spf.ExtractAssets(record.Text)
	}
	logger.Debug("extracted assets", "count", len(mechs))

	if !r.cfg.ASN {
		if r.cfg.GroupByOrg {
			return report.PlainGrouped(r.out, mechs)
		}
		return report.Plain(r.out, mechs)
	}

	format, err := report.ParseFormat(r.cfg.Format)
	if err != nil {
		return err
	}

	registry, err := r.registry()
	if err != nil {
		return r.fail(err, "Connecting to the %s ASN service failed: %v", r.cfg.Backend, err)
	}
	if c, ok := registry.(io.Closer); ok {
		defer c.Close()
	}

	enricher := enrich.New(resolver, registry,
		enrich.WithWorkers(r.cfg.Workers),
		enrich.WithQueryTimeout(r.cfg.Timeout),
		enrich.WithLogger(logger),
	)
	result, err := enricher.Enrich(ctx, mechs)
	if err != nil {
		return r.fail(err, "ASN lookup for %s failed: %v", arg, err)
	}

	return report.Write(r.out, format, result)
}

func (r *runner) resolver(logger *slog.Logger) dns.Resolver {
	if r.opts.Resolver != nil {
		return r.opts.Resolver
	}
	if r.cfg.SystemResolver {
		logger.Debug("using the system resolver")
		return dns.NewStdResolver()
	}
	resolver := dns.NewResolver(dns.ResolverConfig{
		Nameservers: r.cfg.Nameservers,
		DNSSEC:      r.cfg.DNSSEC,
		Timeout:     r.cfg.Timeout,
		Retries:     r.cfg.Retries,
	})
	logger.Debug("using nameservers", "nameservers", resolver.Config().Nameservers)
	return resolver
}

func (r *runner) registry() (asn.Lookuper, error) {
	if r.opts.Registry != nil {
		return r.opts.Registry, nil
	}
	switch r.cfg.Backend {
	case config.BackendRDAP:
		return asn.NewRDAPClient(r.cfg.RDAPURL, nil), nil
	case config.BackendWhois:
		c, err := asn.NewWhoisClient()
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := asn.NewCymruClient()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// fail prints a diagnostic and returns err marked as reported. The error
// record with its trace is only logged when logging was asked for, so a
// plain run prints the diagnostic once.
func (r *runner) fail(err error, format string, args ...any) error {
	r.diag.errorf(format, args...)
	if r.cfg.Debug || r.cfg.LogFile != "" {
		r.logger.Error("run failed", err)
	}
	if r.cfg.LogFile != "" {
		fmt.Fprintf(r.diag.w, "    details in %s, run %s\n", r.cfg.LogFile, r.logger.RunID())
	}
	return &reportedError{err: err}
}

// diagnostics prints user-facing messages to stderr.
type diagnostics struct {
	w     io.Writer
	color bool
}

func (d diagnostics) errorf(format string, args ...any) {
	c := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !d.color,
		Reset:   true,
	}
	// The message is kept out of Color so brackets in it are not parsed.
	fmt.Fprintln(d.w, c.Color("[bold][red]")+"[+] "+fmt.Sprintf(format, args...)+c.Color("[reset]"))
}
