// Package config loads run settings from flags, environment and an optional
// YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/synqronlabs/spfasn/report"
)

const (
	Name      = "spfasn"
	EnvPrefix = "SPFASN"

	BackendCymru = "cymru"
	BackendWhois = "whois"
	BackendRDAP  = "rdap"
)

// Keys shared by flags, environment variables and the config file.
const (
	KeyASN            = "asn"
	KeyFormat         = "format"
	KeyGroupByOrg     = "group-by-org"
	KeyFollowIncludes = "follow-includes"
	KeyMaxDepth       = "max-depth"
	KeyMaxLookups     = "max-lookups"
	KeyBackend        = "backend"
	KeyRDAPURL        = "rdap-url"
	KeyNameservers    = "nameserver"
	KeyDNSSEC         = "dnssec"
	KeySystemResolver = "system-resolver"
	KeyTimeout        = "timeout"
	KeyRetries        = "retries"
	KeyWorkers        = "workers"
	KeyLogFile        = "log-file"
	KeyDebug          = "debug"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds the settings for one run.
type Config struct {
	ASN            bool          `mapstructure:"asn"`
	Format         string        `mapstructure:"format"`
	GroupByOrg     bool          `mapstructure:"group-by-org"`
	FollowIncludes bool          `mapstructure:"follow-includes"`
	MaxDepth       int           `mapstructure:"max-depth"`
	MaxLookups     int           `mapstructure:"max-lookups"`
	Backend        string        `mapstructure:"backend"`
	RDAPURL        string        `mapstructure:"rdap-url"`
	Nameservers    []string      `mapstructure:"nameserver"`
	DNSSEC         bool          `mapstructure:"dnssec"`
	SystemResolver bool          `mapstructure:"system-resolver"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	Workers        int           `mapstructure:"workers"`
	LogFile        string        `mapstructure:"log-file"`
	Debug          bool          `mapstructure:"debug"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// New returns a viper instance reading from fs, with defaults and SPFASN_*
// environment variables registered. A nil fs means the OS filesystem.
func New(fs afero.Fs) *viper.Viper {
	v := viper.New()
	if fs != nil {
		v.SetFs(fs)
	}

	v.SetDefault(KeyASN, false)
	v.SetDefault(KeyFormat, string(report.FormatJSON))
	v.SetDefault(KeyGroupByOrg, false)
	v.SetDefault(KeyFollowIncludes, false)
	v.SetDefault(KeyMaxDepth, 10)
	v.SetDefault(KeyMaxLookups, 10)
	v.SetDefault(KeyBackend, BackendCymru)
	v.SetDefault(KeyRDAPURL, "https://rdap.org")
	v.SetDefault(KeyNameservers, []string{})
	v.SetDefault(KeyDNSSEC, false)
	v.SetDefault(KeySystemResolver, false)
	v.SetDefault(KeyTimeout, 5*time.Second)
	v.SetDefault(KeyRetries, 2)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file into v and returns the validated settings. An
// explicit path must exist; otherwise spfasn.yaml is searched for in the
// working directory, $HOME/.spfasn/ and /etc/spfasn/, and its absence is not
// an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("$HOME/.%s/", Name))
		v.AddConfigPath(fmt.Sprintf("/etc/%s/", Name))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Backend {
	case BackendCymru, BackendWhois, BackendRDAP:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrInvalid)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalid)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max-depth must be at least 1", ErrInvalid)
	}
	if c.MaxLookups < 1 {
		return fmt.Errorf("%w: max-lookups must be at least 1", ErrInvalid)
	}
	if c.Backend == BackendRDAP && c.RDAPURL == "" {
		return fmt.Errorf("%w: rdap-url is required for the rdap backend", ErrInvalid)
	}
	return nil
}
