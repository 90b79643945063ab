package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrEmptyDomain is returned by NormalizeDomain for blank input.
var ErrEmptyDomain = errors.New("empty domain")

// Underscore labels such as _spf.example.com are common in SPF, so the
// STD3 hostname rules of idna.Lookup are relaxed.
var domainProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.Transitional(false),
)

// ContainsNonASCII checks if a string contains any non-ASCII characters (bytes > 127).
func ContainsNonASCII(s string) bool {
	for _, v := range s {
		if v >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

// GenerateID returns a new ULID. IDs sort by creation time.
func GenerateID() string {
	return ulid.Make().String()
}

// NormalizeDomain lower-cases domain and removes surrounding whitespace and a
// trailing dot. Internationalized names are converted to their A-label form;
// ASCII names are otherwise passed through unchanged.
func NormalizeDomain(domain string) (string, error) {
	d := strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if d == "" {
		return "", ErrEmptyDomain
	}

	if ContainsNonASCII(d) {
		ascii, err := domainProfile.ToASCII(d)
		if err != nil {
			return "", fmt.Errorf("invalid domain %q: %w", domain, err)
		}
		d = ascii
	}

	return strings.ToLower(d), nil
}

// OrganizationalDomain returns the registrable domain directly under the
// public suffix, e.g. "mail.example.co.uk" -> "example.co.uk". Names the
// Public Suffix List cannot place are returned as-is.
func OrganizationalDomain(domain string) string {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if domain == "" {
		return ""
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return domain
	}
	return etld1
}
