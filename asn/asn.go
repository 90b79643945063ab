// Package asn looks up the Autonomous System and registry allocation that
// an IP address belongs to.
//
// Two backends are provided. CymruClient queries the Team Cymru IP-to-ASN
// service over DNS (the default) or whois. RDAPClient asks the Regional
// Internet Registries over RDAP.
package asn

import (
	"context"
	"errors"
	"net"
)

// ErrLookupFailed is returned when registry metadata cannot be obtained
// for an address.
var ErrLookupFailed = errors.New("asn: registry lookup failed")

// Metadata describes the allocation an address belongs to.
type Metadata struct {
	// Registry is the RIR that made the allocation: arin, ripencc, apnic,
	// lacnic or afrinic.
	Registry string `json:"asn_registry"`

	// ASN is the origin AS number. Space separated when the prefix is
	// announced by several origins.
	ASN string `json:"asn"`

	CIDR        string `json:"asn_cidr"`
	CountryCode string `json:"asn_country_code"`

	// Date is the allocation date, YYYY-MM-DD.
	Date        string `json:"asn_date"`
	Description string `json:"asn_description"`
}

// Lookuper resolves registry metadata for an address.
type Lookuper interface {
	Lookup(ctx context.Context, ip net.IP) (*Metadata, error)
}

// LookuperFunc adapts a function to the Lookuper interface.
type LookuperFunc func(ctx context.Context, ip net.IP) (*Metadata, error)

func (f LookuperFunc) Lookup(ctx context.Context, ip net.IP) (*Metadata, error) {
	return f(ctx, ip)
}
