// Package report renders pipeline output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/tinylib/msgp/msgp"

	"github.com/synqronlabs/spfasn/enrich"
	"github.com/synqronlabs/spfasn/spf"
	"github.com/synqronlabs/spfasn/utils"
)

// Format selects how an enrichment result is written.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgPack Format = "msgpack"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatMsgPack:
		return f, nil
	}
	return "", fmt.Errorf("report: unknown format %q", s)
}

// Plain writes one asset per line with its mechanism prefix removed. CIDR
// suffixes are kept.
func Plain(w io.Writer, mechs []spf.Mechanism) error {
	for _, m := range mechs {
		if _, err := fmt.Fprintln(w, m.Value); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes result as a single-line JSON object.
func JSON(w io.Writer, result enrich.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// MsgPack writes result as a MessagePack map.
func MsgPack(w io.Writer, result enrich.Result) error {
	return msgp.Encode(w, result)
}

// Write renders result in format f.
func Write(w io.Writer, f Format, result enrich.Result) error {
	switch f {
	case FormatMsgPack:
		return MsgPack(w, result)
	default:
		return JSON(w, result)
	}
}

// AddressGroup collects assets that are IP addresses or blocks.
const AddressGroup = "ip"

// Group lists the asset values that share an organizational domain.
type Group struct {
	Organization string
	Values       []string
}

// GroupByOrganization groups asset values by the registrable domain under
// the public suffix, e.g. "_spf.mail.example.co.uk" under "example.co.uk".
// Addresses go to AddressGroup. Groups keep the order of their first asset.
func GroupByOrganization(mechs []spf.Mechanism) []Group {
	var groups []Group
	index := map[string]int{}
	for _, m := range mechs {
		host := spf.SplitCIDR(m.Value)
		org := AddressGroup
		if net.ParseIP(host) == nil {
			org = utils.OrganizationalDomain(host)
		}

		i, ok := index[org]
		if !ok {
			i = len(groups)
			index[org] = i
			groups = append(groups, Group{Organization: org})
		}
		groups[i].Values = append(groups[i].Values, m.Value)
	}
	return groups
}

// PlainGrouped writes each organization on its own line followed by its
// assets, indented.
func PlainGrouped(w io.Writer, mechs []spf.Mechanism) error {
	for _, g := range GroupByOrganization(mechs) {
		if _, err := fmt.Fprintln(w, g.Organization); err != nil {
			return err
		}
		for _, v := range g.Values {
			if _, err := fmt.Fprintf(w, "  %s\n", v); err != nil {
				return err
			}
		}
	}
	return nil
}
