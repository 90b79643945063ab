package asn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRDAPBaseURL is the rdap.org bootstrap service, which redirects
// to the RIR responsible for an address.
const DefaultRDAPBaseURL = "https://rdap.org"

// maxRDAPBody bounds the size of an RDAP response we read.
const maxRDAPBody = 256 * 1024

// port43 WHOIS hosts mapped to registry names.
var rdapRegistries = map[string]string{
	"whois.arin.net":    "arin",
	"whois.ripe.net":    "ripencc",
	"whois.apnic.net":   "apnic",
	"whois.lacnic.net":  "lacnic",
	"whois.afrinic.net": "afrinic",
}

// RDAPClient looks up IP network registrations over RDAP (RFC 9083).
type RDAPClient struct {
	baseURL string
	client  *http.Client
}

var _ Lookuper = (*RDAPClient)(nil)

// NewRDAPClient returns a client querying baseURL + "/ip/<addr>". An empty
// baseURL selects DefaultRDAPBaseURL, a nil client gets a 30 second timeout.
func NewRDAPClient(baseURL string, client *http.Client) *RDAPClient {
	if baseURL == "" {
		baseURL = DefaultRDAPBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RDAPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

type rdapCIDR struct {
	V4Prefix string `json:"v4prefix"`
	V6Prefix string `json:"v6prefix"`
	Length   int    `json:"length"`
}

type rdapEvent struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type rdapNetwork struct {
	Handle        string      `json:"handle"`
	StartAddress  string      `json:"startAddress"`
	Name          string      `json:"name"`
	Country       string      `json:"country"`
	Port43        string      `json:"port43"`
	CIDRs         []rdapCIDR  `json:"cidr0_cidrs"`
	OriginAutnums []int       `json:"arin_originas0_originautnums"`
	Events        []rdapEvent `json:"events"`
}

// Lookup fetches the IP network object covering ip.
func (c *RDAPClient) Lookup(ctx context.Context, ip net.IP) (*Metadata, error) {
	if ip == nil {
		return nil, fmt.Errorf("%w: nil IP address", ErrLookupFailed)
	}

	url := c.baseURL + "/ip/" + ip.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLookupFailed, ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: rdap %s", ErrLookupFailed, ip, resp.Status)
	}

	var network rdapNetwork
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRDAPBody)).Decode(&network); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding rdap response: %v", ErrLookupFailed, ip, err)
	}

	return network.metadata(), nil
}

func (n rdapNetwork) metadata() *Metadata {
	md := &Metadata{
		Registry:    rdapRegistries[strings.ToLower(n.Port43)],
		CountryCode: n.Country,
		Description: n.Name,
	}

	asns := make([]string, 0, len(n.OriginAutnums))
	for _, a := range n.OriginAutnums {
		asns = append(asns, strconv.Itoa(a))
	}
	md.ASN = strings.Join(asns, " ")

	if len(n.CIDRs) > 0 {
		c := n.CIDRs[0]
		prefix := c.V4Prefix
		if prefix == "" {
			prefix = c.V6Prefix
		}
		md.CIDR = prefix + "/" + strconv.Itoa(c.Length)
	} else {
		md.CIDR = n.StartAddress
	}

	for _, ev := range n.Events {
		if ev.Action == "registration" {
			date, _, _ := strings.Cut(ev.Date, "T")
			md.Date = date
			break
		}
	}

	return md
}
