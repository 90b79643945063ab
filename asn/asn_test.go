package asn

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/42wim/ipisp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeISP serves canned ipisp responses keyed by IP string and ASN.
type fakeISP struct {
	ips    map[string]*ipisp.Response
	asns   map[ipisp.ASN]*ipisp.Response
	block  chan struct{}
	closed bool
}

func (f *fakeISP) LookupIP(ip net.IP) (*ipisp.Response, error) {
	if f.block != nil {
		<-f.block
	}
	resp, ok := f.ips[ip.String()]
	if !ok {
		return nil, errors.New("no origin")
	}
	return resp, nil
}

func (f *fakeISP) LookupASN(asn ipisp.ASN) (*ipisp.Response, error) {
	resp, ok := f.asns[asn]
	if !ok {
		return nil, errors.New("no such AS")
	}
	return resp, nil
}

func (f *fakeISP) Close() error {
	f.closed = true
	return nil
}

func mustCIDR(t *testing.T, s string) *net.IPNet {
	t.Helper()
	_, n, err := net.ParseCIDR(s)
	require.NoError(t, err)
	return n
}

func TestCymruLookup(t *testing.T) {
	fake := &fakeISP{
		ips: map[string]*ipisp.Response{
			"8.8.8.8": {
				IP:          net.ParseIP("8.8.8.8"),
				ASN:         15169,
				Country:     "US",
				Registry:    "ARIN",
				Range:       mustCIDR(t, "8.8.8.0/24"),
				AllocatedAt: time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC),
			},
			"192.0.2.1": {
				ASN:      64500,
				Country:  "ZZ",
				Registry: "ripencc",
				Range:    mustCIDR(t, "192.0.2.0/24"),
				Name:     ipisp.Name{Raw: "EXAMPLE-AS"},
			},
			"198.51.100.1": {
				ASN:      64501,
				Registry: "apnic",
			},
		},
		asns: map[ipisp.ASN]*ipisp.Response{
			15169: {ASN: 15169, Name: ipisp.Name{Raw: "GOOGLE - Google LLC, US"}},
		},
	}
	c := &CymruClient{client: fake}
	ctx := context.Background()

	md, err := c.Lookup(ctx, net.ParseIP("8.8.8.8"))
	require.NoError(t, err)
	assert.Equal(t, &Metadata{
		Registry:    "arin",
		ASN:         "15169",
		CIDR:        "8.8.8.0/24",
		CountryCode: "US",
		Date:        "2023-12-28",
		Description: "GOOGLE - Google LLC, US",
	}, md)

	// A name in the origin answer is used as is.
	md, err = c.Lookup(ctx, net.ParseIP("192.0.2.1"))
	require.NoError(t, err)
	assert.Equal(t, "64500", md.ASN)
	assert.Equal(t, "ripencc", md.Registry)
	assert.Equal(t, "EXAMPLE-AS", md.Description)
	assert.Empty(t, md.Date)

	// A failed AS query leaves the description empty.
	md, err = c.Lookup(ctx, net.ParseIP("198.51.100.1"))
	require.NoError(t, err)
	assert.Equal(t, "64501", md.ASN)
	assert.Empty(t, md.CIDR)
	assert.Empty(t, md.Description)

	_, err = c.Lookup(ctx, net.ParseIP("203.0.113.5"))
	assert.ErrorIs(t, err, ErrLookupFailed)

	_, err = c.Lookup(ctx, nil)
	assert.ErrorIs(t, err, ErrLookupFailed)

	require.NoError(t, c.Close())
	assert.True(t, fake.closed)
}

func TestCymruLookupContext(t *testing.T) {
	fake := &fakeISP{block: make(chan struct{})}
	defer close(fake.block)
	c := &CymruClient{client: fake}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Lookup(ctx, net.ParseIP("8.8.8.8"))
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

const rdapBody = `{
  "objectClassName": "ip network",
  "handle": "NET-8-8-8-0-2",
  "startAddress": "8.8.8.0",
  "endAddress": "8.8.8.255",
  "name": "GOGL",
  "port43": "whois.arin.net",
  "cidr0_cidrs": [{"v4prefix": "8.8.8.0", "length": 24}],
  "arin_originas0_originautnums": [15169],
  "events": [
    {"eventAction": "last changed", "eventDate": "2023-12-28T17:24:56-05:00"},
    {"eventAction": "registration", "eventDate": "2023-12-28T17:24:33-05:00"}
  ]
}`

func TestRDAPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ip/8.8.8.8":
			assert.Equal(t, "application/rdap+json", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "application/rdap+json")
			_, _ = w.Write([]byte(rdapBody))
		case "/ip/192.0.2.1":
			_, _ = w.Write([]byte("{not json"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewRDAPClient(srv.URL+"/", srv.Client())
	ctx := context.Background()

	md, err := c.Lookup(ctx, net.ParseIP("8.8.8.8"))
	require.NoError(t, err)
	assert.Equal(t, &Metadata{
		Registry:    "arin",
		ASN:         "15169",
		CIDR:        "8.8.8.0/24",
		Date:        "2023-12-28",
		Description: "GOGL",
	}, md)

	_, err = c.Lookup(ctx, net.ParseIP("192.0.2.1"))
	assert.ErrorIs(t, err, ErrLookupFailed)

	_, err = c.Lookup(ctx, net.ParseIP("203.0.113.9"))
	assert.ErrorIs(t, err, ErrLookupFailed)

	_, err = c.Lookup(ctx, nil)
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestRDAPMetadataFallbacks(t *testing.T) {
	md := rdapNetwork{
		StartAddress: "2001:db8::",
		Country:      "NL",
		Port43:       "WHOIS.RIPE.NET",
	}.metadata()

	assert.Equal(t, "ripencc", md.Registry)
	assert.Equal(t, "2001:db8::", md.CIDR)
	assert.Equal(t, "NL", md.CountryCode)
	assert.Empty(t, md.ASN)
}
