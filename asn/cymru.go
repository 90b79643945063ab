package asn

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/42wim/ipisp"
)

// dateLayout is the allocation date format of Metadata.Date.
const dateLayout = "2006-01-02"

// ispClient is the part of ipisp.Client used by CymruClient.
type ispClient interface {
	LookupIP(ip net.IP) (*ipisp.Response, error)
	LookupASN(asn ipisp.ASN) (*ipisp.Response, error)
	Close() error
}

// CymruClient looks up origin ASNs with the Team Cymru IP-to-ASN service,
// either through its DNS zone or its whois server.
type CymruClient struct {
	// ipisp clients hold a single connection; calls are serialized.
	mu     sync.Mutex
	client ispClient
}

var _ Lookuper = (*CymruClient)(nil)

// NewCymruClient returns a client using the Team Cymru DNS interface.
func NewCymruClient() (*CymruClient, error) {
	c, err := ipisp.NewDNSClient()
	if err != nil {
		return nil, fmt.Errorf("asn: cymru dns client: %w", err)
	}
	return &CymruClient{client: c}, nil
}

// NewWhoisClient returns a client using the Team Cymru whois server.
func NewWhoisClient() (*CymruClient, error) {
	c, err := ipisp.NewWhoisClient()
	if err != nil {
		return nil, fmt.Errorf("asn: cymru whois client: %w", err)
	}
	return &CymruClient{client: c}, nil
}

// Lookup returns the announced prefix covering ip. When the origin answer
// carries no AS name, it is fetched with a second query whose failure is not
// fatal.
func (c *CymruClient) Lookup(ctx context.Context, ip net.IP) (*Metadata, error) {
	if ip == nil {
		return nil, fmt.Errorf("%w: nil IP address", ErrLookupFailed)
	}

	resp, err := c.do(ctx, func() (*ipisp.Response, error) {
		return c.client.LookupIP(ip)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLookupFailed, ip, err)
	}

	md := fromResponse(resp)
	if md.Description == "" && resp.ASN != 0 {
		as, err := c.do(ctx, func() (*ipisp.Response, error) {
			return c.client.LookupASN(resp.ASN)
		})
		if err == nil {
			md.Description = as.Name.Raw
		}
	}
	return md, nil
}

// Close releases the underlying connection.
func (c *CymruClient) Close() error {
	return c.client.Close()
}

// do runs fn unless ctx ends first. ipisp calls take no context, so an
// abandoned call finishes in the background.
func (c *CymruClient) do(ctx context.Context, fn func() (*ipisp.Response, error)) (*ipisp.Response, error) {
	type reply struct {
		resp *ipisp.Response
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		resp, err := fn()
		if err == nil && resp == nil {
			err = fmt.Errorf("empty response")
		}
		ch <- reply{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.resp, r.err
	}
}

func fromResponse(resp *ipisp.Response) *Metadata {
	md := &Metadata{
		Registry:    strings.ToLower(resp.Registry),
		CountryCode: resp.Country,
		Description: resp.Name.Raw,
	}
	if resp.ASN != 0 {
		md.ASN = strconv.Itoa(int(resp.ASN))
	}
	if resp.Range != nil {
		md.CIDR = resp.Range.String()
	}
	if !resp.AllocatedAt.IsZero() {
		md.Date = resp.AllocatedAt.Format(dateLayout)
	}
	return md
}
