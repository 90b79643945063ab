package spf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(mechs []Mechanism) []string {
	out := make([]string, len(mechs))
	for i, m := range mechs {
		out[i] = m.Token
	}
	return out
}

func TestExtractAssets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "ip4 include and mx with value",
			input: "v=spf1 ip4:192.0.2.0/24 include:example.com mx:5 mail.example.com -all",
			// mx:5 contains "mx:" and is kept; the bare hostname and -all are not.
			want: []string{"ip4:192.0.2.0/24", "include:example.com", "mx:5"},
		},
		{
			name:  "bare mechanisms without colon are not assets",
			input: "v=spf1 a mx ptr ~all",
			want:  nil,
		},
		{
			name:  "all kinds in record order",
			input: "v=spf1 exists:%{i}.x.example.com ip6:2001:db8::/32 a:mail.example.com ptr:example.com ip4:198.51.100.7",
			want: []string{
				"exists:%{i}.x.example.com",
				"ip6:2001:db8::/32",
				"a:mail.example.com",
				"ptr:example.com",
				"ip4:198.51.100.7",
			},
		},
		{
			name:  "duplicates kept",
			input: "v=spf1 include:example.com include:example.com",
			want:  []string{"include:example.com", "include:example.com"},
		},
		{
			name:  "qualified tokens match by containment",
			input: "v=spf1 -include:example.com ~ip4:192.0.2.1 +all",
			want:  []string{"-include:example.com", "~ip4:192.0.2.1"},
		},
		{
			name:  "prefix inside a modifier value",
			input: "v=spf1 redirect=_spf.a:example.com",
			want:  []string{"redirect=_spf.a:example.com"},
		},
		{
			name:  "repeated spaces yield empty tokens that are dropped",
			input: "v=spf1  ip4:192.0.2.1   -all",
			want:  []string{"ip4:192.0.2.1"},
		},
		{
			name:  "tabs are not separators",
			input: "v=spf1 ip4:192.0.2.1\tinclude:example.com",
			want:  []string{"ip4:192.0.2.1\tinclude:example.com"},
		},
		{
			name:  "empty record",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAssets(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, tokens(got))
		})
	}
}

func TestExtractAssetsKinds(t *testing.T) {
	mechs := ExtractAssets("v=spf1 ip4:192.0.2.0/24 ip6:2001:db8::1 include:_spf.example.com a:a.example.com mx:mx.example.com ptr:example.com exists:e.example.com -include:x.example.com")
	require.Len(t, mechs, 8)

	want := []Kind{KindIP4, KindIP6, KindInclude, KindA, KindMX, KindPTR, KindExists, KindOther}
	for i, m := range mechs {
		assert.Equal(t, want[i], m.Kind, m.Token)
	}
}

func TestPrefixesOrder(t *testing.T) {
	assert.Equal(t, []string{"ip4:", "ip6:", "ptr:", "include:", "a:", "include:", "mx:", "exists:"}, Prefixes)
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"ip4:192.0.2.0/24", "192.0.2.0/24"},
		{"ip6:2001:db8::/32", "2001:db8::/32"},
		{"include:_spf.example.com", "_spf.example.com"},
		{"a:mail.example.com", "mail.example.com"},
		{"mx:5", "5"},
		{"exists:%{i}.example.com", "%{i}.example.com"},
		{"ptr:example.com", "example.com"},
		// leading qualifier stays in place
		{"-include:example.com", "-example.com"},
		// only the first occurrence is removed
		{"include:a:example.com", "a:example.com"},
		{"a:include:example.com", "include:example.com"},
		// leftmost position wins over list order
		{"xa:ip4:1.2.3.4", "xip4:1.2.3.4"},
		{"no-prefix", "no-prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, StripPrefix(tt.token))
		})
	}
}

func TestSplitCIDR(t *testing.T) {
	assert.Equal(t, "192.0.2.0", SplitCIDR("192.0.2.0/24"))
	assert.Equal(t, "2001:db8::", SplitCIDR("2001:db8::/32"))
	assert.Equal(t, "192.0.2.1", SplitCIDR("192.0.2.1"))
	assert.Equal(t, "a", SplitCIDR("a/b/c"))
}

func TestIdentifier(t *testing.T) {
	mechs := ExtractAssets("v=spf1 ip4:192.0.2.0/24 include:example.com/x a:host.example.com/24")
	require.Len(t, mechs, 3)

	// Enrichment drops the CIDR suffix of IP blocks only.
	assert.Equal(t, "192.0.2.0", mechs[0].Identifier())
	assert.Equal(t, "192.0.2.0/24", mechs[0].Value)
	assert.Equal(t, "example.com/x", mechs[1].Identifier())
	assert.Equal(t, "host.example.com/24", mechs[2].Identifier())
}
