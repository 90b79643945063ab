package spf

import (
	"regexp"
	"strings"
)

// Kind identifies the mechanism a token was classified as.
type Kind string

const (
	KindIP4     Kind = "ip4"
	KindIP6     Kind = "ip6"
	KindPTR     Kind = "ptr"
	KindInclude Kind = "include"
	KindA       Kind = "a"
	KindMX      Kind = "mx"
	KindExists  Kind = "exists"

	// KindOther marks a token that contains a mechanism prefix somewhere
	// but does not start with one, e.g. "-include:example.com".
	KindOther Kind = "other"
)

// Prefixes is the ordered list of mechanism prefixes used for extraction
// and stripping. "include:" appears twice; the order is significant for
// stripping and must not be changed.
var Prefixes = []string{"ip4:", "ip6:", "ptr:", "include:", "a:", "include:", "mx:", "exists:"}

// prefixPattern matches any prefix. Alternation is leftmost-first, so at a
// given position the prefix listed first wins.
var prefixPattern = func() *regexp.Regexp {
	quoted := make([]string, len(Prefixes))
	for i, p := range Prefixes {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}()

// Mechanism is a record token selected as a network asset.
type Mechanism struct {
	Kind Kind

	// Token is the token as it appeared in the record.
	Token string

	// Value is Token with its mechanism prefix removed. CIDR suffixes are
	// kept.
	Value string
}

// Identifier returns the key under which the mechanism is enriched: the
// bare address for ip4 and ip6, Value otherwise.
func (m Mechanism) Identifier() string {
	if m.Kind == KindIP4 || m.Kind == KindIP6 {
		return SplitCIDR(m.Value)
	}
	return m.Value
}

func (m Mechanism) String() string {
	return m.Token
}

// ExtractAssets splits text on single spaces and returns, in record order,
// every token that contains a mechanism prefix anywhere in it. Duplicates
// are kept.
func ExtractAssets(text string) []Mechanism {
	var mechs []Mechanism
	for _, token := range strings.Split(text, " ") {
		if !containsPrefix(token) {
			continue
		}
		mechs = append(mechs, Mechanism{
			Kind:  classify(token),
			Token: token,
			Value: StripPrefix(token),
		})
	}
	return mechs
}

func containsPrefix(token string) bool {
	for _, p := range Prefixes {
		if strings.Contains(token, p) {
			return true
		}
	}
	return false
}

// classify returns the kind of the first prefix token starts with.
func classify(token string) Kind {
	for _, p := range Prefixes {
		if strings.HasPrefix(token, p) {
			return Kind(strings.TrimSuffix(p, ":"))
		}
	}
	return KindOther
}

// StripPrefix removes the first prefix occurrence found in token. Only one
// occurrence is removed; "include:a:x" becomes "a:x".
func StripPrefix(token string) string {
	loc := prefixPattern.FindStringIndex(token)
	if loc == nil {
		return token
	}
	return token[:loc[0]] + token[loc[1]:]
}

// SplitCIDR drops everything from the first '/' on.
func SplitCIDR(value string) string {
	addr, _, _ := strings.Cut(value, "/")
	return addr
}
