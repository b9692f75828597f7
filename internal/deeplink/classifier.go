// Package deeplink parses scanned upi://pay links and resolves them to a payee.
package deeplink

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"

	"golang.org/x/text/cases"
)

// Scheme is the prefix every payable link starts with.
const Scheme = "upi://pay"

// Link is the part of a UPI deep link the wallet reads.
// Other parameters (am, cu, tr, ...) are ignored.
type Link struct {
	PayeeAddress string
	PayeeName    string // decoded; empty when pn is absent
}

// Parse extracts pa and pn from a scanned string.
func Parse(raw string) (*Link, error) {
	if !strings.HasPrefix(raw, Scheme) {
		return nil, &domain.ErrInvalidDeepLink{Input: raw, Reason: "missing " + Scheme + " prefix"}
	}

	parts := strings.Split(raw, "?")
	if len(parts) < 2 || parts[1] == "" {
		return nil, &domain.ErrInvalidDeepLink{Input: raw, Reason: "missing query"}
	}

	params := parseQuery(parts[1])
	pa := params["pa"]
	if pa == "" {
		return nil, &domain.ErrInvalidDeepLink{Input: raw, Reason: "missing payee address (pa)"}
	}

	link := &Link{PayeeAddress: pa}
	if pn := params["pn"]; pn != "" {
		// pn is commonly double-encoded by QR generators.
		name, err := url.PathUnescape(strings.ReplaceAll(pn, "+", " "))
		if err != nil || !utf8.ValidString(name) {
			return nil, &domain.ErrInvalidDeepLink{Input: raw, Reason: "malformed payee name (pn)"}
		}
		link.PayeeName = name
	}
	return link, nil
}

// parseQuery decodes form-encoded pairs. The first occurrence of a key wins
// and components that fail to decode are kept as written.
func parseQuery(q string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k, v = formDecode(k), formDecode(v)
		if _, seen := out[k]; !seen {
			out[k] = v
		}
	}
	return out
}

func formDecode(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return strings.ReplaceAll(s, "+", " ")
}

// Directory looks up saved contacts by UPI ID, case-insensitively.
type Directory interface {
	LookupContact(upiID string) (domain.UpiContact, bool)
}

// ContactList is a Directory over a slice of contacts.
type ContactList []domain.UpiContact

// LookupContact implements Directory.
func (l ContactList) LookupContact(upiID string) (domain.UpiContact, bool) {
	for _, c := range l {
		if EqualFold(c.UpiID, upiID) {
			return c, true
		}
	}
	return domain.UpiContact{}, false
}

// EqualFold reports whether two UPI IDs are the same under case folding.
func EqualFold(a, b string) bool {
	f := cases.Fold()
	return f.String(a) == f.String(b)
}

// Classifier resolves links to payees using merchant heuristics.
type Classifier struct {
	prefixes []string
	handles  []string
	keywords []string
}

// NewClassifier creates a classifier for the given rules.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{
		prefixes: foldAll(rules.MerchantPrefixes),
		handles:  foldAll(rules.MerchantHandles),
		keywords: foldAll(rules.MerchantKeywords),
	}
}

func foldAll(in []string) []string {
	f := cases.Fold()
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, f.String(s))
		}
	}
	return out
}

// IsMerchant reports whether the payee looks like a business account.
func (c *Classifier) IsMerchant(upiID, payeeName string) bool {
	f := cases.Fold()
	id := f.String(upiID)
	name := f.String(payeeName)

	for _, p := range c.prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	for _, h := range c.handles {
		if strings.HasSuffix(id, h) {
			return true
		}
	}
	if name == "" {
		return false
	}
	for _, k := range c.keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// Resolve maps a scanned string to a payee.
//
// Merchants prefer the saved contact name over the scanned one, then the
// scanned name, then the address. Personal accounts use the scanned name,
// then the address.
func (c *Classifier) Resolve(raw string, dir Directory) (domain.PayeeInfo, error) {
	link, err := Parse(raw)
	if err != nil {
		return domain.PayeeInfo{}, err
	}

	pa, pn := link.PayeeAddress, link.PayeeName
	if c.IsMerchant(pa, pn) && dir != nil {
		if contact, ok := dir.LookupContact(pa); ok {
			return domain.PayeeInfo{Name: contact.Name, UpiID: pa}, nil
		}
	}

	name := pn
	if name == "" {
		name = pa
	}
	return domain.PayeeInfo{Name: name, UpiID: pa}, nil
}
