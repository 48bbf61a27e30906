// Package category maps the free-form type strings coming back from
// classifiers into a closed vocabulary and filters a classified document
// down to the categories the caller asked to redact.
package category

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/docshield/redactor/internal/document"
)

// Category is one normalized PII category.
type Category string

const (
	Name     Category = "name"
	Email    Category = "email"
	Phone    Category = "phone"
	Address  Category = "address"
	IP       Category = "ip"
	IDNumber Category = "id_number"
	Password Category = "password"
	Other    Category = "other"
)

// all lists every category in stable order.
var all = []Category{Name, Email, Phone, Address, IP, IDNumber, Password, Other}

// idAliases are classifier spellings that collapse into id_number.
var idAliases = map[string]struct{}{
	"ssn": {}, "tax_id": {}, "routing_number": {}, "bank_account": {}, "client_id": {},
}

// nameAliases are classifier spellings that collapse into name.
var nameAliases = map[string]struct{}{
	"name": {}, "person": {}, "personal_name": {}, "full_name": {}, "human_name": {},
	"first_name": {}, "last_name": {}, "surname": {}, "given_name": {},
}

// Normalize maps a raw classifier type string into the closed vocabulary.
// Empty or unrecognized strings become Other, so a flagged token always has
// a real category downstream. Normalize is idempotent: every Category
// normalizes to itself.
func Normalize(raw string) Category {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return Other
	}
	if _, ok := nameAliases[t]; ok {
		return Name
	}
	if _, ok := idAliases[t]; ok {
		return IDNumber
	}
	switch Category(t) {
	case Email, Phone, Address, IP, IDNumber, Password, Other:
		return Category(t)
	}
	return Other
}

// Set is a kept-category set.
type Set map[Category]struct{}

// AllSet returns a Set containing every category.
func AllSet() Set {
	s := make(Set, len(all))
	for _, c := range all {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports whether c is kept.
func (s Set) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

// Names returns the kept categories sorted, for logging and audit rows.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// ParseSet parses a comma-separated category list as supplied on the command
// line. "all" (or blank) selects every category. Unknown names are dropped
// with a warning; they are not fatal. The returned set may be empty, which
// callers treat as "nothing to do".
func ParseSet(raw string) Set {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return AllSet()
	}
	s := make(Set)
	var unknown []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		switch c := Category(part); c {
		case Name, Email, Phone, Address, IP, IDNumber, Password, Other:
			s[c] = struct{}{}
		default:
			unknown = append(unknown, part)
		}
	}
	if len(unknown) > 0 {
		slog.Warn("unknown PII categories ignored", "names", strings.Join(unknown, ","))
	}
	return s
}

// Filter returns a copy of doc where every flagged token whose normalized
// type is not in keep has its annotation reset to {false, ""}. Tokens that
// stay flagged get their type rewritten to the normalized form, so the
// redaction and report stages only ever see the closed vocabulary.
// Filtering twice with the same set is a no-op.
func Filter(doc *document.Document, keep Set) *document.Document {
	out := doc.Clone()
	for pi := range out.Pages {
		toks := out.Pages[pi].Tokens
		for ti := range toks {
			if !toks[ti].PII.IsPII {
				continue
			}
			c := Normalize(toks[ti].PII.Type)
			if keep.Contains(c) {
				toks[ti].PII.Type = string(c)
			} else {
				toks[ti].PII = document.PII{}
			}
		}
	}
	return out
}

// Label returns the short uppercase tag burned onto a redaction box.
func Label(c Category) string {
	switch c {
	case Name:
		return "NAME"
	case Email:
		return "EMAIL"
	case Phone:
		return "PHONE"
	case Address:
		return "ADDRESS"
	case IP:
		return "IP"
	case IDNumber:
		return "ID"
	case Password:
		return "PASS"
	default:
		return "OTHER"
	}
}

// String implements fmt.Stringer.
func (c Category) String() string { return string(c) }
