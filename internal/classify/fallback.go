package classify

import (
	"regexp"
	"strings"

	"github.com/docshield/redactor/internal/document"
)

// The fallback patterns favor recall over precision: they only run when the
// remote classifier produced nothing for a chunk, and a false positive costs
// an extra black box rather than a leak.
var (
	emailRe = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	ipv4Re  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	phoneRe = regexp.MustCompile(`(?:(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{2,4}\)?[-.\s]?)?\d{3,4}[-.\s]?\d{3,4})`)
)

// addressCues are keywords whose neighborhood is treated as part of a postal
// address.
var addressCues = map[string]struct{}{
	"street": {}, "st.": {}, "road": {}, "rd.": {}, "avenue": {}, "ave": {},
	"sector": {}, "block": {}, "phase": {}, "colony": {}, "lane": {}, "ln": {},
	"plot": {}, "apt": {}, "flat": {}, "suite": {}, "zip": {}, "pincode": {},
	"pin": {}, "city": {}, "state": {},
}

// addressWindow is how many tokens on each side of a token are scanned for
// address cues.
const addressWindow = 5

// phoneSpan is how many tokens (including the current one) are joined when
// testing the multi-token phone pattern.
const phoneSpan = 3

// FallbackFindings runs the deterministic pattern matcher over a chunk of
// tokens and returns chunk-local findings, deduplicated by index with the
// first match winning. Priority per token: email, ip, phone, address.
func FallbackFindings(chunk []document.Token) []Finding {
	var out []Finding
	seen := make(map[int]struct{})
	add := func(i int, typ string) {
		if _, dup := seen[i]; dup {
			return
		}
		seen[i] = struct{}{}
		out = append(out, Finding{Index: i, Type: typ})
	}

	for i, tok := range chunk {
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			continue
		}
		if emailRe.MatchString(text) {
			add(i, "email")
			continue
		}
		if ipv4Re.MatchString(text) {
			add(i, "ip")
			continue
		}
		if phoneRe.MatchString(forwardSpan(chunk, i)) {
			add(i, "phone")
			continue
		}
		if hasAddressCue(chunk, i) {
			add(i, "address")
		}
	}
	return out
}

// forwardSpan joins the token texts from i over the phone span, so numbers
// broken across tokens ("+1 555 0100") still match.
func forwardSpan(chunk []document.Token, i int) string {
	end := i + phoneSpan
	if end > len(chunk) {
		end = len(chunk)
	}
	parts := make([]string, 0, end-i)
	for j := i; j < end; j++ {
		parts = append(parts, chunk[j].Text)
	}
	return strings.Join(parts, " ")
}

// hasAddressCue reports whether any address cue appears in the lowered text
// of the tokens within addressWindow of i.
func hasAddressCue(chunk []document.Token, i int) bool {
	lo := i - addressWindow
	if lo < 0 {
		lo = 0
	}
	hi := i + addressWindow
	if hi > len(chunk) {
		hi = len(chunk)
	}
	parts := make([]string, 0, hi-lo)
	for j := lo; j < hi; j++ {
		parts = append(parts, strings.ToLower(chunk[j].Text))
	}
	window := " " + strings.Join(parts, " ") + " "
	for cue := range addressCues {
		if strings.Contains(window, cue) {
			return true
		}
	}
	return false
}
