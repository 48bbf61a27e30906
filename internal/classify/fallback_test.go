package classify

import (
	"testing"

	"github.com/docshield/redactor/internal/document"
)

func toks(words ...string) []document.Token {
	out := make([]document.Token, len(words))
	for i, w := range words {
		out[i] = document.Token{Text: w}
	}
	return out
}

func findingsByIndex(fs []Finding) map[int]string {
	m := make(map[int]string, len(fs))
	for _, f := range fs {
		m[f.Index] = f.Type
	}
	return m
}

func TestFallbackEmail(t *testing.T) {
	got := findingsByIndex(FallbackFindings(toks("contact", "john@x.com", "today")))
	if got[1] != "email" {
		t.Errorf("findings = %v, want index 1 email", got)
	}
	if _, flagged := got[0]; flagged {
		t.Errorf("plain word flagged: %v", got)
	}
}

func TestFallbackIPv4(t *testing.T) {
	got := findingsByIndex(FallbackFindings(toks("host", "192.168.1.5", "up")))
	if got[1] != "ip" {
		t.Errorf("findings = %v, want index 1 ip", got)
	}
}

func TestFallbackPhoneAcrossTokens(t *testing.T) {
	// The number only matches when the forward span is joined.
	got := findingsByIndex(FallbackFindings(toks("call", "555", "0199", "now")))
	if got[1] != "phone" {
		t.Errorf("findings = %v, want index 1 phone", got)
	}
}

func TestFallbackAddressWindow(t *testing.T) {
	got := findingsByIndex(FallbackFindings(toks("42", "Main", "Street", "Springfield")))
	for i := 0; i < 4; i++ {
		typ, ok := got[i]
		if !ok {
			t.Errorf("token %d not flagged, findings = %v", i, got)
			continue
		}
		if typ != "address" {
			t.Errorf("token %d type = %q, want address", i, typ)
		}
	}
}

func TestFallbackOutsideAddressWindow(t *testing.T) {
	words := []string{"street", "a", "b", "c", "d", "e", "far"}
	got := findingsByIndex(FallbackFindings(toks(words...)))
	if _, flagged := got[6]; flagged {
		t.Errorf("token beyond the cue window flagged: %v", got)
	}
}

func TestFallbackSkipsBlankTokens(t *testing.T) {
	got := FallbackFindings(toks("", "  ", "john@x.com"))
	if len(got) != 1 || got[0].Index != 2 {
		t.Errorf("findings = %v, want only index 2", got)
	}
}

func TestFallbackPriorityAndDedup(t *testing.T) {
	// An email containing digits must be tagged email, not phone, and each
	// index appears at most once.
	got := FallbackFindings(toks("a1234567@x.com"))
	if len(got) != 1 {
		t.Fatalf("findings = %v, want exactly 1", got)
	}
	if got[0].Type != "email" {
		t.Errorf("type = %q, want email (priority over phone)", got[0].Type)
	}
}
