package gemini

import (
	"strings"
	"testing"
)

func TestNewRequiresKey(t *testing.T) {
	if _, err := New("", "gemini-2.0-flash", 0); err == nil {
		t.Error("empty key accepted")
	}
	if _, err := New("   ", "gemini-2.0-flash", 0); err == nil {
		t.Error("blank key accepted")
	}
	if _, err := New("k", "gemini-2.0-flash", 0); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
}

func TestBuildPromptNumbersWords(t *testing.T) {
	got := buildPrompt([]string{"Alice", `say "hi"`})
	if !strings.HasPrefix(got, taggerPrompt) {
		t.Error("prompt instructions missing")
	}
	if !strings.Contains(got, "0: \"Alice\"\n") {
		t.Errorf("missing numbered line:\n%s", got)
	}
	// Embedded quotes must be escaped, not break the line format.
	if !strings.Contains(got, `1: "say \"hi\""`) {
		t.Errorf("quoting broken:\n%s", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"redactions":[]}`, `{"redactions":[]}`},
		{"```json\n{\"redactions\":[]}\n```", `{"redactions":[]}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
