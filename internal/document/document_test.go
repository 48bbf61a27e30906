package document

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDecodeMissingPages(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"wrong key", `{"words": []}`},
		{"not an object", `[]`},
		{"pages not array", `{"pages": 7}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("Decode(%s) err = %v, want ErrMalformed", tc.raw, err)
			}
		})
	}
}

func TestDecodeValid(t *testing.T) {
	raw := `{"pages":[{"page":1,"width":2550,"height":3300,"words":[
		{"text":"hello","bbox":{"x":10,"y":20,"w":30,"h":12},"conf":91,"source":"ocr","pii":{"is_pii":false}}
	]}]}`
	doc, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(doc.Pages))
	}
	p := doc.Pages[0]
	if p.Number != 1 || p.Width != 2550 || p.Height != 3300 {
		t.Errorf("page header = %+v", p)
	}
	if len(p.Tokens) != 1 {
		t.Fatalf("tokens = %d, want 1", len(p.Tokens))
	}
	tok := p.Tokens[0]
	if tok.Text != "hello" || tok.Source != "ocr" {
		t.Errorf("token = %+v", tok)
	}
	if tok.Conf == nil || *tok.Conf != 91 {
		t.Errorf("conf = %v, want 91", tok.Conf)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	conf := 88.5
	doc := &Document{Pages: []Page{{
		Number: 1, Width: 100, Height: 200,
		Tokens: []Token{
			{Text: "a", BBox: BBox{X: 1, Y: 2, W: 3, H: 4}, Conf: &conf, Source: "ocr"},
			{Text: "b", Source: "ocr", PII: PII{IsPII: true, Type: "email"}},
		},
	}}}

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := Save(path, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Pages) != 1 || len(got.Pages[0].Tokens) != 2 {
		t.Fatalf("round trip shape mismatch: %+v", got)
	}
	if !got.Pages[0].Tokens[1].PII.IsPII || got.Pages[0].Tokens[1].PII.Type != "email" {
		t.Errorf("pii lost: %+v", got.Pages[0].Tokens[1].PII)
	}
	if got.Pages[0].Tokens[0].Conf == nil || *got.Pages[0].Tokens[0].Conf != 88.5 {
		t.Errorf("conf lost: %v", got.Pages[0].Tokens[0].Conf)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	conf := 50.0
	doc := &Document{Pages: []Page{{
		Number: 1,
		Tokens: []Token{{Text: "x", Conf: &conf}},
	}}}

	cp := doc.Clone()
	cp.Pages[0].Tokens[0].PII = PII{IsPII: true, Type: "name"}
	*cp.Pages[0].Tokens[0].Conf = 99

	if doc.Pages[0].Tokens[0].PII.IsPII {
		t.Error("clone mutation leaked into original annotation")
	}
	if *doc.Pages[0].Tokens[0].Conf != 50 {
		t.Error("clone mutation leaked into original confidence")
	}
}

func TestFlaggedCount(t *testing.T) {
	doc := &Document{Pages: []Page{
		{Tokens: []Token{{PII: PII{IsPII: true}}, {}}},
		{Tokens: []Token{{PII: PII{IsPII: true}}}},
	}}
	if got := doc.FlaggedCount(); got != 2 {
		t.Errorf("FlaggedCount = %d, want 2", got)
	}
}
