package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docshield/redactor/internal/document"
)

func sampleDoc() *document.Document {
	conf := 91.5
	return &document.Document{Pages: []document.Page{
		{
			Number: 1, Width: 2550, Height: 3300,
			Tokens: []document.Token{
				{Text: "Dear"},
				{Text: "Alice,", Source: "ocr", PII: document.PII{IsPII: true, Type: "name"}},
				{Text: "write"},
				{Text: "to"},
				{Text: "john@x.com", Conf: &conf, Source: "ocr",
					BBox: document.BBox{X: 100, Y: 50, W: 40, H: 10},
					PII:  document.PII{IsPII: true, Type: "email"}},
				{Text: "today"},
			},
		},
		{
			Number: 2, Width: 2550, Height: 3300,
			Tokens: []document.Token{
				{Text: "ssn:"},
				{Text: "123-45-6789", PII: document.PII{IsPII: true, Type: "ssn"}},
			},
		},
	}}
}

func TestBuildSummaryAndOrder(t *testing.T) {
	r := Build(sampleDoc())

	if r.Summary.Total != 3 {
		t.Fatalf("total = %d, want 3", r.Summary.Total)
	}
	if r.Summary.ByPage[1] != 2 || r.Summary.ByPage[2] != 1 {
		t.Errorf("by_page = %v", r.Summary.ByPage)
	}
	if r.Summary.ByType["name"] != 1 || r.Summary.ByType["email"] != 1 || r.Summary.ByType["id_number"] != 1 {
		t.Errorf("by_type = %v, want normalized types", r.Summary.ByType)
	}

	// Page-then-index order.
	if r.Items[0].Page != 1 || r.Items[0].Index != 1 ||
		r.Items[1].Page != 1 || r.Items[1].Index != 4 ||
		r.Items[2].Page != 2 || r.Items[2].Index != 1 {
		t.Errorf("item order = %+v", r.Items)
	}
}

func TestBuildItemFields(t *testing.T) {
	r := Build(sampleDoc())
	it := r.Items[1] // the email token

	if it.Type != "email" || it.Text != "john@x.com" || it.Source != "ocr" {
		t.Errorf("item = %+v", it)
	}
	if it.Confidence == nil || *it.Confidence != 91.5 {
		t.Errorf("confidence = %v, want 91.5", it.Confidence)
	}
	if it.PageWidth != 2550 || it.PageHeight != 3300 {
		t.Errorf("page dims = %dx%d", it.PageWidth, it.PageHeight)
	}
	if it.Context != "Alice, write to john@x.com today" {
		t.Errorf("context = %q", it.Context)
	}

	// Source defaults when the token carries none.
	if r.Items[2].Source != "unknown" {
		t.Errorf("source = %q, want unknown", r.Items[2].Source)
	}
}

func TestContextSkipsEmptyNeighbors(t *testing.T) {
	doc := &document.Document{Pages: []document.Page{{
		Number: 1,
		Tokens: []document.Token{
			{Text: "a"}, {Text: ""}, {Text: "b"},
			{Text: "x", PII: document.PII{IsPII: true, Type: "other"}},
			{Text: ""}, {Text: "c"},
		},
	}}}
	r := Build(doc)
	if got := r.Items[0].Context; got != "a b x c" {
		t.Errorf("context = %q, want %q", got, "a b x c")
	}
}

func TestBuildEmptyDocument(t *testing.T) {
	r := Build(&document.Document{})
	if r.Summary.Total != 0 || len(r.Items) != 0 {
		t.Errorf("report = %+v, want empty", r)
	}
	// items must encode as [], not null
	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if strings.Contains(buf.String(), `"items": null`) {
		t.Errorf("items encoded as null:\n%s", buf.String())
	}
}

func TestCSVMatchesItems(t *testing.T) {
	r := Build(sampleDoc())

	var buf bytes.Buffer
	if err := r.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != len(r.Items)+1 {
		t.Fatalf("rows = %d, want header + %d items", len(rows), len(r.Items))
	}
	if rows[0][0] != "page" || rows[0][6] != "bbox" || rows[0][9] != "context" {
		t.Errorf("header = %v", rows[0])
	}

	// The email item: every flat field must agree with the structured form.
	got := rows[2]
	if got[0] != "1" || got[1] != "4" || got[2] != "email" || got[4] != "john@x.com" {
		t.Errorf("row = %v", got)
	}
	if got[5] != "91.5" {
		t.Errorf("confidence cell = %q, want 91.5", got[5])
	}
	var bb document.BBox
	if err := json.Unmarshal([]byte(got[6]), &bb); err != nil {
		t.Fatalf("bbox cell %q: %v", got[6], err)
	}
	if bb != (document.BBox{X: 100, Y: 50, W: 40, H: 10}) {
		t.Errorf("bbox = %+v", bb)
	}

	// Absent confidence stays blank, never 0.
	if rows[3][5] != "" {
		t.Errorf("missing confidence cell = %q, want empty", rows[3][5])
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	r := Build(sampleDoc())
	path := filepath.Join(t.TempDir(), "report.json")
	if err := r.SaveJSON(path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got Report
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Summary.Total != 3 || len(got.Items) != 3 {
		t.Errorf("round trip = %+v", got.Summary)
	}
}

func TestWriteXLSX(t *testing.T) {
	r := Build(sampleDoc())
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := r.WriteXLSX(path); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	// xlsx is a zip container
	if len(raw) < 4 || raw[0] != 'P' || raw[1] != 'K' {
		t.Errorf("not a zip archive: % x", raw[:4])
	}
}
