// Package document defines the token/page/document model shared by every
// pipeline stage, plus the JSON artifact formats written between stages
// (the positions document from OCR and the classified document from the
// PII tagger).
//
// A token's index within its page is its identity for the whole run: stages
// transform a Document into a new Document but never drop, insert or reorder
// tokens.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformed reports an artifact missing its required top-level structure.
var ErrMalformed = errors.New("malformed artifact: missing top-level pages array")

// BBox is an axis-aligned box in image pixel space, origin top-left.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PII is the classification annotation attached to a token. It starts as
// {false, ""}, is set at most once by the classifier and cleared at most
// once by the category filter.
type PII struct {
	IsPII bool   `json:"is_pii"`
	Type  string `json:"type,omitempty"`
}

// Token is one recognized word with its pixel bounding box.
// Conf is nil when the extractor reported no usable confidence.
type Token struct {
	Text   string   `json:"text"`
	BBox   BBox     `json:"bbox"`
	Conf   *float64 `json:"conf,omitempty"`
	Source string   `json:"source"`
	PII    PII      `json:"pii"`
}

// Page holds the tokens of one rasterized page. Width and Height are the
// rendered image dimensions at the DPI the run was rasterized with; they are
// required later to convert pixel coordinates back to page points.
type Page struct {
	Number int     `json:"page"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Tokens []Token `json:"words"`
}

// Document is the single artifact threaded through all pipeline stages.
type Document struct {
	Pages []Page `json:"pages"`
}

// Clone returns a deep copy. Stages transform a fresh copy instead of
// mutating their input, so no two stages ever alias the same token slice.
func (d *Document) Clone() *Document {
	out := &Document{Pages: make([]Page, len(d.Pages))}
	for i, p := range d.Pages {
		np := p
		np.Tokens = make([]Token, len(p.Tokens))
		copy(np.Tokens, p.Tokens)
		for j := range np.Tokens {
			if c := np.Tokens[j].Conf; c != nil {
				v := *c
				np.Tokens[j].Conf = &v
			}
		}
		out.Pages[i] = np
	}
	return out
}

// FlaggedCount returns the number of tokens currently flagged as PII.
func (d *Document) FlaggedCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, t := range p.Tokens {
			if t.PII.IsPII {
				n++
			}
		}
	}
	return n
}

// Load reads a positions or classified document from path. A file whose
// top-level object has no "pages" array fails with ErrMalformed.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	return Decode(raw)
}

// Decode parses artifact bytes. See Load.
func Decode(raw []byte) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("document: %w: %v", ErrMalformed, err)
	}
	pagesRaw, ok := probe["pages"]
	if !ok {
		return nil, ErrMalformed
	}
	var pages []Page
	if err := json.Unmarshal(pagesRaw, &pages); err != nil {
		return nil, fmt.Errorf("document: %w: %v", ErrMalformed, err)
	}
	return &Document{Pages: pages}, nil
}

// Save writes the document as indented JSON so artifacts stay reviewable.
func Save(path string, d *Document) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("document: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("document: write %s: %w", path, err)
	}
	return nil
}
