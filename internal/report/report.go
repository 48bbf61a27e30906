// Package report builds the redaction report from a filtered document: a
// summary (totals by type and by page) plus one itemized row per flagged
// token with its surrounding context. The nested JSON form, the flat CSV
// form and the XLSX form are all derived from the same items slice, so row
// order and field content always agree.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/docshield/redactor/internal/category"
	"github.com/docshield/redactor/internal/document"
)

// Summary aggregates counts over all items.
type Summary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
	ByPage map[int]int    `json:"by_page"`
}

// Item is the audit view of one flagged token.
type Item struct {
	Page       int           `json:"page"`
	Index      int           `json:"index"`
	Type       string        `json:"type"`
	Source     string        `json:"source"`
	Text       string        `json:"text"`
	Confidence *float64      `json:"confidence"`
	BBox       document.BBox `json:"bbox"`
	PageWidth  int           `json:"page_width"`
	PageHeight int           `json:"page_height"`
	Context    string        `json:"context"`
}

// Report is the structured form.
type Report struct {
	Summary Summary `json:"summary"`
	Items   []Item  `json:"items"`
}

// contextRadius is how many non-empty neighbor tokens are collected on each
// side of a flagged token.
const contextRadius = 3

// Build derives the report from a filtered document. Items come out in
// page-then-index order. The document is read-only here; nothing feeds back
// into the pipeline.
func Build(doc *document.Document) *Report {
	r := &Report{
		Summary: Summary{
			ByType: make(map[string]int),
			ByPage: make(map[int]int),
		},
		Items: []Item{},
	}

	for _, page := range doc.Pages {
		for i, tok := range page.Tokens {
			if !tok.PII.IsPII {
				continue
			}
			typ := string(category.Normalize(tok.PII.Type))
			src := tok.Source
			if src == "" {
				src = "unknown"
			}
			r.Items = append(r.Items, Item{
				Page:       page.Number,
				Index:      i,
				Type:       typ,
				Source:     src,
				Text:       tok.Text,
				Confidence: tok.Conf,
				BBox:       tok.BBox,
				PageWidth:  page.Width,
				PageHeight: page.Height,
				Context:    contextAround(page.Tokens, i),
			})
			r.Summary.ByType[typ]++
			r.Summary.ByPage[page.Number]++
			r.Summary.Total++
		}
	}
	return r
}

// contextAround joins up to contextRadius non-empty tokens before and after
// index idx, with the token itself in the middle, in reading order.
func contextAround(toks []document.Token, idx int) string {
	var left []string
	for j := idx - 1; j >= 0 && len(left) < contextRadius; j-- {
		if t := toks[j].Text; t != "" {
			left = append(left, t)
		}
	}
	// collected right-to-left; restore reading order
	for i, j := 0, len(left)-1; i < j; i, j = i+1, j-1 {
		left[i], left[j] = left[j], left[i]
	}

	parts := append(left, toks[idx].Text)
	count := 0
	for j := idx + 1; j < len(toks) && count < contextRadius; j++ {
		if t := toks[j].Text; t != "" {
			parts = append(parts, t)
			count++
		}
	}

	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// csvHeader is the column order shared by the CSV and XLSX forms.
var csvHeader = []string{
	"page", "index", "type", "source", "text", "confidence",
	"bbox", "page_width", "page_height", "context",
}

// row flattens one item; bbox is serialized as a single JSON field.
func row(it Item) []string {
	conf := ""
	if it.Confidence != nil {
		conf = strconv.FormatFloat(*it.Confidence, 'f', -1, 64)
	}
	bbox, _ := json.Marshal(it.BBox)
	return []string{
		strconv.Itoa(it.Page),
		strconv.Itoa(it.Index),
		it.Type,
		it.Source,
		it.Text,
		conf,
		string(bbox),
		strconv.Itoa(it.PageWidth),
		strconv.Itoa(it.PageHeight),
		it.Context,
	}
}

// WriteJSON writes the structured form, indented.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes the flat tabular form, one row per item.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range r.Items {
		if err := cw.Write(row(it)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the flat form as a spreadsheet with the same columns and
// row order as the CSV.
func (r *Report) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Redactions"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}

	writeRow := func(rowNum int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow(1, csvHeader); err != nil {
		return fmt.Errorf("report: xlsx header: %w", err)
	}
	for i, it := range r.Items {
		if err := writeRow(i+2, row(it)); err != nil {
			return fmt.Errorf("report: xlsx row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// SaveJSON and SaveCSV are file-path conveniences for the pipeline.
func (r *Report) SaveJSON(path string) error { return saveWith(path, r.WriteJSON) }
func (r *Report) SaveCSV(path string) error  { return saveWith(path, r.WriteCSV) }

func saveWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
