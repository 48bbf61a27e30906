// Package pipeline chains the stages: rasterize/extract → classify →
// category filter → redact, with the report builder fanning out from the
// same filtered document the redactor consumes. Every stage writes its
// artifact next to the input so a run can be inspected or resumed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docshield/redactor/internal/category"
	"github.com/docshield/redactor/internal/document"
	"github.com/docshield/redactor/internal/redact"
	"github.com/docshield/redactor/internal/report"
)

// Extractor produces the positions document and the plain-text transcript.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (*document.Document, string, error)
}

// Tagger classifies a positions document.
type Tagger interface {
	TagDocument(ctx context.Context, doc *document.Document) (*document.Document, error)
}

// Deps are the collaborators, injected so each can be faked in tests.
// NewExtractor is a factory because building the OCR engine probes the
// tesseract installation; a run that reuses an existing positions artifact
// must not require one.
type Deps struct {
	NewExtractor func() (Extractor, error)
	Tagger       Tagger // nil when classification is skipped
	OpenEngine   func(pdfPath string) (redact.Engine, error)
}

// Options are the per-run knobs.
type Options struct {
	InputPDF     string
	OutBase      string // artifact base path, no extension
	DPI          int
	MarginPx     float64
	Label        bool
	Keep         category.Set
	SkipClassify bool
	SkipRedact   bool
}

// Result reports what a run produced.
type Result struct {
	PositionsPath  string
	TranscriptPath string
	ClassifiedPath string
	FilteredPath   string
	RedactedPath   string
	ReportJSONPath string
	ReportCSVPath  string
	ReportXLSXPath string

	Report     *report.Report
	Redactions int
	Degraded   int
}

// Run executes the pipeline. Stages run strictly in order; cancellation via
// ctx aborts between units of work and leaves already-written artifacts in
// place, but never a partial redacted PDF (the engine saves last).
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	if _, err := os.Stat(opts.InputPDF); err != nil {
		return nil, fmt.Errorf("input PDF not found: %s", opts.InputPDF)
	}

	res := &Result{
		PositionsPath:  opts.OutBase + ".positions.json",
		TranscriptPath: opts.OutBase + ".txt",
		ClassifiedPath: opts.OutBase + ".with_pii.json",
		FilteredPath:   opts.OutBase + ".filtered_pii.json",
		RedactedPath:   opts.OutBase + ".redacted.pdf",
		ReportJSONPath: opts.OutBase + ".redaction_report.json",
		ReportCSVPath:  opts.OutBase + ".redaction_report.csv",
		ReportXLSXPath: opts.OutBase + ".redaction_report.xlsx",
	}

	positions, err := loadOrExtract(ctx, opts, deps, res)
	if err != nil {
		return nil, err
	}

	classified, err := classifyStep(ctx, opts, deps, res, positions)
	if err != nil {
		return nil, err
	}

	filtered := category.Filter(classified, opts.Keep)
	if err := document.Save(res.FilteredPath, filtered); err != nil {
		return nil, err
	}

	// Report fan-out: consumes the same filtered document the redactor does.
	res.Report = report.Build(filtered)
	if err := res.Report.SaveJSON(res.ReportJSONPath); err != nil {
		return nil, err
	}
	if err := res.Report.SaveCSV(res.ReportCSVPath); err != nil {
		return nil, err
	}
	if err := res.Report.WriteXLSX(res.ReportXLSXPath); err != nil {
		return nil, err
	}
	slog.Info("report written",
		"total", res.Report.Summary.Total,
		"json", res.ReportJSONPath,
		"csv", res.ReportCSVPath,
	)

	if opts.SkipRedact {
		slog.Info("redaction skipped")
		res.RedactedPath = ""
		return res, nil
	}

	if err := redactStep(ctx, opts, deps, res, filtered); err != nil {
		return nil, err
	}
	return res, nil
}

// loadOrExtract reuses a valid positions artifact when one is already on
// disk, otherwise rasterizes and OCRs the input.
func loadOrExtract(ctx context.Context, opts Options, deps Deps, res *Result) (*document.Document, error) {
	if _, err := os.Stat(res.PositionsPath); err == nil {
		doc, err := document.Load(res.PositionsPath)
		if err == nil {
			slog.Info("reusing existing positions artifact", "path", res.PositionsPath)
			return doc, nil
		}
		slog.Warn("existing positions artifact unusable, re-extracting", "path", res.PositionsPath, "err", err)
	}

	extractor, err := deps.NewExtractor()
	if err != nil {
		return nil, err
	}
	doc, transcript, err := extractor.Extract(ctx, opts.InputPDF)
	if err != nil {
		return nil, err
	}
	if err := document.Save(res.PositionsPath, doc); err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.TranscriptPath, []byte(transcript), 0o644); err != nil {
		return nil, fmt.Errorf("pipeline: write transcript: %w", err)
	}
	slog.Info("positions written", "path", res.PositionsPath, "pages", len(doc.Pages))
	return doc, nil
}

// classifyStep tags the document, or when classification is skipped, loads
// a previously classified artifact.
func classifyStep(ctx context.Context, opts Options, deps Deps, res *Result, positions *document.Document) (*document.Document, error) {
	if opts.SkipClassify {
		doc, err := document.Load(res.ClassifiedPath)
		if err != nil {
			return nil, fmt.Errorf("classification skipped but no usable %s: %w", res.ClassifiedPath, err)
		}
		slog.Info("reusing existing classified artifact", "path", res.ClassifiedPath)
		return doc, nil
	}

	classified, err := deps.Tagger.TagDocument(ctx, positions)
	if err != nil {
		return nil, err
	}
	if err := document.Save(res.ClassifiedPath, classified); err != nil {
		return nil, err
	}
	slog.Info("classification written", "path", res.ClassifiedPath, "flagged", classified.FlaggedCount())
	return classified, nil
}

// redactStep drives the redaction engine and saves the output PDF.
func redactStep(ctx context.Context, opts Options, deps Deps, res *Result, filtered *document.Document) error {
	engine, err := deps.OpenEngine(opts.InputPDF)
	if err != nil {
		return err
	}
	defer engine.Close()

	applier, err := redact.NewApplier(engine, redact.Options{
		DPI:      opts.DPI,
		MarginPx: opts.MarginPx,
		Label:    opts.Label,
	})
	if err != nil {
		return err
	}

	applied, err := applier.Apply(ctx, filtered)
	if err != nil {
		return err
	}
	if err := engine.Save(res.RedactedPath); err != nil {
		return err
	}

	res.Redactions = applied.Total
	res.Degraded = applied.Degraded
	if applied.Degraded > 0 {
		slog.Warn("some boxes are cosmetic overlays without content removal",
			"count", applied.Degraded)
	}
	slog.Info("redacted PDF written", "path", res.RedactedPath, "boxes", applied.Total)
	return nil
}
