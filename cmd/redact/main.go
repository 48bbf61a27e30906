// Command redact runs the OCR → PII → redaction pipeline over one PDF:
//
//	redact [flags] input.pdf
//
// Artifacts (positions, classified, filtered, transcript, redacted PDF and
// the redaction report in JSON/CSV/XLSX) are written next to the input
// under the -out base name.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/docshield/redactor/internal/audit"
	"github.com/docshield/redactor/internal/category"
	"github.com/docshield/redactor/internal/classify"
	"github.com/docshield/redactor/internal/classify/gemini"
	"github.com/docshield/redactor/internal/config"
	"github.com/docshield/redactor/internal/ocr/tesseract"
	"github.com/docshield/redactor/internal/pipeline"
	"github.com/docshield/redactor/internal/raster"
	"github.com/docshield/redactor/internal/redact"
	"github.com/docshield/redactor/internal/redact/rasterengine"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var (
		outBase    = flag.String("out", "", "output base path (default: input filename without extension)")
		dpi        = flag.Int("dpi", 300, "render DPI used for OCR and geometry")
		lang       = flag.String("lang", "", "tesseract language (default from OCR_LANG)")
		psm        = flag.String("psm", "", "tesseract page segmentation mode (default from OCR_PSM)")
		types      = flag.String("types", "all", "comma-separated PII categories to redact: name,email,phone,address,ip,id_number,password,other")
		margin     = flag.Float64("margin", 3, "redaction padding in image pixels")
		label      = flag.Bool("label", false, "burn a short type label onto each redaction box")
		labelSize  = flag.Float64("label-size", 8, "label font size in points")
		skipPII    = flag.Bool("skip-pii", false, "skip classification; reuse an existing .with_pii.json")
		skipRedact = flag.Bool("skip-redact", false, "stop after classification and report")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] input.pdf\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPDF := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	if *lang == "" {
		*lang = cfg.OCRLang
	}
	if *psm == "" {
		*psm = cfg.OCRPSM
	}
	if *dpi <= 0 {
		slog.Error("invalid -dpi", "dpi", *dpi)
		os.Exit(1)
	}

	keep := category.ParseSet(*types)
	if len(keep) == 0 {
		slog.Info("no valid PII categories selected, nothing to do")
		return
	}

	if *outBase == "" {
		*outBase = strings.TrimSuffix(inputPDF, filepath.Ext(inputPDF))
	}

	deps := pipeline.Deps{
		NewExtractor: func() (pipeline.Extractor, error) {
			engine, err := tesseract.New(*lang, *psm)
			if err != nil {
				return nil, err
			}
			return raster.NewExtractor(engine, *dpi)
		},
		OpenEngine: func(path string) (redact.Engine, error) {
			return rasterengine.Open(path, *dpi, *labelSize)
		},
	}

	if !*skipPII {
		if err := cfg.RequireGeminiKey(); err != nil {
			slog.Error("config error", "err", err)
			os.Exit(1)
		}
		remote, err := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.RequestTimeout)
		if err != nil {
			slog.Error("classifier error", "err", err)
			os.Exit(1)
		}
		deps.Tagger = classify.NewTagger(remote, cfg.WordsPerChunk,
			classify.WithChunkDelay(cfg.ChunkDelay))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	res, err := pipeline.Run(ctx, pipeline.Options{
		InputPDF:     inputPDF,
		OutBase:      *outBase,
		DPI:          *dpi,
		MarginPx:     *margin,
		Label:        *label,
		Keep:         keep,
		SkipClassify: *skipPII,
		SkipRedact:   *skipRedact,
	}, deps)
	if err != nil {
		slog.Error("pipeline failed", "err", err)
		os.Exit(1)
	}

	if cfg.AuditDB != "" {
		logAudit(cfg.AuditDB, audit.Run{
			ID:         audit.NewRunID(),
			StartedAt:  started,
			FinishedAt: time.Now(),
			InputPath:  inputPDF,
			OutputPath: res.RedactedPath,
			DPI:        *dpi,
			Categories: audit.JoinCategories(keep.Names()),
			Redactions: res.Redactions,
			Degraded:   res.Degraded,
		})
	}

	slog.Info("pipeline complete",
		"redactions", res.Redactions,
		"degraded", res.Degraded,
		"report", res.ReportJSONPath,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
}

// logAudit records the run; audit failures are warnings, never run
// failures.
func logAudit(dbPath string, run audit.Run) {
	store, err := audit.Open(dbPath)
	if err != nil {
		slog.Warn("audit trail unavailable", "err", err)
		return
	}
	defer store.Close()
	if err := store.LogRun(run); err != nil {
		slog.Warn("audit write failed", "err", err)
	}
}
