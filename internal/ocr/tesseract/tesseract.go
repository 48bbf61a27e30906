// Package tesseract adapts gosseract (libtesseract) to the ocr.Engine
// contract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/docshield/redactor/internal/document"
	"github.com/docshield/redactor/internal/ocr"
)

// Engine runs word-level OCR through a fresh gosseract client per page.
// A client is not safe for concurrent use, so sharing one across pages
// would serialize callers anyway.
type Engine struct {
	lang          string
	psm           string
	clientFactory func() *gosseract.Client
}

// New constructs a tesseract engine and probes the installation: a missing
// binary or language pack fails here, before any page work starts.
func New(lang, psm string) (*Engine, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = "eng"
	}
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("tesseract: engine unavailable (is tesseract installed?): %w", err)
	}
	found := false
	for _, l := range langs {
		if l == lang {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("tesseract: language %q not installed (available: %s)", lang, strings.Join(langs, ","))
	}
	return &Engine{
		lang:          lang,
		psm:           strings.TrimSpace(psm),
		clientFactory: gosseract.NewClient,
	}, nil
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize implements ocr.Engine. Boxes come back at word granularity;
// whitespace-only words are dropped so downstream indices only count real
// tokens. Negative confidences (tesseract's "unknown") are reported as
// absent.
func (e *Engine) Recognize(ctx context.Context, png []byte) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: set image: %w", err)
	}
	if err := c.SetLanguage(e.lang); err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: set language: %w", err)
	}
	if e.psm != "" {
		if err := c.SetVariable(gosseract.SettableVariable("tessedit_pageseg_mode"), e.psm); err != nil {
			return ocr.Result{}, fmt.Errorf("tesseract: set psm: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: recognize: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract: word boxes: %w", err)
	}

	tokens := make([]document.Token, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		tok := document.Token{
			Text: word,
			BBox: document.BBox{
				X: float64(b.Box.Min.X),
				Y: float64(b.Box.Min.Y),
				W: float64(b.Box.Dx()),
				H: float64(b.Box.Dy()),
			},
			Source: "ocr",
		}
		if b.Confidence >= 0 {
			conf := b.Confidence
			tok.Conf = &conf
		}
		tokens = append(tokens, tok)
	}

	return ocr.Result{
		Tokens:    tokens,
		PlainText: strings.TrimSpace(text),
	}, nil
}
