// Package classify assigns PII annotations to the tokens of a positions
// document. Pages are split into bounded-size chunks; each chunk goes to a
// remote classifier, and a deterministic regex fallback covers any chunk the
// remote call cannot serve. The two sources are never combined for the same
// chunk.
package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/docshield/redactor/internal/document"
)

// Finding marks one token as PII. Index is 0-based and local to the word
// list the classifier was given.
type Finding struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
}

// Remote classifies one chunk of words. Implementations return the findings
// parsed from the service response, or an error when the call failed or the
// payload could not be parsed. Implementations must be safe for concurrent
// use and must honor ctx.
type Remote interface {
	ClassifyChunk(ctx context.Context, words []string) ([]Finding, error)
}

// Tagger runs the classification stage.
type Tagger struct {
	remote     Remote
	chunkSize  int
	chunkDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithChunkDelay sets the pause between chunk requests. Zero disables it.
func WithChunkDelay(d time.Duration) Option {
	return func(t *Tagger) { t.chunkDelay = d }
}

// NewTagger creates a Tagger. remote may be nil, in which case every chunk
// uses the fallback patterns. chunkSize must be positive.
func NewTagger(remote Remote, chunkSize int, opts ...Option) *Tagger {
	if chunkSize < 1 {
		chunkSize = 1
	}
	t := &Tagger{
		remote:    remote,
		chunkSize: chunkSize,
		sleep:     sleepCtx,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TagDocument classifies every page and returns a new document with every
// token's annotation set. The input is not mutated.
func (t *Tagger) TagDocument(ctx context.Context, doc *document.Document) (*document.Document, error) {
	out := doc.Clone()
	for pi := range out.Pages {
		page := &out.Pages[pi]
		if err := t.tagPage(ctx, page); err != nil {
			return nil, err
		}
		slog.Info("page classified",
			"page", page.Number,
			"tokens", len(page.Tokens),
			"flagged", flaggedOnPage(page),
		)
	}
	return out, nil
}

// tagPage classifies one page's token sequence in place.
// Every token's index within the page is its stable identity: findings are
// remapped from chunk-local to page-global indices by adding the chunk
// offset, out-of-range indices are dropped, and the first classification per
// index wins.
func (t *Tagger) tagPage(ctx context.Context, page *document.Page) error {
	toks := page.Tokens
	for start := 0; start < len(toks); start += t.chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + t.chunkSize
		if end > len(toks) {
			end = len(toks)
		}
		chunk := toks[start:end]

		findings, remote := t.classifyChunk(ctx, chunk)
		if !remote {
			findings = FallbackFindings(chunk)
		}

		mark(toks, findings, start)

		if t.chunkDelay > 0 && end < len(toks) {
			t.sleep(ctx, t.chunkDelay)
		}
	}
	return nil
}

// classifyChunk asks the remote classifier for one chunk. The second return
// value reports a remote hit: true means the remote answer is authoritative
// for this chunk and the fallback must not run. An error, a malformed
// payload, or an empty result is a miss; misses are logged, never fatal.
func (t *Tagger) classifyChunk(ctx context.Context, chunk []document.Token) ([]Finding, bool) {
	if t.remote == nil {
		return nil, false
	}
	words := make([]string, len(chunk))
	for i, tok := range chunk {
		words[i] = tok.Text
	}
	findings, err := t.remote.ClassifyChunk(ctx, words)
	if err != nil {
		slog.Warn("remote classification unavailable, using pattern fallback", "err", err)
		return nil, false
	}
	if len(findings) == 0 {
		return nil, false
	}
	return findings, true
}

// mark writes findings into toks after remapping chunk-local indices by
// offset. Indices outside the page are dropped silently; an already-flagged
// token keeps its first classification.
func mark(toks []document.Token, findings []Finding, offset int) {
	for _, f := range findings {
		idx := offset + f.Index
		if idx < 0 || idx >= len(toks) {
			continue
		}
		if toks[idx].PII.IsPII {
			continue
		}
		typ := f.Type
		if typ == "" {
			typ = "other"
		}
		toks[idx].PII = document.PII{IsPII: true, Type: typ}
	}
}

func flaggedOnPage(page *document.Page) int {
	n := 0
	for _, tok := range page.Tokens {
		if tok.PII.IsPII {
			n++
		}
	}
	return n
}

// sleepCtx pauses for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
