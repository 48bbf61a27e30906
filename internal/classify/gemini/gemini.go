// Package gemini implements the remote classifier contract against the
// Gemini generateContent API. Any failure (transport, non-JSON payload,
// unparsable content) is returned as an error so the tagger can fall back
// to its local patterns; nothing here ever aborts a run.
package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/docshield/redactor/internal/classify"
)

//go:embed prompt.txt
var taggerPrompt string

// Classifier calls Gemini with a numbered word list and parses the
// {"redactions": [...]} answer.
type Classifier struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// New creates a Classifier. It fails when the API key is empty so that a
// misconfigured run aborts before any page is processed.
func New(apiKey, model string, timeout time.Duration) (*Classifier, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is empty")
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Classifier{
		apiKey:  apiKey,
		model:   strings.TrimSpace(model),
		timeout: timeout,
	}, nil
}

// response is the JSON shape the prompt demands.
type response struct {
	Redactions []classify.Finding `json:"redactions"`
}

// ClassifyChunk implements classify.Remote.
func (c *Classifier) ClassifyChunk(ctx context.Context, words []string) ([]classify.Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}

	resp, err := m.GenerateContent(ctx, genai.Text(buildPrompt(words)))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}

	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return nil, errors.New("gemini: empty response")
	}
	txt = stripCodeFence(strings.TrimSpace(txt))

	var parsed response
	if err := json.Unmarshal([]byte(txt), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: bad JSON: %w", err)
	}

	// Bound-check against the chunk so a hallucinated index cannot flag a
	// token the model never saw.
	out := make([]classify.Finding, 0, len(parsed.Redactions))
	for _, f := range parsed.Redactions {
		if f.Index < 0 || f.Index >= len(words) {
			continue
		}
		if f.Type == "" {
			f.Type = "other"
		}
		out = append(out, f)
	}
	return out, nil
}

// buildPrompt renders the tagger instructions followed by one
// `index: "word"` line per token.
func buildPrompt(words []string) string {
	var sb strings.Builder
	sb.WriteString(taggerPrompt)
	for i, w := range words {
		quoted, _ := json.Marshal(w)
		fmt.Fprintf(&sb, "%d: %s\n", i, quoted)
	}
	return sb.String()
}

// firstText returns the first text part of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers some models
// add despite the JSON response mode.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func ptrFloat32(v float32) *float32 { return &v }
