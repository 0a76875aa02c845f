// Package extraction turns a book cover photo into a draft bibliographic
// record using a multimodal vision model. A draft is untrusted, unpersisted
// input: the caller confirms it before anything is written to the store, and
// store-level constraints (ISBN uniqueness) are checked at write time, not
// here.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 30 * time.Second
)

// ErrMissingAPIKey indicates the vision model credential is absent or still
// a placeholder. It is a configuration problem for the operator, not a
// retriable fault.
var ErrMissingAPIKey = errors.New("gemini API key is not configured: set GEMINI_API_KEY in the environment or .env file")

// Error wraps any model, network, timeout or parse failure. Extraction never
// lets a fault escape unhandled; callers always see either a Draft or this.
type Error struct {
	Raw string
}

func (e *Error) Error() string {
	return "cover extraction failed: " + e.Raw
}

// Draft is the model's proposed bibliographic record. ISBN is nullable: the
// model reports null when none is visible on the cover.
type Draft struct {
	Title   string  `json:"title"`
	Author  string  `json:"author"`
	ISBN    *string `json:"isbn"`
	Summary string  `json:"summary"`
}

// Config carries the vision model settings, validated once at construction.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// The summary language is part of the prompt contract and not negotiable by
// callers.
const extractionPrompt = `Analyze this book cover and extract the following information in JSON format:
{
    "title": "Book Title",
    "author": "Author Name",
    "isbn": "ISBN if visible, else null",
    "summary": "A short summary of what the book might be about based on the cover and title. The summary MUST be in Arabic language."
}
Return ONLY the JSON.`

// generator abstracts the vision model call so tests can substitute a fake.
type generator interface {
	generate(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error)
}

// Extractor is the cover-to-metadata pipeline.
type Extractor struct {
	cfg Config
	gen generator
}

// New validates the configuration and builds an extractor backed by Gemini.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" || strings.HasPrefix(cfg.APIKey, "your_") {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Extractor{
		cfg: cfg,
		gen: &geminiGenerator{apiKey: cfg.APIKey, model: cfg.Model},
	}, nil
}

// Extract submits the cover image to the vision model and decodes its reply.
// The call is bounded by the configured timeout; a timeout surfaces as
// *Error{"timeout"}, not as a hung request. Extraction performs no store
// writes, so cancellation can never leave a partial record behind.
func (e *Extractor) Extract(ctx context.Context, imageData []byte, mimeType string) (*Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	text, err := e.gen.generate(ctx, extractionPrompt, imageData, mimeType)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Raw: "timeout"}
		}
		return nil, &Error{Raw: err.Error()}
	}

	var draft Draft
	if err := json.Unmarshal([]byte(stripFences(text)), &draft); err != nil {
		return nil, &Error{Raw: text}
	}
	return &draft, nil
}

// stripFences removes at most one leading and one trailing Markdown code
// fence, which models routinely wrap around JSON replies.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
