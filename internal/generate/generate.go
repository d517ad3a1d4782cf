// Package generate drives the generative backends through a bounded retry
// loop until the output word count lands within tolerance of the target.
//
// Each attempt calls the primary backend and falls back once to the
// secondary on error. Out-of-tolerance results are kept when they improve
// on the best attempt so far, so exhaustion still yields the closest text
// produced. Only a run where every backend call errored is a failure.
package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/llm"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/prompt"
)

// Defaults for the retry loop.
const (
	DefaultTolerance  = 15
	DefaultMaxRetries = 2
)

// ErrExhausted is returned when every backend call across every attempt
// errored and no text was produced at all.
var ErrExhausted = errors.New("generate: all attempts failed")

// Outcome says how a generation run ended.
type Outcome int

const (
	// Succeeded means the final text is within tolerance of the target.
	Succeeded Outcome = iota
	// Exhausted means retries ran out; the text is the best attempt seen
	// but outside tolerance. This is a degraded success, not an error.
	Exhausted
)

func (o Outcome) String() string {
	if o == Succeeded {
		return "succeeded"
	}
	return "exhausted"
}

// Result is the product of a generation run.
type Result struct {
	Text      string
	WordCount int
	Target    int
	Attempts  int
	Outcome   Outcome
	Provider  string // backend that produced the final text
}

// WithinTolerance reports whether the result landed inside the word
// tolerance it was generated under.
func (r Result) WithinTolerance() bool { return r.Outcome == Succeeded }

// Generator runs the constrained retry loop. Safe for concurrent use.
type Generator struct {
	primary    llm.Provider
	fallback   llm.Provider // may be nil
	tolerance  int
	maxRetries int
	limiter    *rate.Limiter // may be nil
	logger     log.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithFallback sets the secondary backend tried once per attempt when the
// primary errors.
func WithFallback(p llm.Provider) Option {
	return func(g *Generator) { g.fallback = p }
}

// WithTolerance sets the accepted word-count deviation.
func WithTolerance(n int) Option {
	return func(g *Generator) { g.tolerance = n }
}

// WithMaxRetries sets how many corrective retries follow the first attempt.
func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = n }
}

// WithRateLimit throttles backend calls to r per second with the given
// burst.
func WithRateLimit(r float64, burst int) Option {
	return func(g *Generator) { g.limiter = rate.NewLimiter(rate.Limit(r), burst) }
}

// New creates a Generator around the primary backend.
func New(primary llm.Provider, logger log.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	g := &Generator{
		primary:    primary,
		tolerance:  DefaultTolerance,
		maxRetries: DefaultMaxRetries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// attempt is one retained generation attempt.
type attempt struct {
	text      string
	wordCount int
	score     int
	provider  string
}

// Generate runs up to maxRetries+1 attempts toward targetWords.
// It returns ErrExhausted only when no attempt produced any text.
func (g *Generator) Generate(ctx context.Context, basePrompt string, targetWords int, opts llm.Options) (Result, error) {
	current := basePrompt
	var best *attempt

	for n := 0; n <= g.maxRetries; n++ {
		text, provider, err := g.complete(ctx, current, opts)
		if err != nil {
			g.logger.Warn("generation attempt failed", "attempt", n+1, "error", err)
			continue
		}

		text = Normalize(text)
		if text == "" {
			g.logger.Warn("generation attempt produced empty text", "attempt", n+1)
			continue
		}

		wc := WordCount(text)
		score := wc - targetWords
		if score < 0 {
			score = -score
		}

		if score <= g.tolerance {
			g.logger.Info("generation within tolerance",
				"attempt", n+1, "words", wc, "target", targetWords)
			return Result{
				Text:      text,
				WordCount: wc,
				Target:    targetWords,
				Attempts:  n + 1,
				Outcome:   Succeeded,
				Provider:  provider,
			}, nil
		}

		// Lowest score wins; the first attempt keeps ties.
		if best == nil || score < best.score {
			best = &attempt{text: text, wordCount: wc, score: score, provider: provider}
		}

		g.logger.Debug("generation outside tolerance, retrying",
			"attempt", n+1, "words", wc, "target", targetWords)
		current = basePrompt + prompt.CorrectiveSuffix(wc, targetWords)
	}

	if best == nil {
		return Result{}, ErrExhausted
	}

	g.logger.Warn("generation exhausted retries, returning best attempt",
		"words", best.wordCount, "target", targetWords)
	return Result{
		Text:      best.text,
		WordCount: best.wordCount,
		Target:    targetWords,
		Attempts:  g.maxRetries + 1,
		Outcome:   Exhausted,
		Provider:  best.provider,
	}, nil
}

// complete calls the primary backend, falling back once to the secondary.
func (g *Generator) complete(ctx context.Context, p string, opts llm.Options) (string, string, error) {
	if err := g.wait(ctx); err != nil {
		return "", "", err
	}

	text, err := g.primary.Complete(ctx, p, opts)
	if err == nil {
		return text, g.primary.Name(), nil
	}
	if g.fallback == nil {
		return "", "", err
	}

	g.logger.Warn("primary backend failed, trying fallback",
		"primary", g.primary.Name(), "fallback", g.fallback.Name(), "error", err)

	if werr := g.wait(ctx); werr != nil {
		return "", "", werr
	}
	text, ferr := g.fallback.Complete(ctx, p, llm.Options{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if ferr != nil {
		return "", "", fmt.Errorf("primary: %w; fallback: %v", err, ferr)
	}
	return text, g.fallback.Name(), nil
}

func (g *Generator) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

// Normalize strips emphasis asterisks and collapses runs of blank lines
// and repeated spaces. Formatting only; the words are untouched.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// WordCount counts whitespace-delimited tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
