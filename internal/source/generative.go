package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/deusflow/nrfinsight/internal/article"
	"github.com/deusflow/nrfinsight/internal/gemini"
)

const (
	// GenerativeMaxItems is how many articles the model is asked for.
	GenerativeMaxItems = 6
	// DefaultGroundingRunes bounds the grounding text appended to the prompt.
	DefaultGroundingRunes = 4000

	aiSourceLabel       = "AI Summary"
	citationSourceLabel = "Web"
)

// Generator is the generative backend; *gemini.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*gemini.Response, error)
}

// Limiter gates generative calls; *ratelimit.Budget satisfies it.
type Limiter interface {
	Use() error
}

// GenerativeOptions tunes the generative adapter. Zero values are usable.
type GenerativeOptions struct {
	// Grounding, when set, supplies headlines the model should rank and summarize.
	Grounding Adapter
	// GroundingRunes caps the grounding text; DefaultGroundingRunes when <= 0.
	GroundingRunes int
	Limiter        Limiter
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Generative asks a generative-language service for a ranked article list.
type Generative struct {
	gen  Generator
	opts GenerativeOptions
	log  *slog.Logger
}

func NewGenerative(gen Generator, opts GenerativeOptions) *Generative {
	if opts.GroundingRunes <= 0 {
		opts.GroundingRunes = DefaultGroundingRunes
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Generative{gen: gen, opts: opts, log: log.With("source", "gemini")}
}

func (g *Generative) Name() string { return "gemini" }

type generatedArticle struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Fetch never reports a parse problem: unreadable answers fall back to citations or nothing.
func (g *Generative) Fetch(ctx context.Context, query string) ([]article.Raw, error) {
	if g.opts.Limiter != nil {
		if err := g.opts.Limiter.Use(); err != nil {
			return nil, fmt.Errorf("gemini: %w: %v", ErrUnavailable, err)
		}
	}

	grounding := g.grounding(ctx, query)
	prompt := buildPrompt(query, grounding)

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	resp, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w: %v", ErrUnavailable, err)
	}

	items, err := parseGenerated(resp.Text)
	if err != nil {
		g.log.Warn("failed to parse JSON, falling back to citations",
			"error", err, "citations", len(resp.Citations))
		return citationItems(resp.Citations), nil
	}
	return items, nil
}

func (g *Generative) grounding(ctx context.Context, query string) string {
	if g.opts.Grounding == nil {
		return ""
	}
	items, err := g.opts.Grounding.Fetch(ctx, query)
	if err != nil {
		g.log.Warn("grounding unavailable, asking without it", "error", err)
		return ""
	}
	return groundingText(items, g.opts.GroundingRunes)
}

// groundingText renders one headline per line and cuts on a line boundary.
func groundingText(items []article.Raw, maxRunes int) string {
	var b strings.Builder
	runes := 0
	for _, it := range items {
		line := "- " + article.StripHTML(it.Title)
		if it.Source != "" {
			line += " (" + it.Source + ")"
		}
		if d := article.NormalizeDate(it.Date); d != "" {
			line += " " + d
		}
		if it.Link != "" {
			line += " " + it.Link
		}
		line += "\n"

		n := len([]rune(line))
		if runes+n > maxRunes {
			break
		}
		b.WriteString(line)
		runes += n
	}
	return b.String()
}

func buildPrompt(query, grounding string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search for the latest (last 7 days) Korean news articles about %q.\n", query)
	fmt.Fprintf(&b, "Select the %d most relevant and authoritative articles.\n", GenerativeMaxItems)
	b.WriteString("Sort the list by date descending (newest article first).\n")
	b.WriteString("Return a raw JSON array (no markdown code blocks) of objects with these exact keys:\n")
	b.WriteString(`- "title": A clear, concise headline in Korean (NOT a URL).` + "\n")
	b.WriteString(`- "date": The publication date in 'YYYY.MM.DD' format.` + "\n")
	b.WriteString(`- "source": The name of the news outlet.` + "\n")
	b.WriteString(`- "url": The direct link to the article.` + "\n")
	b.WriteString(`- "snippet": A 1-sentence summary.` + "\n")
	if grounding != "" {
		b.WriteString("\nChoose only from these recent headlines:\n")
		b.WriteString(grounding)
	}
	return b.String()
}

var fence = regexp.MustCompile("```(?:json|JSON)?")

// parseGenerated strips markdown fences and decodes the article array.
func parseGenerated(text string) ([]article.Raw, error) {
	clean := strings.TrimSpace(fence.ReplaceAllString(text, ""))
	if clean == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrParse)
	}

	var generated []generatedArticle
	if err := json.Unmarshal([]byte(clean), &generated); err != nil {
		// some answers wrap the array in prose
		start, end := strings.Index(clean, "["), strings.LastIndex(clean, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if err := json.Unmarshal([]byte(clean[start:end+1]), &generated); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	generated = limit(generated, GenerativeMaxItems)
	out := make([]article.Raw, 0, len(generated))
	for _, a := range generated {
		out = append(out, article.Raw{
			Title:          a.Title,
			Link:           a.URL,
			Source:         a.Source,
			Date:           a.Date,
			Snippet:        a.Snippet,
			FallbackSource: aiSourceLabel,
		})
	}
	return out, nil
}

func citationItems(uris []string) []article.Raw {
	uris = limit(uris, GenerativeMaxItems)
	out := make([]article.Raw, 0, len(uris))
	for _, uri := range uris {
		out = append(out, article.Raw{
			Title:          uri,
			Link:           uri,
			FallbackSource: citationSourceLabel,
		})
	}
	return out
}
