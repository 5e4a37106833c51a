// Package slug derives unique URL-safe article identifiers from titles.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sawirricardo/remix-realworld/pkg/config"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
	"github.com/sawirricardo/remix-realworld/pkg/telemetry"
)

// Fallback is used when a title contains nothing slug-worthy.
const Fallback = "article"

var collisions = telemetry.NewCounter("conduit.slug.collisions", "Slug candidates rejected because they were taken")

// Lookup reports whether an article already uses slug.
type Lookup interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Normalize folds diacritics, lowercases and trims title, drops every
// character outside [a-z0-9 ] and turns each run of spaces into a single
// hyphen. Separators left at either end by dropped characters are kept, so
// "Hello !" becomes "hello-". It never returns an empty string.
func Normalize(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	folded = strings.TrimSpace(strings.ToLower(folded))

	var b strings.Builder
	b.Grow(len(folded))
	inSpace := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			inSpace = false
		case r == ' ':
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
		}
	}

	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

// Generator resolves collisions against a Lookup.
type Generator struct {
	lookup Lookup
	mode   string
	logger *zap.Logger
}

// NewGenerator creates a generator. mode is one of config.SlugSuffixIncrement
// or config.SlugSuffixRepeat; anything else falls back to increment.
func NewGenerator(lookup Lookup, mode string) *Generator {
	if mode != config.SlugSuffixRepeat {
		mode = config.SlugSuffixIncrement
	}
	return &Generator{
		lookup: lookup,
		mode:   mode,
		logger: logging.WithComponent("slug"),
	}
}

// Generate returns the first free candidate for title.
// In increment mode candidates are x, x-2, x-3, ... and in repeat mode
// x, x-2, x-2-2, ...
func (g *Generator) Generate(ctx context.Context, title string) (string, error) {
	base := Normalize(title)
	candidate := base

	for n := 2; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		taken, err := g.lookup.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}

		collisions.Add(ctx, 1, attribute.String("mode", g.mode))
		g.logger.Debug("Slug taken", zap.String("slug", candidate))

		if g.mode == config.SlugSuffixRepeat {
			candidate += "-2"
		} else {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
	}
}
