// Package parser turns free-form expense descriptions into the raw structured
// form the core canonicalizer consumes. The primary implementation delegates
// to Gemini; a keyword-driven heuristic parser covers setups without an API
// key and serves as the in-process fallback when the model misbehaves.
package parser

import (
	"context"

	"github.com/i-dipanshu/project-raseed/internal/core"
)

// Parser produces a raw parse from a natural-language expense description.
type Parser interface {
	Parse(ctx context.Context, text string) (core.RawParse, error)
}
