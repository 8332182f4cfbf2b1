// Package scoring asks an LLM oracle to grade one section against a fixed rubric.
package scoring

import (
	"context"
	"fmt"
	"time"

	"careaudit-backend/internal/careplan"
	"careaudit-backend/internal/llm"
)

const (
	defaultMaxOutputTokens = 4096
	defaultTimeout         = 90 * time.Second
)

// Options configures a Scorer.
type Options struct {
	Rubric          Rubric
	MaxOutputTokens int32
	Timeout         time.Duration
}

// Scorer scores sections. It performs exactly one oracle call per section.
type Scorer struct {
	oracle    llm.Oracle
	rubric    Rubric
	maxTokens int32
	timeout   time.Duration
}

// New constructs a Scorer. Zero options fall back to the care plan rubric,
// 4096 output tokens and a 90s timeout.
func New(oracle llm.Oracle, opts Options) *Scorer {
	if opts.Rubric.Template == "" {
		opts.Rubric = CarePlanRubric
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Scorer{oracle: oracle, rubric: opts.Rubric, maxTokens: opts.MaxOutputTokens, timeout: opts.Timeout}
}

// WithRubric returns a copy of s using rubric r.
func (s *Scorer) WithRubric(r Rubric) *Scorer {
	cp := *s
	cp.rubric = r
	return &cp
}

// Score grades one section. Name, extracted content and metadata are taken
// from the input section, never from the oracle.
func (s *Scorer) Score(ctx context.Context, section careplan.Section, subject string) (SectionResult, error) {
	if s.oracle == nil {
		return SectionResult{}, llm.ErrNotImplemented
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.oracle.Generate(callCtx, llm.Request{
		SystemInstruction: s.rubric.SystemInstruction,
		Prompt:            s.rubric.BuildPrompt(section, subject),
		MaxOutputTokens:   s.maxTokens,
		JSONOnly:          true,
	})
	if err != nil {
		return SectionResult{}, fmt.Errorf("score section %q: %w", section.Name, err)
	}
	parsed, err := parseResponse(raw)
	if err != nil {
		return SectionResult{}, fmt.Errorf("score section %q: %w", section.Name, err)
	}
	return SectionResult{
		SectionName:      section.Name,
		Score:            parsed.Score,
		ExtractedContent: section.Fields,
		Metadata:         section.Metadata,
		Issues:           parsed.Issues,
	}, nil
}
