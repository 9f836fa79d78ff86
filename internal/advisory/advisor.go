// Package advisory narrates ROI results in plain language and answers
// solar questions, falling back to fixed text when no generator is usable.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/provider/resilience"
)

// Source identifies where advisory text came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// ErrEmptyMessage is returned by Chat for a blank question.
var ErrEmptyMessage = errors.New("message is required")

const (
	chatSystemPrompt = "You are a helpful solar advisor for non-technical users. Explain solar terms simply, provide practical guidance, and include a short note to verify final subsidy/cost details with official portals and installers."

	chatFallback = "I can explain solar sizing, kW meaning, ROI, and smart appliance timing in plain language. Add GEMINI_API_KEY for real-time AI responses. Please verify final costs/subsidies with official portals."
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Context is the ROI summary the explanation is built from.
type Context struct {
	Location         string
	SystemSizeKW     float64
	AnnualGeneration float64
	OutputCategory   string
	AnnualSavings    float64
	PaybackPeriod    float64
}

// Explanation is advisory text and its origin.
type Explanation struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// AdvisorConfig holds configuration for the advisor.
type AdvisorConfig struct {
	// Generator is optional. Without it every answer is the fixed text.
	Generator Generator

	// Timeout bounds each generator call (default: 12 seconds).
	Timeout time.Duration

	Logger zerolog.Logger

	// OnDegraded is called whenever fixed text replaces generated text.
	OnDegraded func(ctx context.Context, reason error)
}

// Advisor produces homeowner-facing explanations.
type Advisor struct {
	generator  Generator
	timeout    time.Duration
	logger     zerolog.Logger
	onDegraded func(ctx context.Context, reason error)
}

// NewAdvisor creates a new advisor.
func NewAdvisor(cfg AdvisorConfig) *Advisor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &Advisor{
		generator:  cfg.Generator,
		timeout:    timeout,
		logger:     cfg.Logger,
		onDegraded: cfg.OnDegraded,
	}
}

// Explain narrates an ROI result. It never fails and never waits longer
// than the configured timeout.
func (a *Advisor) Explain(ctx context.Context, c Context) Explanation {
	fallback := Explanation{Text: FallbackExplanation(c), Source: SourceFallback}
	return a.generate(ctx, "explanation", explanationPrompt(c), fallback)
}

// Chat answers a free-form solar question, optionally grounded in a
// caller-supplied context object.
func (a *Advisor) Chat(ctx context.Context, message string, chatContext map[string]any) (Explanation, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Explanation{}, ErrEmptyMessage
	}

	prompt := "User question: " + message
	if len(chatContext) > 0 {
		raw, err := json.Marshal(chatContext)
		if err != nil {
			return Explanation{}, fmt.Errorf("encoding chat context: %w", err)
		}
		prompt = "Context: " + string(raw) + "\n\n" + prompt
	}

	fallback := Explanation{Text: chatFallback, Source: SourceFallback}
	return a.generate(ctx, "chat", chatSystemPrompt+"\n\n"+prompt, fallback), nil
}

func (a *Advisor) generate(ctx context.Context, kind, prompt string, fallback Explanation) Explanation {
	if a.generator == nil {
		return fallback
	}

	call := resilience.Call[Explanation]{
		Name:    "advisory-" + kind,
		Timeout: a.timeout,
		Fallback: func(reason error) Explanation {
			if a.onDegraded != nil {
				a.onDegraded(ctx, reason)
			}
			return fallback
		},
		Logger: a.logger,
	}

	result := call.Run(ctx, func(ctx context.Context) (Explanation, error) {
		text, err := a.generator.Generate(ctx, prompt)
		if err != nil {
			return Explanation{}, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return Explanation{}, errors.New("generator returned empty text")
		}
		return Explanation{Text: text, Source: SourceAI}, nil
	})

	return result.Value
}

// FallbackExplanation is the deterministic explanation used when no
// generated text is available.
func FallbackExplanation(c Context) string {
	return fmt.Sprintf(
		"For %s, your %.2f kW solar system can generate about %.0f kWh/year (%s output). "+
			"With yearly savings near ₹%.0f, your estimated payback is %.1f years. "+
			"Final returns depend on actual tariff and usage behavior.",
		c.Location, c.SystemSizeKW, c.AnnualGeneration, c.OutputCategory, c.AnnualSavings, c.PaybackPeriod,
	)
}

func explanationPrompt(c Context) string {
	var b strings.Builder
	b.WriteString("Explain this to a non-technical homeowner in simple language.\n")
	fmt.Fprintf(&b, "Location: %s\n", c.Location)
	fmt.Fprintf(&b, "System size: %.2f kW\n", c.SystemSizeKW)
	fmt.Fprintf(&b, "Estimated annual generation: %.0f kWh\n", c.AnnualGeneration)
	fmt.Fprintf(&b, "Category: %s\n", c.OutputCategory)
	fmt.Fprintf(&b, "Annual savings: ₹%.0f\n", c.AnnualSavings)
	fmt.Fprintf(&b, "Payback: %.1f years\n", c.PaybackPeriod)
	b.WriteString("Also explain one basic term (kW or on-grid) naturally and add a caution to verify subsidies with official portals.")
	return b.String()
}
