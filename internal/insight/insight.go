// Package insight asks a language model for a narrative review of a
// presentation transcript. The review sits beside the rubric scores and a
// job completes without it when the model is unreachable or answers badly.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/orator/pkg/formatting"
)

// maxTranscriptRunes bounds the transcript sent in one prompt. Longer
// transcripts are cut at a word boundary.
const maxTranscriptRunes = 24000

// Insight is the model's review of a presentation.
type Insight struct {
	Summary  string   `json:"summary"`
	Feedback []string `json:"feedback"`
	Overall  float64  `json:"overall"`
	Model    string   `json:"model,omitempty"`
}

type response struct {
	Summary  string   `json:"resumen"`
	Feedback []string `json:"feedback"`
	Scores   struct {
		Overall float64 `json:"overall"`
	} `json:"scores"`
}

// Advisor reviews transcripts with the configured agent.
type Advisor struct {
	agent  gaconfig.AgentConfig
	logger *slog.Logger
}

// New creates an Advisor. cfg must already be finalized.
func New(cfg gaconfig.AgentConfig, logger *slog.Logger) *Advisor {
	return &Advisor{
		agent:  cfg,
		logger: logger.With("system", "insight"),
	}
}

// Review sends the transcript to the agent and decodes its answer. A fresh
// agent is created per call.
func (a *Advisor) Review(ctx context.Context, transcript string) (*Insight, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	ag, err := agent.New(&a.agent)
	if err != nil {
		return nil, fmt.Errorf("%w: create agent: %w", ErrReviewFailed, err)
	}

	start := time.Now()
	resp, err := ag.Chat(ctx, Prompt(transcript))
	if err != nil {
		return nil, fmt.Errorf("%w: chat call: %w", ErrReviewFailed, err)
	}

	ins, err := Parse(resp.Content())
	if err != nil {
		return nil, err
	}
	if a.agent.Model != nil {
		ins.Model = a.agent.Model.Name
	}

	a.logger.InfoContext(ctx, "review complete",
		"model", ins.Model,
		"overall", ins.Overall,
		"duration", time.Since(start),
	)

	return ins, nil
}

// Prompt builds the review request for a transcript.
func Prompt(transcript string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nTranscripción:\n")
	sb.WriteString(truncate(transcript, maxTranscriptRunes))
	return sb.String()
}

// Parse decodes a model answer. An answer without a summary is rejected and
// the overall score is clamped to 0..10.
func Parse(content string) (*Insight, error) {
	r, err := formatting.Parse[response](content)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", ErrReviewFailed, err)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return nil, fmt.Errorf("%w: response has no summary", ErrReviewFailed)
	}

	feedback := make([]string, 0, len(r.Feedback))
	for _, f := range r.Feedback {
		if f = strings.TrimSpace(f); f != "" {
			feedback = append(feedback, f)
		}
	}

	return &Insight{
		Summary:  strings.TrimSpace(r.Summary),
		Feedback: feedback,
		Overall:  math.Max(0, math.Min(10, r.Scores.Overall)),
	}, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return cut + " …"
}

const instructions = `Analiza la siguiente presentación de empresa y proporciona una evaluación detallada.

Evalúa basándote en:
- Claridad del mensaje
- Estructura de la presentación
- Contenido relevante
- Duración apropiada

Responde ÚNICAMENTE en formato JSON con la siguiente estructura:
{
  "scores": {"overall": 0-10},
  "feedback": ["comentarios positivos y áreas de mejora"],
  "resumen": "resumen ejecutivo de la presentación"
}`
