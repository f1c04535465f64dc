// Package rubric scores presentation transcripts against weighted pattern rubrics.
// Scoring is deterministic: rules are evaluated in declaration order and no
// map iteration influences the output.
package rubric

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// MaxScore caps every category, appeal and aggregate score.
	MaxScore = 10.0
	// SuggestionThreshold is the score below which suggestions are attached.
	SuggestionThreshold = 5.0
	// MaxExamples caps the examples recorded per appeal and the comments
	// recorded per category pattern.
	MaxExamples = 3
	// appealFactor converts an appeal frequency into a score.
	appealFactor = 2.0
)

// NoContentNotice replaces the category suggestions when the transcript is empty.
const NoContentNotice = "No se detectó audio o contenido en la presentación. Verifica que la grabación tenga voz audible e inténtalo de nuevo."

// ErrInvalidRubric reports a rule set whose aggregate weights do not sum to 1.
var ErrInvalidRubric = errors.New("invalid rubric")

// CategoryScore is the evaluation of one rubric category.
type CategoryScore struct {
	Key         string   `json:"-"`
	Name        string   `json:"name"`
	Score       float64  `json:"score"`
	Comments    []string `json:"comments"`
	Suggestions []string `json:"suggestions"`
}

// AppealMatch is one piece of evidence for a rhetorical appeal.
type AppealMatch struct {
	Category string `json:"-"`
	Pattern  string `json:"pattern"`
	Context  string `json:"context"`
}

// AppealScore summarizes the matches of one rhetorical appeal.
type AppealScore struct {
	Key       string        `json:"-"`
	Name      string        `json:"name"`
	Frequency int           `json:"frequency"`
	Score     float64       `json:"score"`
	Examples  []AppealMatch `json:"examples"`
}

// Result is the full evaluation of a transcript. Categories and Appeals follow
// rubric declaration order. Knowledge is the mean score of the
// company-knowledge categories.
type Result struct {
	Categories []CategoryScore
	Aggregate  float64
	Knowledge  float64
	Appeals    []AppealScore
	Pitch      *PitchScore
	Notice     string
}

// CategoryMap indexes the category scores by key.
func (r Result) CategoryMap() map[string]CategoryScore {
	out := make(map[string]CategoryScore, len(r.Categories))
	for _, c := range r.Categories {
		out[c.Key] = c
	}
	return out
}

// AppealMap indexes the appeal scores by key.
func (r Result) AppealMap() map[string]AppealScore {
	out := make(map[string]AppealScore, len(r.Appeals))
	for _, a := range r.Appeals {
		out[a.Key] = a
	}
	return out
}

// Engine evaluates transcripts against a fixed Rubric. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	rubric Rubric
}

// New validates r and returns an Engine for it.
func New(r Rubric) (*Engine, error) {
	var total float64
	for _, c := range r.Categories {
		if c.Weight < 0 {
			return nil, fmt.Errorf("%w: negative weight for %s", ErrInvalidRubric, c.Key)
		}
		total += c.Weight
	}
	if math.Abs(total-1) > 1e-9 {
		return nil, fmt.Errorf("%w: aggregate weights sum to %.2f", ErrInvalidRubric, total)
	}
	return &Engine{rubric: r}, nil
}

// NewDefault returns an Engine for the Default rubric.
func NewDefault() *Engine {
	return &Engine{rubric: Default()}
}

// Score evaluates transcript. An empty or whitespace-only transcript scores
// zero everywhere and carries NoContentNotice instead of suggestions.
func (e *Engine) Score(transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return e.empty()
	}

	text := strings.ToLower(transcript)

	result := Result{
		Categories: make([]CategoryScore, 0, len(e.rubric.Categories)),
		Appeals:    make([]AppealScore, 0, len(e.rubric.Appeals)),
	}

	var (
		aggregate float64
		knowledge []float64
	)
	for _, c := range e.rubric.Categories {
		score := scoreCategory(c, text)
		aggregate += c.Weight * score.Score
		if c.Knowledge {
			knowledge = append(knowledge, score.Score)
		}
		result.Categories = append(result.Categories, score)
	}
	result.Aggregate = clamp(round1(aggregate))
	result.Knowledge = mean(knowledge)

	for _, a := range e.rubric.Appeals {
		result.Appeals = append(result.Appeals, scoreAppeal(a, text))
	}

	result.Pitch = scorePitch(e.rubric.Pitch, text)
	return result
}

func (e *Engine) empty() Result {
	result := Result{
		Categories: make([]CategoryScore, 0, len(e.rubric.Categories)),
		Appeals:    make([]AppealScore, 0, len(e.rubric.Appeals)),
		Pitch:      scorePitch(e.rubric.Pitch, ""),
		Notice:     NoContentNotice,
	}
	for _, c := range e.rubric.Categories {
		result.Categories = append(result.Categories, CategoryScore{
			Key:         c.Key,
			Name:        c.Name,
			Comments:    []string{},
			Suggestions: []string{NoContentNotice},
		})
	}
	for _, a := range e.rubric.Appeals {
		result.Appeals = append(result.Appeals, AppealScore{
			Key:      a.Key,
			Name:     a.Name,
			Examples: []AppealMatch{},
		})
	}
	return result
}

func scoreCategory(c Category, text string) CategoryScore {
	out := CategoryScore{
		Key:         c.Key,
		Name:        c.Name,
		Comments:    []string{},
		Suggestions: []string{},
	}

	var raw float64
	for _, g := range c.Groups {
		for _, p := range g.Patterns {
			matches := p.find(text)
			if len(matches) == 0 {
				continue
			}
			raw += g.Weight * float64(len(matches))
			for i, m := range matches[:min(len(matches), MaxExamples)] {
				out.Comments = append(out.Comments, fmt.Sprintf(
					"%s \"%s\" (%d/%d): %s",
					g.Name, p.Label, i+1, len(matches), snippet(text, m[0], m[1]),
				))
			}
		}
	}

	out.Score = clamp(round1(raw))
	if out.Score < SuggestionThreshold {
		out.Suggestions = append(out.Suggestions, c.Suggestions...)
	}
	return out
}

func scoreAppeal(a Appeal, text string) AppealScore {
	out := AppealScore{
		Key:      a.Key,
		Name:     a.Name,
		Examples: []AppealMatch{},
	}

	for _, p := range a.Patterns {
		for _, m := range p.find(text) {
			out.Frequency++
			if len(out.Examples) < MaxExamples {
				out.Examples = append(out.Examples, AppealMatch{
					Category: a.Key,
					Pattern:  p.Label,
					Context:  snippet(text, m[0], m[1]),
				})
			}
		}
	}

	out.Score = clamp(float64(out.Frequency) * appealFactor)
	return out
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var total float64
	for _, v := range scores {
		total += v
	}
	return round1(total / float64(len(scores)))
}

func clamp(v float64) float64 {
	return max(0, min(v, MaxScore))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
