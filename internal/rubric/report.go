package rubric

// Report is the serialized form of a transcript evaluation. Maps are keyed by
// category and appeal key; encoding/json writes them in sorted key order.
type Report struct {
	CategoryScores   map[string]CategoryScore `json:"category_scores"`
	AggregateScore   float64                  `json:"aggregate_score"`
	KnowledgeOverall float64                  `json:"knowledge_overall"`
	PatternMatches   map[string]AppealScore   `json:"pattern_matches"`
	SalesPitch       *PitchScore              `json:"sales_pitch,omitempty"`
	Delivery         *DeliveryScore           `json:"delivery,omitempty"`
	Notice           string                   `json:"notice,omitempty"`
}

// Evaluate scores transcript and, when durationSeconds is known, its delivery.
func (e *Engine) Evaluate(transcript string, durationSeconds float64) Report {
	result := e.Score(transcript)

	report := Report{
		CategoryScores:   result.CategoryMap(),
		AggregateScore:   result.Aggregate,
		KnowledgeOverall: result.Knowledge,
		PatternMatches:   result.AppealMap(),
		SalesPitch:       result.Pitch,
		Notice:           result.Notice,
	}
	if result.Notice == "" {
		report.Delivery = Delivery(transcript, durationSeconds)
	}
	return report
}
