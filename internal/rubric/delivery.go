package rubric

import (
	"fmt"
	"math"
	"strings"
)

// DeliveryScore rates the length and pace of a presentation.
type DeliveryScore struct {
	DurationSeconds float64  `json:"duration_seconds"`
	Words           int      `json:"words"`
	WordsPerMinute  float64  `json:"words_per_minute"`
	DurationScore   float64  `json:"duration_score"`
	PaceScore       float64  `json:"pace_score"`
	Comments        []string `json:"comments"`
}

// Delivery scores duration against a 60-90 second ideal and pace against
// 120-150 words per minute. Returns nil when the duration is unknown.
func Delivery(transcript string, durationSeconds float64) *DeliveryScore {
	if durationSeconds <= 0 {
		return nil
	}

	words := len(strings.Fields(transcript))
	wpm := math.Round(float64(words)/(durationSeconds/60)*10) / 10

	d := &DeliveryScore{
		DurationSeconds: math.Round(durationSeconds*10) / 10,
		Words:           words,
		WordsPerMinute:  wpm,
		DurationScore:   band(durationSeconds, 60, 90, 15),
		PaceScore:       band(wpm, 120, 150, 20),
	}

	switch {
	case durationSeconds < 60:
		d.Comments = append(d.Comments, fmt.Sprintf("La presentación duró %.0f segundos; procura extenderla a entre 60 y 90 segundos.", durationSeconds))
	case durationSeconds > 90:
		d.Comments = append(d.Comments, fmt.Sprintf("La presentación duró %.0f segundos; procura resumirla a entre 60 y 90 segundos.", durationSeconds))
	default:
		d.Comments = append(d.Comments, "La duración de la presentación es adecuada.")
	}

	switch {
	case words == 0:
		d.Comments = append(d.Comments, "No se detectaron palabras para medir el ritmo.")
	case wpm < 120:
		d.Comments = append(d.Comments, fmt.Sprintf("Ritmo de %.0f palabras por minuto; puedes hablar un poco más rápido.", wpm))
	case wpm > 150:
		d.Comments = append(d.Comments, fmt.Sprintf("Ritmo de %.0f palabras por minuto; habla más despacio para que te entiendan.", wpm))
	default:
		d.Comments = append(d.Comments, "El ritmo de habla es adecuado.")
	}

	return d
}

// band returns 10 inside [lo, hi], 7 within margin of either edge and 4 otherwise.
func band(v, lo, hi, margin float64) float64 {
	switch {
	case v >= lo && v <= hi:
		return 10
	case v >= lo-margin && v <= hi+margin:
		return 7
	default:
		return 4
	}
}
