package transcription

import "strings"

// sellerCues are phrases typical of the person making the pitch.
var sellerCues = []string{
	"te presento", "les presento", "presentamos",
	"beneficio", "ventaja", "características",
	"precio", "cuesta", "valor", "oferta",
	"producto", "servicio", "solución",
	"comprar", "adquirir", "invertir",
}

// Seller picks the speaker most likely making the pitch: the one whose
// combined speech contains the most distinct seller cues, ties going to the
// earliest speaker. ok is false unless at least two speakers were labeled.
func (r Result) Seller() (speaker, text string, ok bool) {
	var order []string
	speech := make(map[string][]string)
	for _, u := range r.Utterances {
		if _, seen := speech[u.Speaker]; !seen {
			order = append(order, u.Speaker)
		}
		speech[u.Speaker] = append(speech[u.Speaker], u.Text)
	}
	if len(order) < 2 {
		return "", "", false
	}

	best := -1
	for _, s := range order {
		combined := strings.Join(speech[s], " ")
		lower := strings.ToLower(combined)

		cues := 0
		for _, c := range sellerCues {
			if strings.Contains(lower, c) {
				cues++
			}
		}
		if cues > best {
			best, speaker, text = cues, s, combined
		}
	}
	return speaker, text, true
}
