package rubric

import (
	"fmt"
	"math"
	"strings"
)

// Sales-pitch rule keys.
const (
	PitchProduct    = "product_knowledge"
	PitchCustomer   = "customer_knowledge"
	PitchValue      = "value_proposition"
	PitchTrust      = "credibility"
	PitchDialogue   = "communication"
	PitchDemo       = "demonstration"
	PitchUrgency    = "urgency"
	PitchPrice      = "price"
	PitchObjections = "objection_handling"
	PitchFollowUp   = "follow_up"
)

// PitchRule is one sales practice, rated by how many of its cues appear.
type PitchRule struct {
	Key      string
	Name     string
	Cues     []Pattern
	Guidance string
}

// PitchRuleScore is the rating of one PitchRule.
type PitchRuleScore struct {
	Name     string  `json:"name"`
	Cues     int     `json:"cues"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// PitchScore rates a transcript against the sales-pitch rules. Overall is
// the mean rule score rounded to a whole number.
type PitchScore struct {
	Rules   map[string]PitchRuleScore `json:"rules"`
	Overall float64                   `json:"overall"`
}

// Pitch rates transcript against the sales-pitch rules of the engine's rubric.
func (e *Engine) Pitch(transcript string) *PitchScore {
	return scorePitch(e.rubric.Pitch, strings.ToLower(transcript))
}

func scorePitch(rules []PitchRule, text string) *PitchScore {
	out := &PitchScore{Rules: make(map[string]PitchRuleScore, len(rules))}
	if len(rules) == 0 {
		return out
	}

	var total float64
	for _, r := range rules {
		cues := 0
		for _, c := range r.Cues {
			if len(c.find(text)) > 0 {
				cues++
			}
		}

		score, verdict := pitchScale(cues)
		out.Rules[r.Key] = PitchRuleScore{
			Name:     r.Name,
			Cues:     cues,
			Score:    score,
			Feedback: fmt.Sprintf("%s: %s %s", r.Name, verdict, r.Guidance),
		}
		total += score
	}

	out.Overall = math.Round(total / float64(len(rules)))
	return out
}

// pitchScale maps distinct cues found to 0, 5, 8 or 10.
func pitchScale(cues int) (float64, string) {
	switch {
	case cues == 0:
		return 0, "No se detecta evidencia."
	case cues == 1:
		return 5, "Menciona al menos un aspecto, pero puede profundizar más."
	case cues == 2:
		return 8, "Bien cubierto, pero puede ser aún más detallado."
	default:
		return 10, "Excelente, cubre este aspecto de forma completa."
	}
}

// DefaultPitch returns the ten sales-pitch rules.
func DefaultPitch() []PitchRule {
	return []PitchRule{
		{
			Key:  PitchProduct,
			Name: "Conocimiento del producto",
			Cues: Literals(
				"funciona", "característica", "beneficio", "ventaja", "objeción", "especificación",
				"detalle", "tecnología", "proceso", "cómo", "por qué",
			),
			Guidance: "Demuestra conocimiento profundo del producto, sus beneficios y posibles objeciones.",
		},
		{
			Key:  PitchCustomer,
			Name: "Conocimiento del cliente objetivo",
			Cues: Literals(
				"cliente ideal", "necesidad", "problema", "dolor", "valor", "busca", "importa",
				"prioridad", "perfil", "segmento", "mercado objetivo",
			),
			Guidance: "Muestra comprensión de quién es el cliente ideal y sus necesidades.",
		},
		{
			Key:  PitchValue,
			Name: "Propuesta de valor clara",
			Cues: Literals(
				"único", "diferente", "mejor", "solución", "resuelve", "ventaja competitiva",
				"propuesta de valor", "distinto", "diferenciador",
			),
			Guidance: "Explica claramente por qué el producto es mejor o diferente y cómo resuelve un problema.",
		},
		{
			Key:  PitchTrust,
			Name: "Credibilidad y confianza",
			Cues: Literals(
				"testimonio", "garantía", "experiencia", "marca", "confianza", "caso de éxito",
				"sólido", "certificado", "avalado", "recomendado",
			),
			Guidance: "Genera confianza a través de testimonios, garantías o experiencia.",
		},
		{
			Key:  PitchDialogue,
			Name: "Técnicas efectivas de comunicación",
			Cues: Literals(
				"escuchar", "pregunta", "cuéntame", "platícame", "¿", "?", "adaptar",
				"personalizar", "mensaje", "interactivo", "diálogo",
			),
			Guidance: "Utiliza preguntas, escucha activa y adapta el mensaje al cliente.",
		},
		{
			Key:  PitchDemo,
			Name: "Demostración o prueba del producto",
			Cues: Literals(
				"demostrar", "mostrar", "ejemplo", "prueba", "caso", "simulación", "demo",
				"muestra", "funciona así", "así se usa",
			),
			Guidance: "Incluye una demostración, ejemplo o prueba del producto.",
		},
		{
			Key:  PitchUrgency,
			Name: "Urgencia o escasez",
			Cues: Literals(
				"oferta limitada", "solo hoy", "últimos", "descuento", "aprovecha",
				"no te lo pierdas", "por tiempo limitado", "ahora", "urgente", "no disponible después",
			),
			Guidance: "Crea sentido de urgencia o escasez para acelerar la decisión.",
		},
		{
			Key:  PitchPrice,
			Name: "Precio y condiciones accesibles",
			Cues: Literals(
				"precio", "costo", "valor", "accesible", "forma de pago", "mensualidad",
				"financiamiento", "descuento", "promoción", "condiciones", "flexible",
			),
			Guidance: "Alinea el precio al valor y ofrece condiciones claras y flexibles.",
		},
		{
			Key:  PitchObjections,
			Name: "Manejo de objeciones",
			Cues: Literals(
				"entiendo", "comprendo", "duda", "preocupación", "objeción", "respuesta",
				"resolver", "argumento", "competencia", "resultado", "solución",
			),
			Guidance: "Responde dudas y objeciones con argumentos sólidos.",
		},
		{
			Key:  PitchFollowUp,
			Name: "Seguimiento postventa",
			Cues: Literals(
				"seguimiento", "satisfacción", "recompra", "recomendación", "soporte", "servicio",
				"atención", "resolver problema", "postventa", "contacto posterior",
			),
			Guidance: "Asegura satisfacción y fomenta recompra o recomendación.",
		},
	}
}
