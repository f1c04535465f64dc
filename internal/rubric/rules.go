package rubric

// Category keys of the default rubric.
const (
	KeyStructure  = "structure"
	KeyEvidence   = "evidence"
	KeyTone       = "tone"
	KeyObjections = "objections"

	KeyHistoryMission   = "history_mission"
	KeyProductsServices = "products_services"
	KeyMarketClients    = "market_clients"
	KeyValuesCulture    = "values_culture"
	KeyCompetition      = "competition"
)

// Appeal keys of the default rubric.
const (
	AppealLogical     = "logical"
	AppealEmotional   = "emotional"
	AppealCredibility = "credibility"
	AppealUrgency     = "urgency"
	AppealReciprocity = "reciprocity"
)

// Group is a set of patterns that share a weight.
type Group struct {
	Name     string
	Weight   float64
	Patterns []Pattern
}

// Category is a scored rubric dimension. Weight is its share of the aggregate
// score; zero-weight categories are reported but do not contribute.
// Knowledge categories are also averaged into the company-knowledge overall.
type Category struct {
	Key         string
	Name        string
	Weight      float64
	Knowledge   bool
	Groups      []Group
	Suggestions []string
}

// Appeal is a rhetorical appeal class detected by pattern frequency.
type Appeal struct {
	Key      string
	Name     string
	Patterns []Pattern
}

// Rubric is the complete rule set an Engine evaluates.
type Rubric struct {
	Categories []Category
	Appeals    []Appeal
	Pitch      []PitchRule
}

var percentage = Regexp("porcentaje", `\d+(?:[.,]\d+)?\s?%`)

// Default returns the presentation rubric: four weighted delivery categories,
// five company-knowledge categories, five rhetorical appeals and the ten
// sales-pitch rules.
func Default() Rubric {
	return Rubric{
		Categories: []Category{
			{
				Key:    KeyStructure,
				Name:   "Estructura argumentativa",
				Weight: 0.25,
				Groups: []Group{
					{
						Name:   "Conector principal",
						Weight: 2,
						Patterns: Literals(
							"por lo tanto", "en conclusión", "en primer lugar", "en segundo lugar",
							"por consiguiente", "en resumen", "para concluir", "finalmente",
						),
					},
					{
						Name:   "Conector secundario",
						Weight: 1,
						Patterns: Literals(
							"además", "también", "por otro lado", "es decir", "así que", "debido a",
						),
					},
				},
				Suggestions: []string{
					"Ordena tu presentación en introducción, desarrollo y cierre.",
					"Usa conectores como \"en primer lugar\", \"por lo tanto\" o \"en conclusión\" para guiar a tu audiencia.",
					"Anuncia al inicio los puntos que vas a tratar.",
				},
			},
			{
				Key:    KeyEvidence,
				Name:   "Evidencia y datos",
				Weight: 0.30,
				Groups: []Group{
					{
						Name:     "Fuente citada",
						Weight:   2,
						Patterns: Literals("según", "de acuerdo con", "estudio", "investigación", "encuesta", "informe"),
					},
					{
						Name:   "Cifra",
						Weight: 2,
						Patterns: []Pattern{
							percentage,
							Regexp("cantidad", `\d+(?:[.,]\d+)?\s?(?:millones|mil|pesos|dólares|usd)`),
						},
					},
					{
						Name:     "Ejemplo",
						Weight:   1,
						Patterns: Literals("por ejemplo", "caso de éxito", "testimonio", "como muestra"),
					},
				},
				Suggestions: []string{
					"Respalda tus afirmaciones con datos concretos, porcentajes o cifras.",
					"Cita estudios, informes o fuentes reconocidas.",
					"Incluye ejemplos reales o casos de éxito.",
				},
			},
			{
				Key:    KeyTone,
				Name:   "Tono persuasivo",
				Weight: 0.20,
				Groups: []Group{
					{
						Name:     "Énfasis",
						Weight:   1.5,
						Patterns: Literals("sin duda", "definitivamente", "claramente", "lo más importante", "garantizamos"),
					},
					{
						Name:     "Lenguaje inclusivo",
						Weight:   1,
						Patterns: Literals("nosotros", "juntos", "ustedes", "imagina", "imaginen"),
					},
					{
						Name:     "Pregunta a la audiencia",
						Weight:   1,
						Patterns: Literals("¿"),
					},
				},
				Suggestions: []string{
					"Involucra a tu audiencia con preguntas y lenguaje inclusivo.",
					"Enfatiza los puntos clave con seguridad.",
				},
			},
			{
				Key:    KeyObjections,
				Name:   "Manejo de objeciones",
				Weight: 0.25,
				Groups: []Group{
					{
						Name:     "Reconocimiento",
						Weight:   2,
						Patterns: Literals("entiendo", "comprendo", "es válido", "tiene sentido"),
					},
					{
						Name:     "Respuesta",
						Weight:   1.5,
						Patterns: Literals("sin embargo", "la realidad es", "por eso", "la solución"),
					},
					{
						Name:     "Anticipación",
						Weight:   1,
						Patterns: Literals("se preguntarán", "podrían pensar", "preocupación", "objeción", "sus dudas"),
					},
				},
				Suggestions: []string{
					"Anticipa las dudas más comunes de tu audiencia y respóndelas.",
					"Reconoce la objeción antes de responderla (\"entiendo su preocupación...\").",
				},
			},
			{
				Key:       KeyHistoryMission,
				Knowledge: true,
				Name:      "Historia y misión",
				Groups: []Group{{
					Name:   "Mención",
					Weight: 2,
					Patterns: Literals(
						"fundación", "fundador", "historia", "misión", "visión", "origen",
						"inicio", "creación", "objetivo", "propósito",
					),
				}},
				Suggestions: []string{"Menciona la historia, misión y visión de la empresa."},
			},
			{
				Key:       KeyProductsServices,
				Knowledge: true,
				Name:      "Productos y servicios",
				Groups: []Group{{
					Name:   "Mención",
					Weight: 2,
					Patterns: Literals(
						"producto", "servicio", "ofrece", "portafolio", "catálogo",
						"solución", "venta", "comercializa",
					),
				}},
				Suggestions: []string{"Describe los productos y servicios principales."},
			},
			{
				Key:       KeyMarketClients,
				Knowledge: true,
				Name:      "Mercado y clientes",
				Groups: []Group{{
					Name:   "Mención",
					Weight: 2,
					Patterns: Literals(
						"cliente", "mercado", "segmento", "público objetivo", "target", "consumidor", "usuario",
					),
				}},
				Suggestions: []string{"Explica a qué mercado y a qué clientes se dirige la empresa."},
			},
			{
				Key:       KeyValuesCulture,
				Knowledge: true,
				Name:      "Valores y cultura",
				Groups: []Group{{
					Name:   "Mención",
					Weight: 2,
					Patterns: Literals(
						"valor", "cultura", "principio", "ética", "responsabilidad",
						"compromiso", "integridad", "innovación", "excelencia",
					),
				}},
				Suggestions: []string{"Habla de los valores y la cultura organizacional."},
			},
			{
				Key:       KeyCompetition,
				Knowledge: true,
				Name:      "Competencia",
				Groups: []Group{{
					Name:   "Mención",
					Weight: 2,
					Patterns: Literals(
						"competencia", "competidor", "diferenciador", "único", "ventaja competitiva",
						"comparado con", "mejor que", "peor que",
					),
				}},
				Suggestions: []string{"Compara la empresa con su competencia y destaca sus diferenciadores."},
			},
		},
		Appeals: []Appeal{
			{
				Key:      AppealLogical,
				Name:     "Lógico",
				Patterns: append(Literals("por lo tanto", "porque", "datos", "demuestra", "en consecuencia"), percentage),
			},
			{
				Key:      AppealEmotional,
				Name:     "Emocional",
				Patterns: Literals("imagina", "sueño", "familia", "miedo", "feliz", "tranquilidad", "orgullo"),
			},
			{
				Key:      AppealCredibility,
				Name:     "Credibilidad",
				Patterns: Literals("experiencia", "años de", "certificad", "expertos", "garantía", "reconocid"),
			},
			{
				Key:      AppealUrgency,
				Name:     "Urgencia",
				Patterns: Literals("ahora", "hoy", "oferta limitada", "últimos", "no te lo pierdas", "antes de que"),
			},
			{
				Key:      AppealReciprocity,
				Name:     "Reciprocidad",
				Patterns: Literals("gratis", "regalo", "sin costo", "de cortesía", "te ofrecemos", "bono"),
			},
		},
		Pitch: DefaultPitch(),
	}
}
