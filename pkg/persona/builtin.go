package persona

// Built-in persona names.
const (
	Archivist = "archivist"
	Plain     = "plain"
)

func archivist() *Persona {
	return &Persona{
		Name:        Archivist,
		Language:    "es",
		Title:       "📜 El Archivo de Bocetos Olvidados",
		Subtitle:    "🖋️ Desempolva tu Pergamino y Dibuja",
		Mission:     "Cada boceto es un artefacto histórico. Nuestro Archivista Digital usa Visión Computacional para desentrañar su significado y catalogarlo.",
		KeyLabel:    "🔑 Llave de la Bóveda (OpenAI API Key)",
		StrokeLabel: "Grosor de la Pluma (Ancho de línea)",
		ButtonLabel: "Sellar y Catalogar Artefacto",
		Working:     "⏳ Clasificando y desentrañando la historia del artefacto con el Archivista Digital...",
		Prompt: "Actúa como un Archivista Histórico digital. Describe en español de forma breve el boceto que ves, " +
			"identificando el objeto o concepto principal que el usuario intentó dibujar. " +
			"Luego, asigna un 'Título de Catálogo' de no más de 5 palabras.",
		ReportHeading: "📜 **Reporte del Archivista:**",
		StrokeColor:   "#473B2C",
		Background:    "#FFFFFF",
		Theme: Theme{
			Text:   "#473B2C",
			Page:   "#FCF5E5",
			Panel:  "#F8F0D7",
			Frame:  "#8B4513",
			Accent: "#B8860B",
			Font:   "'Roboto Slab', serif",
		},
		Messages: map[string]string{
			KeyMissingCredential:   "Por favor, ingresa tu Llave de la Bóveda (API key) para que el Archivista Digital pueda comenzar.",
			KeyMissingInput:        "Por favor, dibuja el artefacto olvidado en el pergamino antes de intentar catalogarlo.",
			KeyInsufficientContent: "El boceto es demasiado tenue. Nuestro archivista necesita trazos más audaces para identificar este artefacto.",
			KeyInvalidFrameShape:   "El pergamino llegó dañado: el boceto no tiene el formato esperado.",
			KeyTransport:           "Error del Servidor de Archivos (API del modelo): Código " + StatusPlaceholder + ". Por favor, verifica tu clave o el estado de tu cuenta.",
			KeyTransportNetwork:    "Ocurrió un error inesperado en el Archivo: " + ErrorPlaceholder,
			KeyEmptyDescription:    "El Archivista no encontró palabras para este artefacto: no hay descripción disponible.",
			KeyRateLimited:         "El Archivista está atendiendo demasiadas consultas. Espera un momento e inténtalo de nuevo.",
			KeyUnexpected:          "Ocurrió un error inesperado en el Archivo.",
		},
	}
}

func plain() *Persona {
	return &Persona{
		Name:        Plain,
		Language:    "en",
		Title:       "Sketch Describer",
		Subtitle:    "Draw something",
		Mission:     "Draw on the canvas and a vision model will describe what it sees.",
		KeyLabel:    "OpenAI API Key",
		StrokeLabel: "Stroke width",
		ButtonLabel: "Describe sketch",
		Working:     "Analyzing your sketch...",
		Prompt: "Describe briefly the sketch you see, identifying the main object or concept the user tried to draw. " +
			"Then give it a title of no more than 5 words.",
		ReportHeading: "**Description:**",
		StrokeColor:   "#000000",
		Background:    "#FFFFFF",
		Theme: Theme{
			Text:   "#1F2328",
			Page:   "#F6F8FA",
			Panel:  "#FFFFFF",
			Frame:  "#D0D7DE",
			Accent: "#0969DA",
			Font:   "system-ui, sans-serif",
		},
		Messages: map[string]string{
			KeyMissingCredential:   "Please enter your API key to continue.",
			KeyMissingInput:        "Please draw something on the canvas first.",
			KeyInsufficientContent: "The sketch is too faint. Draw bolder strokes so it can be identified.",
			KeyInvalidFrameShape:   "The drawing could not be read: unexpected image format.",
			KeyTransport:           "The model API returned an error (status " + StatusPlaceholder + "). Check your key or account status.",
			KeyTransportNetwork:    "Could not reach the model API: " + ErrorPlaceholder,
			KeyEmptyDescription:    "No description available.",
			KeyRateLimited:         "Too many requests. Please wait a moment and try again.",
			KeyUnexpected:          "An unexpected error occurred.",
		},
	}
}

func builtins() []*Persona {
	return []*Persona{archivist(), plain()}
}
