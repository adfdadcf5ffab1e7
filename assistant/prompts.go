package assistant

import (
	"fmt"
	"strings"
)

// System prompts for each stage.
const (
	systemPromptClassify = "Eres un analizador que decide si una pregunta requiere consultar la base de datos. Responde solo con SI o NO."

	systemPromptSynthesize = "Eres un asistente especializado en generar consultas SQL para PostgreSQL basadas en preguntas en lenguaje natural. Solo responde con la consulta SQL, sin explicaciones."

	systemPromptNarrate = "Eres un asistente amigable que explica resultados de bases de datos en lenguaje natural. Responde en español de manera clara y concisa."

	systemPromptRespond = "Eres AutoPic IA, un asistente amigable para el sistema de gestión de vehículos. Responde en español de manera clara y útil."
)

// Token budgets and temperatures per stage.
const (
	classifyMaxTokens   = 10
	classifyTemperature = 0.1

	synthesizeMaxTokens   = 200
	synthesizeTemperature = 0.1

	narrateMaxTokens   = 300
	narrateTemperature = 0.7

	respondMaxTokens   = 300
	respondTemperature = 0.7
)

// affirmative is the only classifier reply that routes to the database.
const affirmative = "SI"

func classifyPrompt(schemaText, history, message string) string {
	var sb strings.Builder
	sb.WriteString(schemaText)
	fmt.Fprintf(&sb, "\nContexto previo:\n%s\n\n", history)
	fmt.Fprintf(&sb, "El usuario dice: %q\n\n", message)
	sb.WriteString(`Analiza si esta pregunta requiere consultar la base de datos para responderla con exactitud.

Responde SOLO con "SI" o "NO":

- Responde "SI" si la pregunta solicita información específica de los datos (conteos, listas, estados, información de usuarios, vehículos, usos)
- Responde "NO" si es un saludo, pregunta general sobre el sistema, explicación de funcionalidades, o no requiere datos específicos

Ejemplos:
- "¿Cuántos usuarios hay?" → SI
- "¿Cuántos vehículos rojos?" → SI
- "¿Qué hace este sistema?" → NO
- "Hola, ¿cómo estás?" → NO
- "Explícame cómo usar los vehículos" → NO
- "¿Cuál es mi saldo?" → NO (no hay tabla de saldos)
- "Lista los usuarios activos" → SI

Respuesta:`)
	return sb.String()
}

func synthesizePrompt(schemaText, history, message string) string {
	var sb strings.Builder
	sb.WriteString(schemaText)
	fmt.Fprintf(&sb, "\nContexto previo de la conversación:\n%s\n\n", history)
	fmt.Fprintf(&sb, "El usuario pregunta: %q\n\n", message)
	sb.WriteString(`Basándote en el schema de la base de datos y el contexto, genera UNA SOLA consulta SQL válida para PostgreSQL que responda a la pregunta del usuario.

Reglas importantes:
- Solo genera la consulta SQL, sin explicaciones adicionales
- Usa nombres de tablas y columnas exactos del schema
- Incluye solo condiciones necesarias para responder la pregunta
- Para fechas de hoy, usa CURRENT_DATE
- Para contar registros, usa COUNT(*)
- Para fechas, usa formato DATE para comparaciones de fecha

Reglas IMPORTANTES de PostgreSQL:
- Los nombres de tablas y columnas con mayúsculas DEBEN ir entre comillas dobles: "Users", "Vehicles", "VehicleUsages"
- Los nombres en minúsculas NO necesitan comillas
- Usa las tablas y columnas EXACTAMENTE como están definidas arriba

Ejemplos CORRECTOS:
- "¿Cuántos usuarios hay?" → SELECT COUNT(*) FROM "Users";
- "¿Cuántos vehículos están disponibles?" → SELECT COUNT(*) FROM "Vehicles" WHERE status = 'disponible';
- "¿Cuántos vehículos salieron hoy?" → SELECT COUNT(*) FROM "VehicleUsages" WHERE DATE("startDate") = CURRENT_DATE;

Consulta SQL:`)
	return sb.String()
}

func narratePrompt(message, rowsJSON, history string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "El usuario preguntó: %q\n\n", message)
	fmt.Fprintf(&sb, "Se ejecutó una consulta SQL y se obtuvieron estos resultados:\n%s\n\n", rowsJSON)
	fmt.Fprintf(&sb, "Contexto de la conversación:\n%s\n\n", history)
	sb.WriteString("Proporciona una respuesta clara y natural en español basada en los resultados. " +
		"Sé conciso pero informativo. Si los resultados son numéricos, preséntalos de manera amigable. " +
		"Si hay una lista, resúmela adecuadamente.\n\nRespuesta:")
	return sb.String()
}

func respondPrompt(history, message string) string {
	var sb strings.Builder
	sb.WriteString("Eres AutoPic IA, un asistente inteligente para el sistema de gestión de vehículos y usuarios.\n\n")
	fmt.Fprintf(&sb, "Contexto de la conversación:\n%s\n\n", history)
	fmt.Fprintf(&sb, "El usuario pregunta: %q\n\n", message)
	sb.WriteString("Responde de manera amigable y útil en español. Si es un saludo, saluda cordialmente. " +
		"Si pregunta sobre funcionalidades del sistema, explícalas brevemente. " +
		"Si no puedes ayudar con algo, sé honesto.\n\nRespuesta:")
	return sb.String()
}

// Transcript units written by each stage.

func directUnit(message, answer string) string {
	return fmt.Sprintf("Usuario: %s\nIA: %s", message, answer)
}

func queryUnit(message, query string) string {
	return fmt.Sprintf("Usuario: %s\nSQL Generado: %s", message, query)
}

func answerUnit(answer string) string {
	return "Respuesta: " + answer
}
