// Package prompt builds the prompts sent to the LLM backend for the
// two supported workloads. The wording here is not load-bearing for
// the orchestration core; what matters is that responses are requested
// as JSON arrays the parser knows how to read.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/percept-ai/percept-api/internal/domain"
)

const questionTemplateText = `Generate {{.PerPersona}} realistic questions that each of the following buyer personas would ask an AI assistant when researching this product category.
{{range .Personas}}- {{.Name}} (persona_id: {{.ID}})
{{end}}
Respond with a JSON object of the form {"questions": [{"text": "...", "persona_id": "...", "category": "..."}]} and nothing else.`

const analysisTemplateText = `You are analyzing how AI assistants talk about brands. Answer the following question as an assistant would, then list every brand mentioned in your answer.

Question: {{.Query}}

Respond with a JSON object of the form {"mentions": [{"text": "...", "category": "...", "sentiment": "positive|neutral|negative"}]} and nothing else.`

var (
	questionTemplate = template.Must(template.New("questions").Parse(questionTemplateText))
	analysisTemplate = template.Must(template.New("analysis").Parse(analysisTemplateText))
)

type questionData struct {
	Personas   []domain.Persona
	PerPersona int
}

type analysisData struct {
	Query string
}

// ForQuestions renders the question-generation prompt for a set of
// personas.
func ForQuestions(personas []domain.Persona, perPersona int) (string, error) {
	var buf bytes.Buffer
	data := questionData{Personas: personas, PerPersona: perPersona}
	if err := questionTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute question prompt template: %w", err)
	}
	return buf.String(), nil
}

// ForAnalysis renders the brand-mention analysis prompt for one query.
func ForAnalysis(query string) (string, error) {
	var buf bytes.Buffer
	if err := analysisTemplate.Execute(&buf, analysisData{Query: query}); err != nil {
		return "", fmt.Errorf("failed to execute analysis prompt template: %w", err)
	}
	return buf.String(), nil
}
