package prompt

import (
	"fmt"
	"strings"

	"github.com/aaryapoyrekar/isro-bot/internal/domain"
)

// Default template text. The wording is a product decision and may be
// overridden; the structure (labeled, ranked context blocks followed by the
// question) is the contract that makes grounding verifiable.
const (
	DefaultPersona = "You are a knowledgeable assistant for the Indian Space Research Organisation (ISRO). " +
		"You answer questions about Indian space missions, satellites, launch vehicles, and space science."

	DefaultGuidance = "Answer the question using the context above. " +
		"If the context does not contain enough information, say so and offer general guidance instead. " +
		"Do not invent mission names, dates, or figures."
)

// Builder assembles retrieved chunks and the user query into a single
// grounded prompt.
type Builder struct {
	Persona  string
	Guidance string
}

// NewBuilder returns a Builder with the default template text.
func NewBuilder() *Builder {
	return &Builder{Persona: DefaultPersona, Guidance: DefaultGuidance}
}

// Build produces the prompt: persona, numbered context blocks in rank order,
// grounding instructions, then the literal user query.
func (b *Builder) Build(query string, results []domain.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString(b.Persona)
	sb.WriteString("\n\n")
	if len(results) > 0 {
		sb.WriteString("Context from the knowledge base, most relevant first:\n\n")
		for i, r := range results {
			fmt.Fprintf(&sb, "[Context %d]\n%s\n\n", i+1, strings.TrimSpace(r.Chunk.Text))
		}
	} else {
		sb.WriteString("No context was retrieved for this question.\n\n")
	}
	sb.WriteString(b.Guidance)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n")
	return sb.String()
}
