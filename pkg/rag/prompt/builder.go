// Package prompt composes the single generation request for a turn.
package prompt

import (
	"fmt"
	"strings"
)

// Placeholders written when a section has no content
const (
	NoSymptoms = "none yet"
	NoHistory  = "none"
	NoContext  = "no context found"
)

// Input is everything the builder needs; Build never touches anything else
type Input struct {
	UserInput     string
	Documents     []string
	KnownSymptoms []string
	RecentHistory []string
}

// Build places persona, user input, symptoms, history, documents and instructions in that order
func Build(in Input) string {
	var prompt strings.Builder

	writePersona(&prompt)
	writeUserInput(&prompt, in.UserInput)
	writeSymptoms(&prompt, in.KnownSymptoms)
	writeHistory(&prompt, in.RecentHistory)
	writeDocuments(&prompt, in.Documents)
	writeInstructions(&prompt)

	return prompt.String()
}

func writePersona(prompt *strings.Builder) {
	prompt.WriteString("<persona>\n")
	prompt.WriteString("You are a helpful and friendly medical assistant.\n")
	prompt.WriteString("Always respond in a warm, conversational tone.\n")
	prompt.WriteString("</persona>\n\n")
}

func writeUserInput(prompt *strings.Builder, input string) {
	fmt.Fprintf(prompt, "User input: \"%s\"\n\n", input)
}

func writeSymptoms(prompt *strings.Builder, symptoms []string) {
	known := NoSymptoms
	if len(symptoms) > 0 {
		known = strings.Join(symptoms, ", ")
	}
	fmt.Fprintf(prompt, "Known symptoms: %s\n\n", known)
}

func writeHistory(prompt *strings.Builder, history []string) {
	prompt.WriteString("<recent_history>\n")
	if len(history) == 0 {
		prompt.WriteString(NoHistory)
		prompt.WriteString("\n")
	}
	for _, h := range history {
		fmt.Fprintf(prompt, "- %s\n", h)
	}
	prompt.WriteString("</recent_history>\n\n")
}

func writeDocuments(prompt *strings.Builder, docs []string) {
	prompt.WriteString("<document_context>\n")
	if len(docs) == 0 {
		prompt.WriteString(NoContext)
		prompt.WriteString("\n")
	} else {
		prompt.WriteString(strings.Join(docs, "\n"))
		prompt.WriteString("\n")
	}
	prompt.WriteString("</document_context>\n\n")
}

func writeInstructions(prompt *strings.Builder) {
	prompt.WriteString("<instructions>\n")
	prompt.WriteString("1. If the user's input is a task-oriented command like \"summarize\", \"explain\" or \"extract\", perform exactly that task using the document context above.\n")
	prompt.WriteString("2. If the user greets you or says something vague (e.g. \"hello\", \"I need help\") and no symptoms are known yet, politely ask them to describe their medical symptoms.\n")
	prompt.WriteString("3. Otherwise respond helpfully to the described symptoms and ask relevant follow-up questions, such as how long they have lasted and what triggers them.\n")
	prompt.WriteString("4. Only use the user input, recent history and document context. Never make up medical information.\n")
	prompt.WriteString("</instructions>\n")
}
