// Package extract updates structured session memory from the latest user input.
package extract

import (
	"regexp"
	"strings"

	"ai-medchat-be/pkg/store"

	"github.com/samber/lo"
)

// Rule inspects input and may set one field of memory. Absence of a match is not an error.
type Rule interface {
	Name() string
	Apply(memory *store.SessionMemory, input string)
}

// Extractor applies its rules in order
type Extractor struct {
	rules []Rule
}

// DefaultTriggerKeywords is scanned in this order; the first hit wins
var DefaultTriggerKeywords = []string{"walking", "running", "exercise", "cold", "dust"}

// NewExtractor returns an extractor with the given rules, or the default set when none are passed
func NewExtractor(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

func DefaultRules() []Rule {
	return []Rule{
		DurationRule{},
		TriggerRule{Keywords: DefaultTriggerKeywords},
		SymptomLogRule{},
	}
}

// Update mutates memory in place and returns it
func (e *Extractor) Update(memory *store.SessionMemory, input string) *store.SessionMemory {
	for _, r := range e.rules {
		r.Apply(memory, input)
	}
	return memory
}

func (e *Extractor) RuleNames() []string {
	return lo.Map(e.rules, func(r Rule, _ int) string { return r.Name() })
}

var durationPattern = regexp.MustCompile(`(for|since)\s+(\d+\s+\w+)`)

// DurationRule overwrites Duration with "<number> <word>" from "for|since <number> <word>".
// Last write wins; an earlier duration is discarded.
type DurationRule struct{}

func (DurationRule) Name() string { return "duration" }

func (DurationRule) Apply(memory *store.SessionMemory, input string) {
	m := durationPattern.FindStringSubmatch(strings.ToLower(input))
	if m == nil {
		return
	}
	d := m[2]
	memory.Duration = &d
}

// TriggerRule sets Triggers to the first keyword, in list order, contained in input
type TriggerRule struct {
	Keywords []string
}

func (TriggerRule) Name() string { return "triggers" }

func (r TriggerRule) Apply(memory *store.SessionMemory, input string) {
	lowered := strings.ToLower(input)
	kw, ok := lo.Find(r.Keywords, func(k string) bool {
		return strings.Contains(lowered, k)
	})
	if !ok {
		return
	}
	memory.Triggers = &kw
}

// SymptomLogRule appends input verbatim unless the exact text is already logged
type SymptomLogRule struct{}

func (SymptomLogRule) Name() string { return "symptoms" }

func (SymptomLogRule) Apply(memory *store.SessionMemory, input string) {
	if lo.Contains(memory.Symptoms, input) {
		return
	}
	memory.Symptoms = append(memory.Symptoms, input)
}
