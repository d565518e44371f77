// Package followup decides whether a turn needs a clarifying question.
package followup

import (
	"fmt"
	"strings"

	"ai-medchat-be/pkg/store"
)

const (
	PolicyRule  = "rule"
	PolicyModel = "model"
)

// Policy may rewrite the response and reports whether a follow-up is required
type Policy interface {
	Name() string
	Decide(memory *store.SessionMemory, response string) (string, bool)
}

// New returns the policy for name
func New(name string) (Policy, error) {
	switch name {
	case PolicyRule:
		return RulePolicy{}, nil
	case PolicyModel:
		return ModelPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown follow-up policy %q", name)
	}
}

// MissingFields lists required fields that are still unset, in fixed order
func MissingFields(memory *store.SessionMemory) []string {
	var missing []string
	if memory.Duration == nil || *memory.Duration == "" {
		missing = append(missing, "duration")
	}
	if memory.Triggers == nil || *memory.Triggers == "" {
		missing = append(missing, "triggers")
	}
	return missing
}

// RulePolicy appends a literal question naming the missing fields
type RulePolicy struct{}

func (RulePolicy) Name() string { return PolicyRule }

func (RulePolicy) Decide(memory *store.SessionMemory, response string) (string, bool) {
	missing := MissingFields(memory)
	if len(missing) == 0 {
		return response, false
	}
	return response + fmt.Sprintf("\n\nFollow-up: Could you tell me your symptom %s?", strings.Join(missing, ", ")), true
}

// ModelPolicy leaves follow-ups to the generator's instructions
type ModelPolicy struct{}

func (ModelPolicy) Name() string { return PolicyModel }

func (ModelPolicy) Decide(memory *store.SessionMemory, response string) (string, bool) {
	return response, false
}
