package extract

import (
	"testing"
	"time"

	"ai-medchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fresh() *store.SessionMemory {
	return store.NewSessionMemory("s1", time.Unix(0, 0))
}

func strPtr(s string) *string { return &s }

func TestDurationRule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		prior *string
		want  *string
	}{
		{name: "for n unit", input: "I've had this for 3 days", want: strPtr("3 days")},
		{name: "since n unit", input: "Coughing since 2 weeks", want: strPtr("2 weeks")},
		{name: "case insensitive", input: "FOR 10 Hours now", want: strPtr("10 hours")},
		{name: "no match keeps prior", input: "it hurts", prior: strPtr("3 days"), want: strPtr("3 days")},
		{name: "no number no match", input: "for a while", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fresh()
			m.Duration = tt.prior
			DurationRule{}.Apply(m, tt.input)
			assert.Equal(t, tt.want, m.Duration)
		})
	}
}

// Later durations replace earlier ones without any merging
func TestDurationRule_LastWriteWins(t *testing.T) {
	m := fresh()
	e := NewExtractor()

	e.Update(m, "pain for 3 days")
	e.Update(m, "actually it started for 2 hours")

	require.NotNil(t, m.Duration)
	assert.Equal(t, "2 hours", *m.Duration)
}

func TestTriggerRule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		prior *string
		want  *string
	}{
		{name: "single keyword", input: "it happens when I'm running", want: strPtr("running")},
		{name: "list order beats input order", input: "cold air while walking", want: strPtr("walking")},
		{name: "case insensitive", input: "Dust makes it worse", want: strPtr("dust")},
		{name: "no match keeps prior", input: "nothing special", prior: strPtr("cold"), want: strPtr("cold")},
		{name: "no match stays unset", input: "hello", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fresh()
			m.Triggers = tt.prior
			TriggerRule{Keywords: DefaultTriggerKeywords}.Apply(m, tt.input)
			assert.Equal(t, tt.want, m.Triggers)
		})
	}
}

func TestSymptomLogRule_NoDuplicates(t *testing.T) {
	m := fresh()
	e := NewExtractor()

	for i := 0; i < 3; i++ {
		e.Update(m, "chest pain")
	}
	e.Update(m, "Chest pain")

	assert.Equal(t, []string{"chest pain", "Chest pain"}, m.Symptoms)
}

func TestExtractor_NeitherPatternLeavesFieldsUnchanged(t *testing.T) {
	m := fresh()
	m.Duration = strPtr("3 days")
	m.Triggers = strPtr("dust")

	NewExtractor().Update(m, "I also feel tired")

	assert.Equal(t, "3 days", *m.Duration)
	assert.Equal(t, "dust", *m.Triggers)
	assert.Equal(t, []string{"I also feel tired"}, m.Symptoms)
}

type shoutRule struct{}

func (shoutRule) Name() string { return "shout" }

func (shoutRule) Apply(m *store.SessionMemory, input string) {
	m.Symptoms = append(m.Symptoms, "!"+input)
}

func TestExtractor_CustomRules(t *testing.T) {
	e := NewExtractor(shoutRule{}, SymptomLogRule{})
	assert.Equal(t, []string{"shout", "symptoms"}, e.RuleNames())

	m := e.Update(fresh(), "itch")
	assert.Equal(t, []string{"!itch", "itch"}, m.Symptoms)
	assert.Nil(t, m.Duration)
}

func TestExtractor_DefaultRuleOrder(t *testing.T) {
	assert.Equal(t, []string{"duration", "triggers", "symptoms"}, NewExtractor().RuleNames())
}
