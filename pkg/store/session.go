package store

import (
	"time"

	"github.com/samber/lo"
)

// Message roles stored in the session log
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Message is one entry of the conversational log
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMemory is the per-session conversational state.
// Duration and Triggers stay nil until a rule matches and are never reset automatically.
type SessionMemory struct {
	SessionID string    `json:"session_id"`
	Created   time.Time `json:"created"`

	// Raw user inputs, append-only, no two equal entries
	Symptoms []string `json:"symptoms"`
	Duration *string  `json:"duration"`
	Triggers *string  `json:"triggers"`

	Messages  []Message `json:"messages"`
	Documents []string  `json:"documents"`
}

// NewSessionMemory returns a fresh default record
func NewSessionMemory(sessionID string, now time.Time) *SessionMemory {
	return &SessionMemory{
		SessionID: sessionID,
		Created:   now,
		Symptoms:  []string{},
		Messages:  []Message{},
		Documents: []string{},
	}
}

// Clone returns a deep copy so callers can mutate freely without touching stored state
func (m *SessionMemory) Clone() *SessionMemory {
	if m == nil {
		return nil
	}
	c := *m
	c.Symptoms = append([]string{}, m.Symptoms...)
	c.Messages = append([]Message{}, m.Messages...)
	c.Documents = append([]string{}, m.Documents...)
	if m.Duration != nil {
		d := *m.Duration
		c.Duration = &d
	}
	if m.Triggers != nil {
		t := *m.Triggers
		c.Triggers = &t
	}
	return &c
}

// Normalize fills nil collections left behind by older or hand-written records
func (m *SessionMemory) Normalize() {
	if m.Symptoms == nil {
		m.Symptoms = []string{}
	}
	if m.Messages == nil {
		m.Messages = []Message{}
	}
	if m.Documents == nil {
		m.Documents = []string{}
	}
}

// AppendTurn adds one user and one bot entry together
func (m *SessionMemory) AppendTurn(input, response string, now time.Time) {
	m.Messages = append(m.Messages,
		Message{Role: RoleUser, Text: input, CreatedAt: now},
		Message{Role: RoleBot, Text: response, CreatedAt: now},
	)
}

// AddDocument registers an uploaded filename, ignoring duplicates
func (m *SessionMemory) AddDocument(filename string) bool {
	if lo.Contains(m.Documents, filename) {
		return false
	}
	m.Documents = append(m.Documents, filename)
	return true
}

// RemoveDocument drops an uploaded filename
func (m *SessionMemory) RemoveDocument(filename string) bool {
	if !lo.Contains(m.Documents, filename) {
		return false
	}
	m.Documents = lo.Without(m.Documents, filename)
	return true
}

// FirstUserMessage returns the text of the earliest user entry
func (m *SessionMemory) FirstUserMessage() (string, bool) {
	msg, ok := lo.Find(m.Messages, func(msg Message) bool {
		return msg.Role == RoleUser
	})
	return msg.Text, ok
}

// SessionSummary is one row of the session listing
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Created   time.Time `json:"created"`
	Preview   string    `json:"preview"`
}
