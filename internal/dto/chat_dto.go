package dto

import "time"

type AskRequest struct {
	SessionId string `json:"session_id" validate:"required,max=128"`
	Input     string `json:"input" validate:"required,max=8000"`
}

type AskResponse struct {
	SessionId        string `json:"session_id"`
	Response         string `json:"response"`
	FollowupRequired bool   `json:"followup_required"`
	Outcome          string `json:"outcome"` // ok | warming_up | empty | failed
}

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
}

type SessionSummaryResponse struct {
	SessionId string    `json:"session_id"`
	Created   time.Time `json:"created"`
	Preview   string    `json:"preview"`
}

type ChatMessageResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionHistoryResponse struct {
	SessionId string                `json:"session_id"`
	Created   time.Time             `json:"created"`
	Symptoms  []string              `json:"symptoms"`
	Duration  *string               `json:"duration"`
	Triggers  *string               `json:"triggers"`
	Documents []string              `json:"documents"`
	Messages  []ChatMessageResponse `json:"messages"`
}
