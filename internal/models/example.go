package models

import "encoding/json"

// TrainingExample is a single chat-format training record: one JSON object
// per line in a JSONL training file.
type TrainingExample struct {
	Messages []TrainingMessage `json:"messages"`
}

type TrainingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Valid reports whether the example is usable for training: at least two
// messages, at least one user and one assistant turn, no empty content and
// no unknown roles.
func (e TrainingExample) Valid() bool {
	if len(e.Messages) < 2 {
		return false
	}
	hasUser, hasAssistant := false, false
	for _, m := range e.Messages {
		switch m.Role {
		case RoleUser:
			hasUser = true
		case RoleAssistant:
			hasAssistant = true
		case RoleSystem:
		default:
			return false
		}
		if m.Content == "" {
			return false
		}
	}
	return hasUser && hasAssistant
}

// FirstUserMessage returns the content of the first user turn.
func (e TrainingExample) FirstUserMessage() (string, bool) {
	for _, m := range e.Messages {
		if m.Role == RoleUser {
			return m.Content, true
		}
	}
	return "", false
}

// FirstAssistantMessage returns the content of the first assistant turn.
func (e TrainingExample) FirstAssistantMessage() (string, bool) {
	for _, m := range e.Messages {
		if m.Role == RoleAssistant {
			return m.Content, true
		}
	}
	return "", false
}

// MarshalLine serializes the example as a single JSONL line (no newline).
func (e TrainingExample) MarshalLine() ([]byte, error) {
	return json.Marshal(e)
}
