package session

import (
	"encoding/json"
	"strings"
)

type policyReply struct {
	Reply  string `json:"reply"`
	Action string `json:"action"`
}

// ParseReply extracts the reply text and directive from a raw policy payload.
// Structured `{"reply":...,"action":...}` objects are honored; anything else,
// including malformed JSON-looking text, degrades to the raw text with a
// continue directive. Never fails.
func ParseReply(raw string) (reply, action string) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var pr policyReply
		if err := json.Unmarshal([]byte(trimmed), &pr); err == nil && pr.Reply != "" {
			if pr.Action == "" {
				pr.Action = ActionNextQuestion
			}
			return pr.Reply, pr.Action
		}
	}
	return trimmed, ActionNextQuestion
}
