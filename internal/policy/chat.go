package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chadiek/interview-agent/internal/observer"
	"github.com/chadiek/interview-agent/internal/session"
)

const systemPrompt = "You are an AI interviewer conducting a professional job interview. " +
	"Ask one question at a time, follow up on weak or vague answers, and keep replies short enough to speak aloud. " +
	"Respond with a JSON object: {\"reply\": \"<what you say next>\", \"action\": \"NEXT_QUESTION\"|\"FOLLOW_UP\"|\"END_INTERVIEW\"}. " +
	"Use END_INTERVIEW only when the interview is complete. " +
	"If the proctoring context reports integrity risks, weave a polite reminder into your reply."

// ChatClient drives the interview dialogue through an OpenAI-compatible
// chat completions endpoint.
type ChatClient struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func NewChatClient(baseURL, apiKey, model string) *ChatClient {
	return &ChatClient{
		HTTPClient: &http.Client{Timeout: 25 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
	}
}

// Chat sends the conversation state plus the latest user input and returns
// the raw reply payload. The caller parses the reply/action structure.
func (c *ChatClient) Chat(ctx context.Context, sessionID, input string, pctx session.PolicyContext) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("policy api key missing")
	}

	messages := buildMessages(input, pctx)
	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})

	endpoint := c.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("policy error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("policy: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// buildMessages flattens candidate profile, conversation history, and the
// visual-risk summary into a chat completion request.
func buildMessages(input string, pctx session.PolicyContext) []chatMessage {
	system := systemPrompt
	if len(pctx.Candidate) > 0 {
		system += "\nCandidate profile: " + string(pctx.Candidate)
	}
	messages := []chatMessage{{Role: "system", Content: system}}

	for _, t := range pctx.History {
		role := "user"
		if t.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: t.Text})
	}

	content := input
	if input == session.EventStartInterview {
		content = "Begin the interview now: greet the candidate by name and ask them to introduce themselves."
	}
	if note := riskNote(pctx.VisualRisk); note != "" {
		content += "\n\n" + note
	}
	messages = append(messages, chatMessage{Role: "user", Content: content})
	return messages
}

func riskNote(s observer.Summary) string {
	if s.Status == "" || (s.Status == observer.StatusNormal && s.RiskCount == 0) {
		return ""
	}
	note := fmt.Sprintf("[proctoring] status=%s risk_count=%d", s.Status, s.RiskCount)
	if s.LastEntry != nil {
		note += fmt.Sprintf(" last_event=%s@frame %d", s.LastEntry.Event, s.LastEntry.Frame)
	}
	return note
}
