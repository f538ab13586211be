package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		wantReply  string
		wantAction string
	}{
		{
			name:       "plain text",
			raw:        "hello",
			wantReply:  "hello",
			wantAction: ActionNextQuestion,
		},
		{
			name:       "structured end",
			raw:        `{"reply":"x","action":"END_INTERVIEW"}`,
			wantReply:  "x",
			wantAction: ActionEndInterview,
		},
		{
			name:       "structured follow up",
			raw:        `{"reply":"why?","action":"FOLLOW_UP"}`,
			wantReply:  "why?",
			wantAction: ActionFollowUp,
		},
		{
			name:       "malformed json-looking text",
			raw:        "{not json",
			wantReply:  "{not json",
			wantAction: ActionNextQuestion,
		},
		{
			name:       "structured without action",
			raw:        `{"reply":"just a reply"}`,
			wantReply:  "just a reply",
			wantAction: ActionNextQuestion,
		},
		{
			name:       "object without reply falls back to raw",
			raw:        `{"action":"END_INTERVIEW"}`,
			wantReply:  `{"action":"END_INTERVIEW"}`,
			wantAction: ActionNextQuestion,
		},
		{
			name:       "surrounding whitespace",
			raw:        "  \n {\"reply\":\"ok\",\"action\":\"NEXT_QUESTION\"} \n",
			wantReply:  "ok",
			wantAction: ActionNextQuestion,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply, action := ParseReply(tc.raw)
			require.Equal(t, tc.wantReply, reply)
			require.Equal(t, tc.wantAction, action)
		})
	}
}
