package chat

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// MaxHistory is how many previous messages are resent with each request.
	MaxHistory = 10
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextInfo describes the match the conversation is about.
type ContextInfo struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	League   string `json:"league"`
	Date     string `json:"date"`
}

type Request struct {
	Message   string      `json:"message"`
	History   []Message   `json:"history"`
	MatchInfo ContextInfo `json:"matchInfo"`
}

type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Assistant is the external request/reply endpoint. Conversation state is not kept
// server side, the history travels with every request.
type Assistant interface {
	Ask(ctx context.Context, matchID string, req Request) (Reply, error)
}
