package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/goldstats-live/internal/domain/chat"
	"github.com/riskibarqy/goldstats-live/internal/domain/feed"
	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/normalize"
	"github.com/riskibarqy/goldstats-live/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultHomeTeamName = "Home team"
	defaultAwayTeamName = "Away team"
	defaultLeagueName   = "League"
	defaultMatchDate    = "Soon"

	// unavailableAnalysis is the placeholder the analysis endpoint returns when it has nothing.
	unavailableAnalysis = "Analysis not available."

	chatFallbackReply     = "Sorry, something went wrong. Please try again."
	chatConnectionFailure = "Connection error. Check your connection and try again."
)

type ChatInput struct {
	Message string
	History []chat.Message
	// Header, when set, avoids fetching the match header for the context info.
	Header *matchview.Header
}

// ChatService relays one conversation turn to the assistant. Assistant failures
// become assistant messages; only invalid input is returned as an error.
type ChatService struct {
	assistant chat.Assistant
	source    feed.Source
	logger    *logging.Logger
}

func NewChatService(assistant chat.Assistant, source feed.Source, logger *logging.Logger) *ChatService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatService{assistant: assistant, source: source, logger: logger}
}

func (s *ChatService) Send(ctx context.Context, matchID string, in ChatInput) (chat.Message, error) {
	matchID = strings.TrimSpace(matchID)
	ctx, span := startUsecaseSpan(ctx, "usecase.ChatService.Send", attribute.String("match.id", matchID))
	defer span.End()

	message := strings.TrimSpace(in.Message)
	if matchID == "" {
		return chat.Message{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if message == "" {
		return chat.Message{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	header := in.Header
	if header == nil {
		loaded := s.loadHeader(ctx, matchID)
		header = &loaded
	}

	req := chat.Request{
		Message:   message,
		History:   TrimHistory(in.History),
		MatchInfo: ContextInfoFor(*header),
	}

	reply, err := s.assistant.Ask(ctx, matchID, req)
	if err != nil {
		recordSpanError(span, err)
		s.logger.WarnContext(ctx, "assistant request failed", "match_id", matchID, "error", err)
		return assistantMessage(chatConnectionFailure), nil
	}
	if !reply.Success {
		s.logger.WarnContext(ctx, "assistant reported failure", "match_id", matchID, "message", reply.Message)
		return assistantMessage(firstNonBlank(reply.Message, chatFallbackReply)), nil
	}
	return assistantMessage(firstNonBlank(reply.Message, chatFallbackReply)), nil
}

// Greeting builds the opening assistant message for a match, from its AI analysis
// when one exists.
func (s *ChatService) Greeting(ctx context.Context, matchID string) (chat.Message, error) {
	matchID = strings.TrimSpace(matchID)
	ctx, span := startUsecaseSpan(ctx, "usecase.ChatService.Greeting", attribute.String("match.id", matchID))
	defer span.End()

	if matchID == "" {
		return chat.Message{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	var header, analysis fetchResult
	runPooled(nil,
		func() { header.raw, header.err = s.source.MatchHeader(ctx, matchID) },
		func() { analysis.raw, analysis.err = s.source.MatchAnalysis(ctx, matchID) },
	)

	model := matchview.MatchViewModel{}
	if data, ok := decodeSecondary(ctx, s.logger, header, "match_id", matchID, "block", "header"); ok {
		model.Header = normalize.Header(data)
	}
	if data, ok := decodeSecondary(ctx, s.logger, analysis, "match_id", matchID, "block", "analysis"); ok {
		model.AI = normalize.Analysis(data)
	}
	return GreetingFor(model), nil
}

// GreetingFor is the opening assistant message for an already loaded view model.
func GreetingFor(model matchview.MatchViewModel) chat.Message {
	info := ContextInfoFor(model.Header)
	analysis := strings.TrimSpace(model.AI.Analysis)

	if analysis != "" && analysis != unavailableAnalysis {
		return assistantMessage(fmt.Sprintf(`**AI analysis - %s vs %s**

%s

---
I can help with more detail. Ask about:
- Goal probabilities (over/under)
- Corners
- Both teams to score
- Handicap
- Anything else`, info.HomeTeam, info.AwayTeam, analysis))
	}

	return assistantMessage(fmt.Sprintf(`Hi! I'm your analysis assistant for %s vs %s.

I can help with:
- Statistics analysis
- Historical comparison
- Betting probabilities
- Market suggestions

What would you like to know?`, info.HomeTeam, info.AwayTeam))
}

// TrimHistory keeps the last chat.MaxHistory messages, dropping blank ones.
func TrimHistory(history []chat.Message) []chat.Message {
	kept := make([]chat.Message, 0, len(history))
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if msg.Role != chat.RoleUser {
			msg.Role = chat.RoleAssistant
		}
		kept = append(kept, msg)
	}
	if len(kept) > chat.MaxHistory {
		kept = kept[len(kept)-chat.MaxHistory:]
	}
	return kept
}

// ContextInfoFor describes the match for the assistant, with placeholders for
// unknown fields.
func ContextInfoFor(h matchview.Header) chat.ContextInfo {
	return chat.ContextInfo{
		HomeTeam: firstNonBlank(h.HomeTeam.Name, defaultHomeTeamName),
		AwayTeam: firstNonBlank(h.AwayTeam.Name, defaultAwayTeamName),
		League:   firstNonBlank(h.League.Name, defaultLeagueName),
		Date:     firstNonBlank(h.Date, defaultMatchDate),
	}
}

func (s *ChatService) loadHeader(ctx context.Context, matchID string) matchview.Header {
	res := fetchResult{}
	res.raw, res.err = s.source.MatchHeader(ctx, matchID)
	data, ok := decodeSecondary(ctx, s.logger, res, "match_id", matchID, "block", "chat_context")
	if !ok {
		return matchview.Header{}
	}
	return normalize.Header(data)
}

func assistantMessage(content string) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: content}
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
