package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/goldstats-live/internal/domain/chat"
	"github.com/riskibarqy/goldstats-live/internal/domain/matchview"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
)

const maxChatBodyBytes = 256 << 10

type chatRequest struct {
	Message   string           `json:"message" validate:"required,max=4000"`
	History   []chatMessageDTO `json:"history" validate:"omitempty,max=100,dive"`
	MatchInfo *chatContextDTO  `json:"matchInfo" validate:"omitempty"`
}

type chatMessageDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type chatContextDTO struct {
	HomeTeam string `json:"home_team" validate:"omitempty,max=200"`
	AwayTeam string `json:"away_team" validate:"omitempty,max=200"`
	League   string `json:"league" validate:"omitempty,max=200"`
	Date     string `json:"date" validate:"omitempty,max=64"`
}

func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SendChat")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))

	var req chatRequest
	decoder := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	history := make([]chat.Message, 0, len(req.History))
	for _, item := range req.History {
		history = append(history, chat.Message{Role: item.Role, Content: item.Content})
	}

	reply, err := h.chatService.Send(ctx, matchID, usecase.ChatInput{
		Message: req.Message,
		History: history,
		Header:  req.MatchInfo.header(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "send chat message failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reply)
}

func (h *Handler) GetChatGreeting(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetChatGreeting")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	greeting, err := h.chatService.Greeting(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "build chat greeting failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, greeting)
}

// header returns nil when the browser sent no match info, so the service loads it.
func (c *chatContextDTO) header() *matchview.Header {
	if c == nil {
		return nil
	}
	return &matchview.Header{
		Date:     c.Date,
		HomeTeam: matchview.TeamInfo{Name: c.HomeTeam},
		AwayTeam: matchview.TeamInfo{Name: c.AwayTeam},
		League:   matchview.LeagueInfo{Name: c.League},
	}
}
