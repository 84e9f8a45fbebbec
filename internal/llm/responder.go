package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/dmaciel/parley/internal/config"
	"github.com/dmaciel/parley/internal/history"
	"github.com/dmaciel/parley/internal/logger"
)

// Responder computes one assistant reply from an ordered prompt of prior
// messages. It is the model-invocation step of a conversation turn: a plain
// request/response call that may block on the network for as long as the
// provider takes. Errors from the provider propagate unchanged.
type Responder struct {
	client       Client
	model        string
	systemPrompt string
}

// NewResponder wraps client with the model and optional system prompt from cfg.
func NewResponder(client Client, cfg config.LLMConfig) *Responder {
	return &Responder{
		client:       client,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}
}

// Respond sends the prompt to the chat completion API and returns the
// assistant's message. The configured system prompt, when set, is prepended
// to the request but never becomes part of the stored conversation.
func (r *Responder) Respond(ctx context.Context, prompt []history.Message) (history.Message, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(prompt)+1)
	if r.systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.systemPrompt,
		})
	}
	for _, m := range prompt {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    apiRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: msgs,
	})
	if err != nil {
		logger.L.Error("chat completion failed", "model", r.model, "error", err)
		return history.Message{}, err
	}
	if len(resp.Choices) == 0 {
		return history.Message{}, errors.New("llm: completion response contained no choices")
	}

	reply, err := history.NewMessage(history.RoleAssistant, resp.Choices[0].Message.Content)
	if err != nil {
		return history.Message{}, fmt.Errorf("llm: build assistant message: %w", err)
	}
	return reply, nil
}

func apiRole(r history.Role) string {
	switch r {
	case history.RoleHuman:
		return openai.ChatMessageRoleUser
	case history.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case history.RoleSystem:
		return openai.ChatMessageRoleSystem
	}
	return openai.ChatMessageRoleUser
}
